// Package picker asks the user for an overlay image file.
package picker

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Picker opens a file chooser. ok is false when the user dismissed it
// without choosing a file.
type Picker interface {
	Pick(ctx context.Context) (path string, ok bool, err error)
}

// Func adapts a plain function to Picker.
type Func func(ctx context.Context) (string, bool, error)

// Pick calls f.
func (f Func) Pick(ctx context.Context) (string, bool, error) {
	return f(ctx)
}

// Command runs an external dialog program (zenity, kdialog, ...) that prints
// the chosen path on stdout. Exit status 1 or empty output means cancelled.
type Command struct {
	Name string
	Args []string
}

// DefaultCommand is the zenity image chooser.
func DefaultCommand() Command {
	return Command{
		Name: "zenity",
		Args: []string{"--file-selection", "--title=Select overlay image", "--file-filter=Images | *.png *.jpg *.jpeg *.bmp *.gif"},
	}
}

// Pick runs the dialog and waits for it to exit or ctx to end.
func (c Command) Pick(ctx context.Context) (string, bool, error) {
	if c.Name == "" {
		return "", false, errors.New("no picker command configured")
	}
	out, err := exec.CommandContext(ctx, c.Name, c.Args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && ctx.Err() == nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("picker %s: %w", c.Name, err)
	}
	path := strings.TrimSpace(string(out))
	if path == "" {
		return "", false, nil
	}
	return path, true, nil
}
