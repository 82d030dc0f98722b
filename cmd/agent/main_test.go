package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
[store]
root = "` + filepath.Join(dir, "store") + `"

[devices]
cameras = ["Integrated Camera"]
microphones = ["Headset"]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestResetThenShow(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "reset")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !strings.Contains(out, `"selectedCameraIndex": 0`) {
		t.Errorf("reset output missing camera index:\n%s", out)
	}

	out, err = execute(t, "--config", cfg, "show", "--key", "properties.selected_camera.value")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if got := strings.TrimSpace(out); got != "Integrated Camera" {
		t.Errorf("show --key = %q", got)
	}

	out, err = execute(t, "--config", cfg, "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, `"toolbar_position"`) {
		t.Errorf("show output:\n%s", out)
	}
}

func TestShow_Errors(t *testing.T) {
	cfg := writeConfig(t)

	if _, err := execute(t, "--config", cfg, "show"); err == nil {
		t.Error("show before any save succeeded")
	}

	if _, err := execute(t, "--config", cfg, "reset"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := execute(t, "--config", cfg, "show", "--key", "properties.no_such_field"); err == nil {
		t.Error("show of a missing key succeeded")
	}
}
