package agent

import (
	"errors"
	"fmt"
	"log"

	"github.com/mitchellh/mapstructure"

	"settingsync/internal/core"
	"settingsync/internal/option"
	"settingsync/internal/server"
)

type enabledArgs struct {
	Enabled *bool `mapstructure:"enabled"`
}

type indexArgs struct {
	Index  *int   `mapstructure:"index"`
	Symbol string `mapstructure:"symbol"`
}

type hideArgs struct {
	Hide *bool `mapstructure:"hide"`
}

type hotkeyArgs struct {
	Kind   string       `mapstructure:"kind"`
	Hotkey *core.Hotkey `mapstructure:"hotkey"`
}

var errMissingField = errors.New("missing field")

func decodePayload(payload map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(payload)
}

// optionIndex resolves an index or symbol argument against t.
func optionIndex(t *option.Table, args indexArgs) (int, error) {
	if args.Index != nil {
		if !t.Valid(*args.Index) {
			return 0, fmt.Errorf("index %d out of range", *args.Index)
		}
		return *args.Index, nil
	}
	if args.Symbol != "" {
		if idx, ok := t.Decode(args.Symbol); ok {
			return idx, nil
		}
		return 0, fmt.Errorf("unknown option %q", args.Symbol)
	}
	return 0, fmt.Errorf("index: %w", errMissingField)
}

func (a *Agent) handleCommand(cmd core.Command) {
	log.Printf("[Agent] Handling command: %s with payload: %v", cmd.Type, cmd.Payload)

	if err := a.dispatch(cmd); err != nil {
		log.Printf("[Agent] Command %s refused: %v", cmd.Type, err)
		a.server.Hub.Broadcast(server.NewMessage(server.MsgCommandRefused, map[string]interface{}{
			"type":  cmd.Type,
			"error": err.Error(),
		}))
	}
}

func (a *Agent) dispatch(cmd core.Command) error {
	switch cmd.Type {
	case core.CmdSetEnabled:
		var args enabledArgs
		if err := decodePayload(cmd.Payload, &args); err != nil {
			return err
		}
		if args.Enabled == nil {
			return fmt.Errorf("enabled: %w", errMissingField)
		}
		a.engine.SetEnabled(*args.Enabled)

	case core.CmdSelectCamera, core.CmdSelectMicrophone:
		var args indexArgs
		if err := decodePayload(cmd.Payload, &args); err != nil {
			return err
		}
		if args.Index == nil {
			return fmt.Errorf("index: %w", errMissingField)
		}
		if cmd.Type == core.CmdSelectCamera {
			a.engine.SetCameraIndex(*args.Index)
		} else {
			a.engine.SetMicrophoneIndex(*args.Index)
		}

	case core.CmdSetHotkey:
		var args hotkeyArgs
		if err := decodePayload(cmd.Payload, &args); err != nil {
			return err
		}
		kind, ok := core.ParseHotkeyKind(args.Kind)
		if !ok {
			return fmt.Errorf("unknown hotkey kind %q", args.Kind)
		}
		if args.Hotkey == nil {
			return fmt.Errorf("hotkey: %w", errMissingField)
		}
		a.engine.SetHotkey(kind, *args.Hotkey)

	case core.CmdSetToolbarPosition:
		var args indexArgs
		if err := decodePayload(cmd.Payload, &args); err != nil {
			return err
		}
		idx, err := optionIndex(option.ToolbarPosition, args)
		if err != nil {
			return err
		}
		a.engine.SetToolbarPositionIndex(idx)

	case core.CmdSetToolbarMonitor:
		var args indexArgs
		if err := decodePayload(cmd.Payload, &args); err != nil {
			return err
		}
		idx, err := optionIndex(option.ToolbarMonitor, args)
		if err != nil {
			return err
		}
		a.engine.SetToolbarMonitorIndex(idx)

	case core.CmdSetHideToolbar:
		var args hideArgs
		if err := decodePayload(cmd.Payload, &args); err != nil {
			return err
		}
		if args.Hide == nil {
			return fmt.Errorf("hide: %w", errMissingField)
		}
		a.engine.SetHideToolbarWhenUnmuted(*args.Hide)

	case core.CmdSelectOverlayImage:
		// The picker waits on the user; keep the command loop free meanwhile.
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.engine.SelectOverlayImage(a.ctx)
		}()

	case core.CmdClearOverlayImage:
		a.engine.ClearOverlayImage()

	case core.CmdResync:
		a.engine.Resync()

	case core.CmdVerifyStore:
		a.engine.VerifyStore()

	default:
		return fmt.Errorf("unknown command type %q", cmd.Type)
	}
	return nil
}
