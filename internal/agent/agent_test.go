package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"settingsync/internal/config"
	"settingsync/internal/core"
	"settingsync/internal/option"
	"settingsync/internal/store"
)

func newTestAgent(t *testing.T) *Agent {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Root = t.TempDir()
	cfg.Store.Subfolder = "Profiles"
	cfg.Devices.Cameras = []string{"Integrated Camera", "USB Camera"}
	cfg.Devices.Microphones = []string{"Headset", "Array"}
	cfg.Notify.RateLimit = 1000
	cfg.Picker.Command = "echo"
	cfg.Picker.Args = []string{"/tmp/overlay.png"}

	a, err := NewAgent(cfg)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	a.server.Start(a.ctx)
	t.Cleanup(a.Shutdown)
	return a
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestNewAgent_LoadsFromStore(t *testing.T) {
	a := newTestAgent(t)

	state := a.Engine().State()
	if state.SelectedCameraIndex != 0 {
		t.Errorf("camera index = %d, want 0", state.SelectedCameraIndex)
	}
	if state.Microphones[0] != core.AllMicrophones {
		t.Errorf("microphones[0] = %q", state.Microphones[0])
	}
	if got, want := a.Engine().Path(), store.SubPath("Profiles", core.ModuleName); got != want {
		t.Errorf("path = %q, want %q", got, want)
	}

	file := filepath.Join(a.config.Store.Root, "Profiles", core.ModuleName, "settings.json")
	if _, err := os.Stat(file); err != nil {
		t.Errorf("settings not written on load: %v", err)
	}
}

func TestDispatch_Setters(t *testing.T) {
	a := newTestAgent(t)

	tests := []struct {
		name  string
		cmd   core.Command
		check func(core.Snapshot) bool
	}{
		{
			"camera index as float",
			core.Command{Type: core.CmdSelectCamera, Payload: map[string]interface{}{"index": float64(1)}},
			func(s core.Snapshot) bool { return s.SelectedCameraIndex == 1 },
		},
		{
			"microphone index as string",
			core.Command{Type: core.CmdSelectMicrophone, Payload: map[string]interface{}{"index": "2"}},
			func(s core.Snapshot) bool { return s.SelectedMicrophoneIndex == 2 },
		},
		{
			"toolbar position by symbol",
			core.Command{Type: core.CmdSetToolbarPosition, Payload: map[string]interface{}{"symbol": option.BottomLeft}},
			func(s core.Snapshot) bool { return s.ToolbarPositionIndex == 3 },
		},
		{
			"toolbar monitor by index",
			core.Command{Type: core.CmdSetToolbarMonitor, Payload: map[string]interface{}{"index": 1}},
			func(s core.Snapshot) bool { return s.ToolbarMonitorIndex == 1 },
		},
		{
			"hide toolbar",
			core.Command{Type: core.CmdSetHideToolbar, Payload: map[string]interface{}{"hide": false}},
			func(s core.Snapshot) bool { return !s.HideToolbarWhenUnmuted },
		},
		{
			"hotkey",
			core.Command{Type: core.CmdSetHotkey, Payload: map[string]interface{}{
				"kind":   "camera",
				"hotkey": map[string]interface{}{"win": true, "alt": true, "code": float64(67), "key": "C"},
			}},
			func(s core.Snapshot) bool {
				return s.CameraHotkey == core.Hotkey{Win: true, Alt: true, Code: 67, Key: "C"}
			},
		},
		{
			"enabled",
			core.Command{Type: core.CmdSetEnabled, Payload: map[string]interface{}{"enabled": true}},
			func(s core.Snapshot) bool { return s.Enabled },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := a.dispatch(tt.cmd); err != nil {
				t.Fatalf("dispatch: %v", err)
			}
			if !tt.check(a.Engine().State()) {
				t.Errorf("state not updated: %+v", a.Engine().State())
			}
		})
	}

	if !a.general.ModuleEnabled(core.ModuleName) {
		t.Error("general settings not updated by setEnabled")
	}
}

func TestDispatch_Refused(t *testing.T) {
	a := newTestAgent(t)
	before := a.Engine().State()

	tests := []struct {
		name string
		cmd  core.Command
		want string
	}{
		{"missing index", core.Command{Type: core.CmdSelectCamera}, "missing field"},
		{"toolbar out of range", core.Command{Type: core.CmdSetToolbarPosition, Payload: map[string]interface{}{"index": 6}}, "out of range"},
		{"monitor unknown symbol", core.Command{Type: core.CmdSetToolbarMonitor, Payload: map[string]interface{}{"symbol": "Left monitor"}}, "unknown option"},
		{"hotkey kind", core.Command{Type: core.CmdSetHotkey, Payload: map[string]interface{}{"kind": "speaker"}}, "unknown hotkey kind"},
		{"hotkey missing", core.Command{Type: core.CmdSetHotkey, Payload: map[string]interface{}{"kind": "camera"}}, "missing field"},
		{"bad bool", core.Command{Type: core.CmdSetHideToolbar, Payload: map[string]interface{}{"hide": map[string]interface{}{"on": 1}}}, "hide"},
		{"unknown type", core.Command{Type: "reboot"}, "unknown command type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.dispatch(tt.cmd)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("dispatch error = %v, want containing %q", err, tt.want)
			}
		})
	}

	// Refused commands go through handleCommand without touching state.
	a.handleCommand(core.Command{Type: core.CmdSetToolbarPosition, Payload: map[string]interface{}{"index": -1}})
	after := a.Engine().State()
	if after.ToolbarPositionIndex != before.ToolbarPositionIndex {
		t.Errorf("toolbar index changed to %d", after.ToolbarPositionIndex)
	}
}

func TestDispatch_OverlayImage(t *testing.T) {
	a := newTestAgent(t)

	if err := a.dispatch(core.Command{Type: core.CmdSelectOverlayImage}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	waitFor(t, func() bool { return a.Engine().State().OverlayImagePath == "/tmp/overlay.png" })

	if err := a.dispatch(core.Command{Type: core.CmdClearOverlayImage}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := a.Engine().State().OverlayImagePath; got != "" {
		t.Errorf("overlay path = %q after clear", got)
	}
}

func TestDispatch_Maintenance(t *testing.T) {
	a := newTestAgent(t)

	file := filepath.Join(a.config.Store.Root, "Profiles", core.ModuleName, "settings.json")
	if err := os.WriteFile(file, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := a.dispatch(core.Command{Type: core.CmdVerifyStore}); err != nil {
		t.Fatalf("verify: %v", err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := core.ParseSettings(data); err != nil {
		t.Errorf("store not repaired: %v", err)
	}

	notified := a.Engine().Stats().Notifications
	if err := a.dispatch(core.Command{Type: core.CmdResync}); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if got := a.Engine().Stats().Notifications; got != notified+1 {
		t.Errorf("notifications = %d, want %d", got, notified+1)
	}
}
