// Package engine keeps one module's settings session in sync with the
// settings store and the control process.
//
// Every mutation goes through the same path: update the in-memory state,
// and when something actually changed, commit. A commit saves the whole
// settings document and then sends it to the control process. The two halves
// are independent: a failed save is logged and recorded but the
// notification is still sent, and the in-memory state is never rolled back.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"settingsync/internal/channel"
	"settingsync/internal/core"
	"settingsync/internal/devices"
	"settingsync/internal/picker"
	"settingsync/internal/store"
)

// Options are the collaborators of an Engine.
type Options struct {
	Store        store.Store
	Channel      channel.Channel
	Devices      devices.Provider
	General      *core.GeneralSettings
	Picker       picker.Picker
	Events       *core.EventBus
	SettingsPath string
}

// Stats counts commits since the engine was loaded.
type Stats struct {
	Commits        int
	FailedSaves    int
	Notifications  int
	LastSendStatus int
}

// Engine owns the settings state of one module session.
type Engine struct {
	mu sync.Mutex

	store   store.Store
	channel channel.Channel
	general *core.GeneralSettings
	picker  picker.Picker
	events  *core.EventBus
	path    string

	state   *core.State
	stats   Stats
	lastErr error

	picking atomic.Bool
}

// Load builds an engine from the store. Unreadable settings are replaced by
// defaults; see loadState for the full recovery sequence. Load only fails
// when a required collaborator is missing.
func Load(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.General == nil {
		return nil, errors.New("engine: general settings are required")
	}
	if opts.SettingsPath == "" {
		opts.SettingsPath = store.SubPath("", core.ModuleName)
	}
	if opts.Channel == nil {
		opts.Channel = channel.Func(func(string) int { return 0 })
	}
	if opts.Devices == nil {
		opts.Devices = devices.Static{}
	}

	e := &Engine{
		store:   opts.Store,
		channel: opts.Channel,
		general: opts.General,
		picker:  opts.Picker,
		events:  opts.Events,
		path:    opts.SettingsPath,
	}
	e.state = e.loadState(opts.Devices)
	return e, nil
}

// State returns a snapshot of the current settings state.
func (e *Engine) State() core.Snapshot {
	return e.state.Clone()
}

// Path returns the store path of the module settings.
func (e *Engine) Path() string {
	return e.path
}

// IsElevated reports whether the control process runs elevated.
func (e *Engine) IsElevated() bool {
	return e.general.IsElevated()
}

// LastCommitError returns the error of the most recent failed save, or nil if
// the last commit was saved.
func (e *Engine) LastCommitError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Stats returns the commit counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// SetEnabled switches the module on or off. The flag lives in the shared
// general settings, which persist and notify on their own; the module
// document is not committed. The cached flag is resynced from the general
// settings first, since other holders of the aggregate may have changed it.
func (e *Engine) SetEnabled(enabled bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.general.ModuleEnabled(core.ModuleName)
	e.state.SetEnabled(current)
	if current == enabled {
		return false
	}
	e.general.SetModuleEnabled(core.ModuleName, enabled)
	e.state.SetEnabled(enabled)
	e.events.Publish(core.Event{
		Type:    core.ModuleEnabledEvent,
		Payload: map[string]interface{}{"module": core.ModuleName, "enabled": enabled},
	})
	return true
}

// SetCameraIndex selects a camera. Unchanged or out-of-range indices are dropped.
func (e *Engine) SetCameraIndex(index int) bool {
	return e.apply(func() bool { return e.state.SetCameraIndex(index) })
}

// SetMicrophoneIndex selects a microphone. Unchanged or out-of-range indices are dropped.
func (e *Engine) SetMicrophoneIndex(index int) bool {
	return e.apply(func() bool { return e.state.SetMicrophoneIndex(index) })
}

// SetHotkey replaces one of the mute hotkeys.
func (e *Engine) SetHotkey(kind core.HotkeyKind, hk core.Hotkey) bool {
	return e.apply(func() bool { return e.state.SetHotkey(kind, hk) })
}

// SetCameraAndMicrophoneHotkey replaces the hotkey that mutes both devices.
func (e *Engine) SetCameraAndMicrophoneHotkey(hk core.Hotkey) bool {
	return e.SetHotkey(core.HotkeyCameraAndMicrophone, hk)
}

// SetMicrophoneHotkey replaces the microphone mute hotkey.
func (e *Engine) SetMicrophoneHotkey(hk core.Hotkey) bool {
	return e.SetHotkey(core.HotkeyMicrophone, hk)
}

// SetCameraHotkey replaces the camera mute hotkey.
func (e *Engine) SetCameraHotkey(hk core.Hotkey) bool {
	return e.SetHotkey(core.HotkeyCamera, hk)
}

// SetOverlayImagePath sets the overlay image path directly.
func (e *Engine) SetOverlayImagePath(path string) bool {
	return e.apply(func() bool { return e.state.SetOverlayImagePath(path) })
}

// SetToolbarPositionIndex selects the toolbar corner. The index must be valid
// for option.ToolbarPosition; callers validate selector input first.
func (e *Engine) SetToolbarPositionIndex(index int) bool {
	return e.apply(func() bool { return e.state.SetToolbarPositionIndex(index) })
}

// SetToolbarMonitorIndex selects the toolbar monitor. The index must be valid
// for option.ToolbarMonitor.
func (e *Engine) SetToolbarMonitorIndex(index int) bool {
	return e.apply(func() bool { return e.state.SetToolbarMonitorIndex(index) })
}

// SetHideToolbarWhenUnmuted updates the hide-toolbar flag.
func (e *Engine) SetHideToolbarWhenUnmuted(hide bool) bool {
	return e.apply(func() bool { return e.state.SetHideToolbarWhenUnmuted(hide) })
}

// ClearOverlayImage resets the overlay path and commits, even when the path
// was already empty.
func (e *Engine) ClearOverlayImage() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.SetOverlayImagePath("")
	e.commitLocked()
}

// SelectOverlayImage asks the picker for an image and commits the chosen
// path. It blocks until the picker returns. Cancellation, picker errors and
// a pick already in progress all leave the state unchanged; the result
// reports whether a path was committed.
func (e *Engine) SelectOverlayImage(ctx context.Context) bool {
	if e.picker == nil {
		log.Println("[Engine] No overlay picker configured.")
		return false
	}
	if !e.picking.CompareAndSwap(false, true) {
		log.Println("[Engine] Overlay pick already in progress, ignoring request.")
		return false
	}
	defer e.picking.Store(false)

	path, ok, err := e.pick(ctx)
	if err != nil {
		log.Printf("[Engine] Overlay pick failed: %v", err)
		return false
	}
	if !ok {
		log.Println("[Engine] Overlay pick cancelled.")
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.SetOverlayImagePath(path)
	e.commitLocked()
	e.events.Publish(core.Event{Type: core.OverlayPickedEvent, Payload: map[string]interface{}{"path": path}})
	return true
}

// pick runs the picker, turning a panic into an error.
func (e *Engine) pick(ctx context.Context) (path string, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			path, ok, err = "", false, fmt.Errorf("picker panicked: %v", r)
		}
	}()
	return e.picker.Pick(ctx)
}

// Resync sends the current settings to the control process without saving.
func (e *Engine) Resync() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.notifyLocked(e.state.Settings())
}

// VerifyStore re-reads the module document and rewrites it from memory when
// it is missing or unreadable. It reports whether a rewrite was needed.
func (e *Engine) VerifyStore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	blob, err := e.store.Get(e.path)
	if err == nil {
		if _, err = core.ParseSettings(blob); err == nil {
			return false
		}
	}
	log.Printf("[Engine] Stored settings at %s unusable (%v), rewriting from memory.", e.path, err)
	e.saveLocked(e.state.Settings())
	return true
}

// apply runs mutate under the engine lock and commits if it changed anything.
func (e *Engine) apply(mutate func() bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !mutate() {
		return false
	}
	e.commitLocked()
	return true
}

// commitLocked saves the whole document and notifies the control process.
func (e *Engine) commitLocked() {
	settings := e.state.Settings()
	e.stats.Commits++
	e.saveLocked(settings)
	e.notifyLocked(settings)
	e.events.Publish(core.Event{Type: core.SettingsCommittedEvent, Payload: e.state.Clone()})
}

func (e *Engine) saveLocked(settings core.VideoConferenceSettings) {
	blob, err := settings.JSON()
	if err == nil {
		err = e.store.Save(e.path, blob)
	}
	if err != nil {
		e.stats.FailedSaves++
		e.lastErr = fmt.Errorf("save %s: %w", e.path, err)
		log.Printf("[Engine] %v", e.lastErr)
		e.events.Publish(core.Event{
			Type:    core.CommitFailedEvent,
			Payload: map[string]interface{}{"path": e.path, "error": err.Error()},
		})
		return
	}
	e.lastErr = nil
}

func (e *Engine) notifyLocked(settings core.VideoConferenceSettings) int {
	status := e.channel.Send(core.NewModuleEnvelope(settings).String())
	e.stats.Notifications++
	e.stats.LastSendStatus = status
	return status
}
