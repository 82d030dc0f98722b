package core

import (
	"sync"

	"settingsync/internal/option"
)

// HotkeyKind selects one of the three mute hotkeys.
type HotkeyKind int

const (
	HotkeyCameraAndMicrophone HotkeyKind = iota
	HotkeyMicrophone
	HotkeyCamera
)

// String returns the hotkey kind name used in commands.
func (k HotkeyKind) String() string {
	switch k {
	case HotkeyCameraAndMicrophone:
		return "cameraAndMicrophone"
	case HotkeyMicrophone:
		return "microphone"
	case HotkeyCamera:
		return "camera"
	default:
		return "unknown"
	}
}

// ParseHotkeyKind is the inverse of HotkeyKind.String.
func ParseHotkeyKind(s string) (HotkeyKind, bool) {
	switch s {
	case "cameraAndMicrophone":
		return HotkeyCameraAndMicrophone, true
	case "microphone":
		return HotkeyMicrophone, true
	case "camera":
		return HotkeyCamera, true
	}
	return 0, false
}

// State is the in-memory mirror of the module's settings document plus the
// selector indices derived from it. Every setter returns whether anything
// changed; an unchanged or rejected write leaves both views untouched.
type State struct {
	mu sync.RWMutex

	settings VideoConferenceSettings

	enabled                 bool
	selectedCameraIndex     int
	selectedMicrophoneIndex int
	toolbarPositionIndex    int
	toolbarMonitorIndex     int

	cameras     []string
	microphones []string
}

// Snapshot is a lock-free copy of State for reading and broadcasting.
type Snapshot struct {
	Enabled                   bool     `json:"enabled"`
	SelectedCameraIndex       int      `json:"selectedCameraIndex"`
	SelectedMicrophoneIndex   int      `json:"selectedMicrophoneIndex"`
	CameraAndMicrophoneHotkey Hotkey   `json:"cameraAndMicrophoneHotkey"`
	MicrophoneHotkey          Hotkey   `json:"microphoneHotkey"`
	CameraHotkey              Hotkey   `json:"cameraHotkey"`
	OverlayImagePath          string   `json:"overlayImagePath"`
	ToolbarPositionIndex      int      `json:"toolbarPositionIndex"`
	ToolbarMonitorIndex       int      `json:"toolbarMonitorIndex"`
	HideToolbarWhenUnmuted    bool     `json:"hideToolbarWhenUnmuted"`
	Cameras                   []string `json:"cameras"`
	Microphones               []string `json:"microphones"`

	Settings VideoConferenceSettings `json:"settings"`
}

// NewState creates a state over settings and the device lists. The lists are
// copied and never modified afterwards. Selector indices start unresolved;
// the caller sets them through the Set*Index methods or Resolve*.
func NewState(settings VideoConferenceSettings, cameras, microphones []string) *State {
	return &State{
		settings:                settings,
		selectedCameraIndex:     -1,
		selectedMicrophoneIndex: -1,
		cameras:                 append([]string(nil), cameras...),
		microphones:             append([]string(nil), microphones...),
	}
}

// Clone returns a snapshot of the current state for safe reading.
func (s *State) Clone() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.settings.Properties
	return Snapshot{
		Enabled:                   s.enabled,
		SelectedCameraIndex:       s.selectedCameraIndex,
		SelectedMicrophoneIndex:   s.selectedMicrophoneIndex,
		CameraAndMicrophoneHotkey: p.MuteCameraAndMicrophoneHotkey.Value,
		MicrophoneHotkey:          p.MuteMicrophoneHotkey.Value,
		CameraHotkey:              p.MuteCameraHotkey.Value,
		OverlayImagePath:          p.CameraOverlayImagePath.Value,
		ToolbarPositionIndex:      s.toolbarPositionIndex,
		ToolbarMonitorIndex:       s.toolbarMonitorIndex,
		HideToolbarWhenUnmuted:    p.HideToolbarWhenUnmuted.Value,
		Cameras:                   append([]string(nil), s.cameras...),
		Microphones:               append([]string(nil), s.microphones...),
		Settings:                  s.settings,
	}
}

// Settings returns a copy of the persisted document.
func (s *State) Settings() VideoConferenceSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Enabled reports whether the module is switched on.
func (s *State) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// SetEnabled updates the enabled flag.
func (s *State) SetEnabled(enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled == enabled {
		return false
	}
	s.enabled = enabled
	return true
}

// SetCameraIndex selects a camera. Out-of-range indices are dropped.
func (s *State) SetCameraIndex(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedCameraIndex == index || index < 0 || index >= len(s.cameras) {
		return false
	}
	s.selectedCameraIndex = index
	s.settings.Properties.SelectedCamera.Value = s.cameras[index]
	return true
}

// SetMicrophoneIndex selects a microphone (0 is the "all microphones"
// sentinel). Out-of-range indices are dropped.
func (s *State) SetMicrophoneIndex(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedMicrophoneIndex == index || index < 0 || index >= len(s.microphones) {
		return false
	}
	s.selectedMicrophoneIndex = index
	s.settings.Properties.SelectedMicrophone.Value = s.microphones[index]
	return true
}

// ResolveCamera derives the camera index from the persisted camera name.
// An empty name with at least one camera selects the first camera and
// reports dirty; a name with no live match leaves the index unset.
func (s *State) ResolveCamera() (dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := s.settings.Properties.SelectedCamera.Value
	if name == "" && len(s.cameras) != 0 {
		s.selectedCameraIndex = 0
		s.settings.Properties.SelectedCamera.Value = s.cameras[0]
		return true
	}
	s.selectedCameraIndex = indexOf(s.cameras, name)
	return false
}

// ResolveMicrophone derives the microphone index from the persisted name.
// An empty name selects the sentinel at index 0 and reports dirty.
func (s *State) ResolveMicrophone() (dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := s.settings.Properties.SelectedMicrophone.Value
	if name == "" && len(s.microphones) != 0 {
		s.selectedMicrophoneIndex = 0
		s.settings.Properties.SelectedMicrophone.Value = s.microphones[0]
		return true
	}
	s.selectedMicrophoneIndex = indexOf(s.microphones, name)
	return false
}

// ResolveToolbar decodes the persisted toolbar symbols. Unknown symbols keep
// the current indices.
func (s *State) ResolveToolbar() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := option.ToolbarPosition.Decode(s.settings.Properties.ToolbarPosition.Value); ok {
		s.toolbarPositionIndex = idx
	}
	if idx, ok := option.ToolbarMonitor.Decode(s.settings.Properties.ToolbarMonitor.Value); ok {
		s.toolbarMonitorIndex = idx
	}
}

// SetHotkey replaces one of the mute hotkeys.
func (s *State) SetHotkey(kind HotkeyKind, hk Hotkey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var prop *HotkeyProperty
	switch kind {
	case HotkeyCameraAndMicrophone:
		prop = &s.settings.Properties.MuteCameraAndMicrophoneHotkey
	case HotkeyMicrophone:
		prop = &s.settings.Properties.MuteMicrophoneHotkey
	case HotkeyCamera:
		prop = &s.settings.Properties.MuteCameraHotkey
	default:
		return false
	}
	if prop.Value == hk {
		return false
	}
	prop.Value = hk
	return true
}

// SetOverlayImagePath updates the overlay image path.
func (s *State) SetOverlayImagePath(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings.Properties.CameraOverlayImagePath.Value == path {
		return false
	}
	s.settings.Properties.CameraOverlayImagePath.Value = path
	return true
}

// SetToolbarPositionIndex selects a toolbar corner. index must be valid for
// option.ToolbarPosition.
func (s *State) SetToolbarPositionIndex(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.toolbarPositionIndex == index {
		return false
	}
	s.settings.Properties.ToolbarPosition.Value = option.ToolbarPosition.Encode(index)
	s.toolbarPositionIndex = index
	return true
}

// SetToolbarMonitorIndex selects where the toolbar is shown. index must be
// valid for option.ToolbarMonitor.
func (s *State) SetToolbarMonitorIndex(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.toolbarMonitorIndex == index {
		return false
	}
	s.settings.Properties.ToolbarMonitor.Value = option.ToolbarMonitor.Encode(index)
	s.toolbarMonitorIndex = index
	return true
}

// SetHideToolbarWhenUnmuted updates the hide-toolbar flag.
func (s *State) SetHideToolbarWhenUnmuted(hide bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings.Properties.HideToolbarWhenUnmuted.Value == hide {
		return false
	}
	s.settings.Properties.HideToolbarWhenUnmuted.Value = hide
	return true
}

func indexOf(list []string, name string) int {
	for i, v := range list {
		if v == name {
			return i
		}
	}
	return -1
}
