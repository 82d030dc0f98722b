package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"settingsync/internal/option"
)

// ModuleName is the logical name of the video conference module. It is the
// last element of the settings path and the key of the notification envelope.
const ModuleName = "Video Conference"

// SettingsVersion is written into freshly defaulted settings files.
const SettingsVersion = "1.0"

// AllMicrophones is the synthetic first entry of the microphone list.
const AllMicrophones = "[All]"

// Hotkey is a key combination. The zero value means no hotkey is assigned.
type Hotkey struct {
	Win   bool   `json:"win"`
	Ctrl  bool   `json:"ctrl"`
	Alt   bool   `json:"alt"`
	Shift bool   `json:"shift"`
	Code  int    `json:"code"`
	Key   string `json:"key"`
}

// IsEmpty reports whether no key is assigned.
func (h Hotkey) IsEmpty() bool {
	return h == Hotkey{}
}

// String renders the combination the way settings screens show it, e.g. "Win + Shift + Q".
func (h Hotkey) String() string {
	if h.IsEmpty() {
		return ""
	}
	var parts []string
	if h.Win {
		parts = append(parts, "Win")
	}
	if h.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if h.Alt {
		parts = append(parts, "Alt")
	}
	if h.Shift {
		parts = append(parts, "Shift")
	}
	if h.Key != "" {
		parts = append(parts, h.Key)
	}
	return strings.Join(parts, " + ")
}

// StringProperty, BoolProperty and HotkeyProperty wrap persisted values in
// the {"value": ...} shape the settings files use.
type StringProperty struct {
	Value string `json:"value"`
}

type BoolProperty struct {
	Value bool `json:"value"`
}

type HotkeyProperty struct {
	Value Hotkey `json:"value"`
}

// VideoConferenceProperties is the persisted property set. The JSON keys are
// the canonical names shared with the control process.
type VideoConferenceProperties struct {
	MuteCameraAndMicrophoneHotkey HotkeyProperty `json:"mute_camera_and_microphone_hotkey"`
	MuteMicrophoneHotkey          HotkeyProperty `json:"mute_microphone_hotkey"`
	MuteCameraHotkey              HotkeyProperty `json:"mute_camera_hotkey"`
	SelectedCamera                StringProperty `json:"selected_camera"`
	SelectedMicrophone            StringProperty `json:"selected_mic"`
	CameraOverlayImagePath        StringProperty `json:"camera_overlay_image_path"`
	ToolbarPosition               StringProperty `json:"toolbar_position"`
	ToolbarMonitor                StringProperty `json:"toolbar_monitor"`
	HideToolbarWhenUnmuted        BoolProperty   `json:"hide_toolbar_when_unmuted"`
}

// VideoConferenceSettings is the document stored at the module's settings path.
type VideoConferenceSettings struct {
	Name       string                    `json:"name"`
	Version    string                    `json:"version"`
	Properties VideoConferenceProperties `json:"properties"`
}

// DefaultSettings returns the settings written when nothing usable is stored.
func DefaultSettings() VideoConferenceSettings {
	return VideoConferenceSettings{
		Name:    ModuleName,
		Version: SettingsVersion,
		Properties: VideoConferenceProperties{
			MuteCameraAndMicrophoneHotkey: HotkeyProperty{Hotkey{Win: true, Shift: true, Code: 81, Key: "Q"}},
			MuteMicrophoneHotkey:          HotkeyProperty{Hotkey{Win: true, Shift: true, Code: 65, Key: "A"}},
			MuteCameraHotkey:              HotkeyProperty{Hotkey{Win: true, Shift: true, Code: 79, Key: "O"}},
			ToolbarPosition:               StringProperty{option.TopRight},
			ToolbarMonitor:                StringProperty{option.MainMonitor},
			HideToolbarWhenUnmuted:        BoolProperty{true},
		},
	}
}

// ParseSettings decodes a stored settings document over the defaults, so
// properties absent from the document keep their default values. A JSON null
// is rejected like any other undecodable document.
func ParseSettings(blob []byte) (VideoConferenceSettings, error) {
	if bytes.Equal(bytes.TrimSpace(blob), []byte("null")) {
		return VideoConferenceSettings{}, errors.New("empty settings document")
	}
	s := DefaultSettings()
	if err := json.Unmarshal(blob, &s); err != nil {
		return VideoConferenceSettings{}, err
	}
	return s, nil
}

// JSON encodes the settings document for the store.
func (s VideoConferenceSettings) JSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// ModuleEnvelope is the notification sent to the control process after a
// module commit: {"powertoys": {"Video Conference": {...}}}.
type ModuleEnvelope struct {
	PowerToys map[string]VideoConferenceSettings `json:"powertoys"`
}

// NewModuleEnvelope wraps settings under the module name.
func NewModuleEnvelope(s VideoConferenceSettings) ModuleEnvelope {
	return ModuleEnvelope{PowerToys: map[string]VideoConferenceSettings{ModuleName: s}}
}

// String returns the serialized envelope.
func (e ModuleEnvelope) String() string {
	data, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(data)
}
