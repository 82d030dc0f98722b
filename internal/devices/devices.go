// Package devices supplies the camera and microphone names offered by the
// settings selectors.
package devices

import "settingsync/internal/core"

// Provider enumerates capture devices. The returned lists are in display order.
type Provider interface {
	Cameras() []string
	Microphones() []string
}

// Static is a Provider over fixed lists.
type Static struct {
	CameraNames     []string
	MicrophoneNames []string
}

// Cameras returns a copy of the configured camera names.
func (s Static) Cameras() []string {
	return append([]string(nil), s.CameraNames...)
}

// Microphones returns a copy of the configured microphone names.
func (s Static) Microphones() []string {
	return append([]string(nil), s.MicrophoneNames...)
}

// Lists enumerates p once and returns the camera list and the microphone list
// with the "all microphones" sentinel in front.
func Lists(p Provider) (cameras, microphones []string) {
	cameras = p.Cameras()
	microphones = append([]string{core.AllMicrophones}, p.Microphones()...)
	return cameras, microphones
}
