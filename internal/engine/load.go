package engine

import (
	"log"

	"settingsync/internal/core"
	"settingsync/internal/devices"
)

// loadState reads the module settings and reconciles them with the live
// device lists:
//
//  1. A missing or undecodable document is replaced by defaults, which are
//     written back immediately.
//  2. The camera and microphone names are matched against the device lists.
//     An empty name picks the first entry (for microphones that is the
//     "all microphones" sentinel) and marks the document dirty; a name with
//     no live device leaves the index unset.
//  3. Toolbar symbols are decoded; unknown symbols keep the zero index.
//  4. A dirty document is saved once.
func (e *Engine) loadState(provider devices.Provider) *core.State {
	settings, err := e.readSettings()
	if err != nil {
		log.Printf("[Engine] Could not load settings from %s (%v), using defaults.", e.path, err)
		settings = core.DefaultSettings()
		e.saveLocked(settings)
	}

	cameras, microphones := devices.Lists(provider)
	st := core.NewState(settings, cameras, microphones)

	dirty := st.ResolveCamera()
	if st.ResolveMicrophone() {
		dirty = true
	}
	st.ResolveToolbar()
	st.SetEnabled(e.general.ModuleEnabled(core.ModuleName))

	if dirty {
		e.saveLocked(st.Settings())
	}

	snap := st.Clone()
	log.Printf("[Engine] Loaded %s: camera=%d/%d microphone=%d/%d enabled=%v",
		e.path, snap.SelectedCameraIndex, len(cameras), snap.SelectedMicrophoneIndex, len(microphones), snap.Enabled)
	return st
}

func (e *Engine) readSettings() (core.VideoConferenceSettings, error) {
	blob, err := e.store.Get(e.path)
	if err != nil {
		return core.VideoConferenceSettings{}, err
	}
	return core.ParseSettings(blob)
}
