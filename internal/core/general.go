package core

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// GeneralSettingsPath is the store path of the settings shared by all modules.
const GeneralSettingsPath = "settings.json"

// BlobStore is the subset of the settings store the aggregate needs.
type BlobStore interface {
	Get(path string) ([]byte, error)
	Save(path string, blob []byte) error
}

// Sender delivers a serialized message to the control process.
type Sender interface {
	Send(msg string) int
}

// GeneralSettingsData is the persisted document shared by every module.
type GeneralSettingsData struct {
	Startup     bool            `json:"startup"`
	Enabled     map[string]bool `json:"enabled"`
	IsElevated  bool            `json:"is_elevated"`
	RunElevated bool            `json:"run_elevated"`
	Theme       string          `json:"theme"`
	Version     string          `json:"version"`
}

// GeneralSettings is the aggregate of cross-module settings. It is created
// once per process and handed to every module engine; it persists and
// notifies on its own path, independent of module commits.
type GeneralSettings struct {
	mu      sync.RWMutex
	data    GeneralSettingsData
	store   BlobStore
	sender  Sender
	path    string
	lastErr error
}

// LoadGeneralSettings reads the shared settings from store. An unreadable or
// missing document is replaced with defaults and written back.
func LoadGeneralSettings(store BlobStore, sender Sender) *GeneralSettings {
	g := &GeneralSettings{store: store, sender: sender, path: GeneralSettingsPath}

	blob, err := store.Get(g.path)
	if err == nil {
		err = json.Unmarshal(blob, &g.data)
	}
	if err != nil {
		log.Printf("[General] Could not read %s (%v), writing defaults.", g.path, err)
		g.data = GeneralSettingsData{Theme: "system", Version: SettingsVersion}
		g.persistLocked()
	}
	if g.data.Enabled == nil {
		g.data.Enabled = make(map[string]bool)
	}
	return g
}

// ModuleEnabled reports whether the named module is switched on.
func (g *GeneralSettings) ModuleEnabled(module string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.data.Enabled[module]
}

// IsElevated reports whether the control process runs elevated.
func (g *GeneralSettings) IsElevated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.data.IsElevated
}

// Data returns a copy of the shared document.
func (g *GeneralSettings) Data() GeneralSettingsData {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.copyLocked()
}

// SetModuleEnabled switches a module on or off, then persists the shared
// document and sends the {"general": ...} snapshot. It reports whether the
// value changed; an unchanged value writes and sends nothing.
func (g *GeneralSettings) SetModuleEnabled(module string, enabled bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.data.Enabled[module] == enabled {
		return false
	}
	g.data.Enabled[module] = enabled

	g.persistLocked()
	if g.sender != nil {
		g.sender.Send(GeneralEnvelope{General: g.copyLocked()}.String())
	}
	return true
}

// LastError returns the most recent persistence failure, if any.
func (g *GeneralSettings) LastError() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastErr
}

func (g *GeneralSettings) persistLocked() {
	blob, err := json.MarshalIndent(g.data, "", "  ")
	if err == nil {
		err = g.store.Save(g.path, blob)
	}
	if err != nil {
		g.lastErr = fmt.Errorf("save general settings: %w", err)
		log.Printf("[General] %v", g.lastErr)
		return
	}
	g.lastErr = nil
}

func (g *GeneralSettings) copyLocked() GeneralSettingsData {
	d := g.data
	d.Enabled = make(map[string]bool, len(g.data.Enabled))
	for k, v := range g.data.Enabled {
		d.Enabled[k] = v
	}
	return d
}

// GeneralEnvelope is the module-agnostic notification sent when the shared
// settings change.
type GeneralEnvelope struct {
	General GeneralSettingsData `json:"general"`
}

// String returns the serialized envelope.
func (e GeneralEnvelope) String() string {
	data, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(data)
}
