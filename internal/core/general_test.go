package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type memStore struct {
	blobs   map[string][]byte
	saves   int
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (m *memStore) Get(path string) ([]byte, error) {
	b, ok := m.blobs[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}

func (m *memStore) Save(path string, blob []byte) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.blobs[path] = blob
	return nil
}

type recordingSender struct {
	msgs []string
}

func (r *recordingSender) Send(msg string) int {
	r.msgs = append(r.msgs, msg)
	return 1
}

func TestLoadGeneralSettings_Missing(t *testing.T) {
	st := newMemStore()
	g := LoadGeneralSettings(st, nil)

	if st.saves != 1 {
		t.Errorf("saves = %d, want 1", st.saves)
	}
	if _, ok := st.blobs[GeneralSettingsPath]; !ok {
		t.Error("defaults were not written back")
	}
	if g.ModuleEnabled(ModuleName) {
		t.Error("module enabled by default")
	}
}

func TestLoadGeneralSettings_Existing(t *testing.T) {
	st := newMemStore()
	st.blobs[GeneralSettingsPath] = []byte(`{"enabled":{"Video Conference":true},"is_elevated":true}`)
	g := LoadGeneralSettings(st, nil)

	if st.saves != 0 {
		t.Errorf("saves = %d, want 0", st.saves)
	}
	if !g.ModuleEnabled(ModuleName) || !g.IsElevated() {
		t.Errorf("data = %+v", g.Data())
	}
}

func TestGeneralSettings_SetModuleEnabled(t *testing.T) {
	st := newMemStore()
	snd := &recordingSender{}
	g := LoadGeneralSettings(st, snd)
	st.saves = 0

	if g.SetModuleEnabled(ModuleName, false) {
		t.Error("disabling an absent module reported change")
	}
	if !g.SetModuleEnabled(ModuleName, true) {
		t.Fatal("enable reported no change")
	}
	if g.SetModuleEnabled(ModuleName, true) {
		t.Error("repeated enable reported change")
	}

	if st.saves != 1 {
		t.Errorf("saves = %d, want 1", st.saves)
	}
	if len(snd.msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(snd.msgs))
	}

	var env GeneralEnvelope
	if err := json.Unmarshal([]byte(snd.msgs[0]), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if !env.General.Enabled[ModuleName] {
		t.Errorf("envelope = %s", snd.msgs[0])
	}
}

func TestGeneralSettings_SaveFailureStillNotifies(t *testing.T) {
	st := newMemStore()
	snd := &recordingSender{}
	g := LoadGeneralSettings(st, snd)
	st.saveErr = errors.New("disk full")

	g.SetModuleEnabled(ModuleName, true)

	if len(snd.msgs) != 1 {
		t.Errorf("sent %d messages, want 1", len(snd.msgs))
	}
	if err := g.LastError(); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("LastError() = %v", err)
	}
	if !g.ModuleEnabled(ModuleName) {
		t.Error("in-memory value rolled back")
	}
}

func TestGeneralSettings_DataIsCopy(t *testing.T) {
	g := LoadGeneralSettings(newMemStore(), nil)
	d := g.Data()
	d.Enabled[ModuleName] = true
	if g.ModuleEnabled(ModuleName) {
		t.Error("Data() exposed internal map")
	}
}

func TestEventBus_PublishSubscribe(t *testing.T) {
	eb := NewEventBus()
	sub := eb.Subscribe(CommitFailedEvent)

	eb.Publish(Event{Type: SettingsCommittedEvent})
	eb.Publish(Event{Type: CommitFailedEvent, Payload: "x"})

	select {
	case ev := <-sub:
		if ev.Type != CommitFailedEvent {
			t.Errorf("got %s", ev.Type)
		}
	default:
		t.Fatal("no event delivered")
	}

	eb.Unsubscribe(sub, CommitFailedEvent)
	eb.Publish(Event{Type: CommitFailedEvent})
	select {
	case ev := <-sub:
		t.Errorf("unsubscribed channel got %s", ev.Type)
	default:
	}

	var nilBus *EventBus
	nilBus.Publish(Event{Type: CommitFailedEvent})
}
