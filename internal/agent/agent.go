// Package agent wires the settings engine to its store, notification
// channels and command sources, and runs the central command loop.
package agent

import (
	"context"
	"fmt"
	"log"
	"sync"

	"settingsync/internal/channel"
	"settingsync/internal/config"
	"settingsync/internal/core"
	"settingsync/internal/devices"
	"settingsync/internal/engine"
	"settingsync/internal/mqtt"
	"settingsync/internal/picker"
	"settingsync/internal/scheduler"
	"settingsync/internal/server"
	"settingsync/internal/store"
)

type Agent struct {
	ctx    context.Context
	cancel context.CancelFunc
	config *config.Config
	wg     sync.WaitGroup

	eventBus       *core.EventBus
	commandChannel core.CommandChannel

	store      *store.FileStore
	general    *core.GeneralSettings
	engine     *engine.Engine
	scheduler  *scheduler.Scheduler
	server     *server.Server
	mqttClient *mqtt.Client
}

func NewAgent(cfg *config.Config) (*Agent, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &Agent{
		ctx:            ctx,
		cancel:         cancel,
		config:         cfg,
		eventBus:       core.NewEventBus(),
		commandChannel: make(core.CommandChannel, 20),
		store:          store.NewFileStore(cfg.Store.Root),
	}

	provider, err := NewProvider(cfg.Devices)
	if err != nil {
		cancel()
		return nil, err
	}

	// The server asks for snapshots lazily, so it can exist before the engine.
	a.server = server.NewServer(
		func() core.Snapshot { return a.engine.State() },
		a.commandChannel,
		cfg.Server.Port,
		cfg.Server.AllowedOrigins,
	)
	a.mqttClient = mqtt.NewClient(cfg.MQTT, a.commandChannel)

	var notify channel.Channel = a.server.Hub
	if a.mqttClient != nil {
		notify = channel.Multi{a.server.Hub, a.mqttClient}
	}
	notify = channel.NewThrottled(ctx, notify, cfg.Notify.RateLimit, cfg.Notify.RateBurst)

	a.general = core.LoadGeneralSettings(a.store, notify)

	a.engine, err = engine.Load(engine.Options{
		Store:        a.store,
		Channel:      notify,
		Devices:      provider,
		General:      a.general,
		Picker:       picker.Command{Name: cfg.Picker.Command, Args: cfg.Picker.Args},
		Events:       a.eventBus,
		SettingsPath: store.SubPath(cfg.Store.Subfolder, core.ModuleName),
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to load settings engine: %w", err)
	}

	a.scheduler = scheduler.NewScheduler(a.commandChannel, cfg.Schedule)

	return a, nil
}

// NewProvider returns the device source described by cfg.
func NewProvider(cfg config.DevicesConfig) (devices.Provider, error) {
	if cfg.Script != "" {
		return devices.NewLuaProvider(cfg.Script)
	}
	return devices.Static{CameraNames: cfg.Cameras, MicrophoneNames: cfg.Microphones}, nil
}

// Engine returns the settings engine.
func (a *Agent) Engine() *engine.Engine {
	return a.engine
}

// Run starts the agent orchestration loop.
func (a *Agent) Run() {
	// The hub must be running before the first commit, since sends block on it.
	a.server.Start(a.ctx)

	go a.listenEvents()

	if a.mqttClient != nil {
		go func() {
			if err := a.mqttClient.Connect(); err != nil {
				log.Printf("[Agent] MQTT Setup Error: %v", err)
			}
		}()
	}

	a.scheduler.Start()

	log.Printf("Agent running on http://localhost:%s", a.config.Server.Port)
	go func() {
		if err := a.server.ListenAndServe(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	// Orchestrator Central Command Loop
	log.Println("Agent orchestrator ready.")
	for {
		select {
		case <-a.ctx.Done():
			log.Println("Agent orchestrator shutting down...")
			return
		case cmd := <-a.commandChannel:
			a.handleCommand(cmd)
		}
	}
}

func (a *Agent) listenEvents() {
	types := []core.EventType{core.CommitFailedEvent, core.ModuleEnabledEvent, core.OverlayPickedEvent}
	sub := a.eventBus.Subscribe(types...)
	defer a.eventBus.Unsubscribe(sub, types...)

	for {
		select {
		case <-a.ctx.Done():
			return
		case event := <-sub:
			switch event.Type {
			case core.CommitFailedEvent:
				a.server.Hub.Broadcast(server.NewMessage(server.MsgCommitError, event.Payload))
			case core.ModuleEnabledEvent:
				a.server.Hub.Broadcast(server.NewMessage(server.MsgModuleEnabled, event.Payload))
			case core.OverlayPickedEvent:
				log.Printf("[Agent] Overlay image picked: %v", event.Payload)
			}
		}
	}
}

func (a *Agent) Shutdown() {
	a.scheduler.Stop()
	_ = a.server.Shutdown(context.Background())
	if a.mqttClient != nil {
		a.mqttClient.Disconnect()
	}
	a.cancel()
	a.wg.Wait()
}
