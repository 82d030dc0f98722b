// Package mqtt mirrors settings notifications to an MQTT broker and accepts
// setter commands on `<prefix>/<field>/set` topics.
package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"settingsync/internal/config"
	"settingsync/internal/core"
	"settingsync/internal/option"
)

// Client publishes snapshots as a notification channel.
type Client struct {
	client   mqtt.Client
	cfg      config.MQTTConfig
	commands core.CommandChannel
	prefix   string
}

// NewClient creates a client, or returns nil when MQTT is disabled.
func NewClient(cfg config.MQTTConfig, commands core.CommandChannel) *Client {
	if !cfg.Enabled {
		return nil
	}

	prefix := strings.TrimSuffix(cfg.TopicPrefix, "/")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)

	opts.SetKeepAlive(10 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)
	// Keep retrying the first connect so a broker that starts later is picked up.
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetWill(prefix+"/availability", "offline", 1, true)

	c := &Client{
		cfg:      cfg,
		commands: commands,
		prefix:   prefix,
	}

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("[MQTT] Connection lost: %v. Retrying in background...", err)
	})
	opts.SetReconnectingHandler(func(client mqtt.Client, options *mqtt.ClientOptions) {
		log.Println("[MQTT] Attempting to reconnect...")
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect starts the connection loop and waits for the first attempt.
func (c *Client) Connect() error {
	if c == nil || c.client == nil {
		return nil
	}
	log.Printf("[MQTT] Starting connection loop to %s...", c.cfg.Broker)

	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		log.Printf("[MQTT] Initial connection error: %v", token.Error())
		return token.Error()
	}
	return nil
}

// Disconnect publishes the offline status and closes the connection.
func (c *Client) Disconnect() {
	if c == nil || c.client == nil || !c.client.IsConnected() {
		return
	}
	log.Println("[MQTT] Disconnecting...")

	token := c.client.Publish(c.prefix+"/availability", 0, true, "offline")
	if token.WaitTimeout(2 * time.Second) {
		if token.Error() != nil {
			log.Printf("[MQTT] Warning: failed to publish offline status: %v", token.Error())
		}
	} else {
		log.Println("[MQTT] Warning: timed out publishing offline status")
	}

	c.client.Disconnect(250)
	log.Println("[MQTT] Disconnected.")
}

// Send publishes msg, retained, on `<prefix>/settings`. It returns 1 when the
// message was handed to the client and 0 when not connected.
func (c *Client) Send(msg string) int {
	if c == nil || c.client == nil || !c.client.IsConnected() {
		return 0
	}
	c.publish("settings", msg, true)
	return 1
}

func (c *Client) publish(subtopic string, payload interface{}, retained bool) {
	topic := fmt.Sprintf("%s/%s", c.prefix, subtopic)
	token := c.client.Publish(topic, 1, retained, fmt.Sprintf("%v", payload))

	// Wait off the caller's goroutine.
	go func() {
		if token.WaitTimeout(5 * time.Second) {
			if token.Error() != nil {
				log.Printf("[MQTT] Publish error to %s: %v", topic, token.Error())
			}
		} else {
			log.Printf("[MQTT] Timeout publishing to %s", topic)
		}
	}()
}

// commandTopics are subscribed below the prefix.
var commandTopics = []string{
	"enabled/set",
	"camera/set",
	"microphone/set",
	"hotkey/+/set",
	"toolbar_position/set",
	"toolbar_monitor/set",
	"hide_toolbar/set",
	"overlay/select",
	"overlay/clear",
}

func (c *Client) onConnect(client mqtt.Client) {
	log.Println("[MQTT] Connected to broker.")

	for _, sub := range commandTopics {
		topic := fmt.Sprintf("%s/%s", c.prefix, sub)
		if token := client.Subscribe(topic, 1, c.handleMessage); token.Wait() && token.Error() != nil {
			log.Printf("[MQTT] Error subscribing to %s: %v", topic, token.Error())
		} else {
			log.Printf("[MQTT] Subscribed to %s", topic)
		}
	}

	go c.publish("availability", "online", true)
}

func (c *Client) handleMessage(client mqtt.Client, msg mqtt.Message) {
	sub := strings.TrimPrefix(msg.Topic(), c.prefix+"/")
	cmd, err := ParseCommand(sub, msg.Payload())
	if err != nil {
		log.Printf("[MQTT] Ignoring %s: %v", msg.Topic(), err)
		return
	}
	c.commands <- cmd
}

// ParseCommand turns a topic below the prefix and its payload into a command.
func ParseCommand(sub string, payload []byte) (core.Command, error) {
	text := strings.TrimSpace(string(payload))

	switch sub {
	case "enabled/set":
		b, err := parseBool(text)
		if err != nil {
			return core.Command{}, err
		}
		return core.Command{Type: core.CmdSetEnabled, Payload: map[string]interface{}{"enabled": b}}, nil

	case "hide_toolbar/set":
		b, err := parseBool(text)
		if err != nil {
			return core.Command{}, err
		}
		return core.Command{Type: core.CmdSetHideToolbar, Payload: map[string]interface{}{"hide": b}}, nil

	case "camera/set", "microphone/set":
		idx, err := strconv.Atoi(text)
		if err != nil {
			return core.Command{}, fmt.Errorf("index %q: %w", text, err)
		}
		t := core.CmdSelectCamera
		if sub == "microphone/set" {
			t = core.CmdSelectMicrophone
		}
		return core.Command{Type: t, Payload: map[string]interface{}{"index": idx}}, nil

	case "toolbar_position/set":
		idx, err := parseOption(option.ToolbarPosition, text)
		if err != nil {
			return core.Command{}, err
		}
		return core.Command{Type: core.CmdSetToolbarPosition, Payload: map[string]interface{}{"index": idx}}, nil

	case "toolbar_monitor/set":
		idx, err := parseOption(option.ToolbarMonitor, text)
		if err != nil {
			return core.Command{}, err
		}
		return core.Command{Type: core.CmdSetToolbarMonitor, Payload: map[string]interface{}{"index": idx}}, nil

	case "overlay/select":
		return core.Command{Type: core.CmdSelectOverlayImage}, nil

	case "overlay/clear":
		return core.Command{Type: core.CmdClearOverlayImage}, nil
	}

	if strings.HasPrefix(sub, "hotkey/") && strings.HasSuffix(sub, "/set") {
		kind := strings.TrimSuffix(strings.TrimPrefix(sub, "hotkey/"), "/set")
		if _, ok := core.ParseHotkeyKind(kind); !ok {
			return core.Command{}, fmt.Errorf("unknown hotkey %q", kind)
		}
		var hk map[string]interface{}
		if err := json.Unmarshal(payload, &hk); err != nil {
			return core.Command{}, fmt.Errorf("hotkey payload: %w", err)
		}
		return core.Command{Type: core.CmdSetHotkey, Payload: map[string]interface{}{"kind": kind, "hotkey": hk}}, nil
	}

	return core.Command{}, fmt.Errorf("unknown topic %q", sub)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

// parseOption accepts either a selector index or the persisted symbol.
func parseOption(t *option.Table, s string) (int, error) {
	if idx, err := strconv.Atoi(s); err == nil {
		if !t.Valid(idx) {
			return 0, fmt.Errorf("index %d out of range", idx)
		}
		return idx, nil
	}
	if idx, ok := t.Decode(s); ok {
		return idx, nil
	}
	return 0, fmt.Errorf("unknown option %q", s)
}
