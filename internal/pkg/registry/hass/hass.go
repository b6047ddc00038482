// Package hass announces tracked switches to Home Assistant over MQTT
// discovery and relays command-topic messages back into the bridge.
package hass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/anicoll/switchbridge/internal/pkg/contxt"
	"github.com/anicoll/switchbridge/internal/pkg/model"
)

const (
	payloadOn  = "ON"
	payloadOff = "OFF"

	publishTimeout = time.Second * 5
)

// Commander is the host-facing command surface the announcer feeds when a
// command topic fires.
type Commander interface {
	SetSwitch(ctx context.Context, index int, on bool) (bool, error)
}

type Announcer struct {
	client    paho_mqtt.Client
	prefix    string
	commander Commander
	logger    *zap.Logger
	lastState sync.Map // uuid -> bool, suppresses unchanged state publishes
}

func New(client paho_mqtt.Client, commander Commander, opts ...Option) *Announcer {
	a := &Announcer{
		client:    client,
		prefix:    "homeassistant",
		commander: commander,
		logger:    zap.L(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

type Option func(*Announcer)

func WithDiscoveryPrefix(prefix string) Option {
	return func(a *Announcer) {
		a.prefix = prefix
	}
}

func (a *Announcer) Connect() error {
	token := a.client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("unable to connect to mqtt broker in time")
	}
	return token.Error()
}

type discoveryMessage struct {
	Tilda        string          `json:"~"`
	Name         string          `json:"name"`
	UniqueID     string          `json:"unique_id"`
	StateTopic   string          `json:"state_topic"`
	CommandTopic string          `json:"command_topic"`
	PayloadOn    string          `json:"payload_on"`
	PayloadOff   string          `json:"payload_off"`
	Device       discoveryDevice `json:"device"`
}

type discoveryDevice struct {
	Name        string   `json:"name"`
	Identifiers []string `json:"identifiers"`
}

func (a *Announcer) Register(ctx context.Context, entries []model.Entry) error {
	for _, entry := range entries {
		if err := a.publishConfig(entry); err != nil {
			return err
		}
		if err := a.subscribeCommands(entry); err != nil {
			return err
		}
	}
	return nil
}

func (a *Announcer) Update(ctx context.Context, entries []model.Entry) error {
	for _, entry := range entries {
		if err := a.publishConfig(entry); err != nil {
			return err
		}
		// A confirmed entry can be flowing through a fresh session after a
		// restart; resubscribing keeps the command topic live either way.
		if err := a.subscribeCommands(entry); err != nil {
			return err
		}
	}
	return nil
}

func (a *Announcer) Unregister(ctx context.Context, entries []model.Entry) error {
	for _, entry := range entries {
		token := a.client.Unsubscribe(a.baseTopic(entry) + "/set")
		if err := waitToken(token); err != nil {
			return err
		}
		// Empty retained payload removes the discovery entry.
		token = a.client.Publish(a.baseTopic(entry)+"/config", 1, true, []byte{})
		if err := waitToken(token); err != nil {
			return err
		}
		a.lastState.Delete(entry.UUID)
	}
	return nil
}

func (a *Announcer) AnnounceState(ctx context.Context, entry model.Entry, on bool) error {
	if prev, ok := a.lastState.Load(entry.UUID); ok && prev.(bool) == on {
		return nil
	}
	payload := payloadOff
	if on {
		payload = payloadOn
	}
	token := a.client.Publish(a.baseTopic(entry)+"/state", 0, false, []byte(payload))
	if err := waitToken(token); err != nil {
		return err
	}
	a.lastState.Store(entry.UUID, on)
	return nil
}

func (a *Announcer) publishConfig(entry model.Entry) error {
	base := a.baseTopic(entry)
	payload, err := json.Marshal(discoveryMessage{
		Tilda:        base,
		Name:         entry.DisplayName,
		UniqueID:     entry.UUID,
		StateTopic:   "~/state",
		CommandTopic: "~/set",
		PayloadOn:    payloadOn,
		PayloadOff:   payloadOff,
		Device: discoveryDevice{
			Name:        entry.DisplayName,
			Identifiers: []string{entry.Context.DeviceID},
		},
	})
	if err != nil {
		return err
	}
	return waitToken(a.client.Publish(base+"/config", 1, true, payload))
}

func (a *Announcer) subscribeCommands(entry model.Entry) error {
	index := entry.Context.Index
	uuid := entry.UUID
	token := a.client.Subscribe(a.baseTopic(entry)+"/set", 1, func(_ paho_mqtt.Client, msg paho_mqtt.Message) {
		on := strings.EqualFold(string(msg.Payload()), payloadOn)
		actual, err := a.commander.SetSwitch(contxt.NewContext(time.Second*10), index, on)
		if err != nil {
			a.logger.Error("command topic dispatch failed",
				zap.Error(err), zap.String("uuid", uuid), zap.Int("index", index), zap.Bool("requested", on))
			return
		}
		a.logger.Debug("command topic dispatched",
			zap.String("uuid", uuid), zap.Int("index", index), zap.Bool("requested", on), zap.Bool("actual", actual))
	})
	return waitToken(token)
}

func (a *Announcer) baseTopic(entry model.Entry) string {
	identifier := strings.Replace(slug.Make(entry.Context.SerialKey), "-", "_", -1)
	return fmt.Sprintf("%s/switch/%s", a.prefix, identifier)
}

func waitToken(token paho_mqtt.Token) error {
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("mqtt operation timed out")
	}
	return token.Error()
}
