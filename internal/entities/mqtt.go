package entities

import (
	"context"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"climate_guard/internal/logger"
)

const (
	connectTimeout      = 10 * time.Second
	commandTimeout      = 5 * time.Second
	connectRetryBackoff = 5 * time.Second
	disconnectQuiesceMs = 1000
)

// Conn is the MQTT-backed transport: it feeds a Store with entity state
// messages and dispatches ON/OFF commands to targets.
//
// Topic layout, relative to the configured prefix:
//
//	<prefix>/state/<entity_id>    JSON {"state": ..., "attributes": {...}}
//	<prefix>/command/<target_id>  "ON" | "OFF"
type Conn struct {
	client paho.Client
	prefix string
	store  *Store
	log    *logger.Logger
}

// Connect dials the broker and subscribes to the state topic tree. Retained
// state messages seed the store before the first evaluation runs.
func Connect(broker, clientID, prefix string, store *Store, log *logger.Logger) (*Conn, error) {
	c := &Conn{prefix: strings.TrimSuffix(prefix, "/"), store: store, log: log}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryBackoff).
		SetOnConnectHandler(func(cl paho.Client) {
			// Resubscribe on every (re)connect.
			topic := c.prefix + "/state/#"
			if token := cl.Subscribe(topic, 1, c.onStateMessage); token.Wait() && token.Error() != nil {
				log.Errorw("mqtt subscribe failed", "topic", topic, "err", token.Error())
			}
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to broker %q: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker %q: %w", broker, err)
	}
	c.client = client
	return c, nil
}

func (c *Conn) onStateMessage(_ paho.Client, msg paho.Message) {
	entityID := strings.TrimPrefix(msg.Topic(), c.prefix+"/state/")
	if entityID == "" || entityID == msg.Topic() {
		return
	}
	st, ok, err := parseStatePayload(entityID, msg.Payload())
	if err != nil {
		c.log.Warnw("dropping malformed state message", "entity", entityID, "err", err)
		return
	}
	if !ok {
		c.store.Clear(entityID)
		return
	}
	c.store.Set(st)
}

// TurnOn publishes an awaited ON command. QoS 1: a running target must not
// miss its re-assertion pulse.
func (c *Conn) TurnOn(ctx context.Context, target string) error {
	token := c.client.Publish(c.commandTopic(target), 1, false, "ON")
	timeout := commandTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("turn on %q: publish timeout", target)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("turn on %q: %w", target, err)
	}
	return nil
}

// TurnOff publishes a fire-and-forget OFF command. Not awaited; the caller
// never observes failure.
func (c *Conn) TurnOff(target string) {
	c.client.Publish(c.commandTopic(target), 0, false, "OFF")
}

func (c *Conn) commandTopic(target string) string {
	return c.prefix + "/command/" + target
}

// Close disconnects from the broker.
func (c *Conn) Close() {
	c.client.Disconnect(disconnectQuiesceMs)
}
