package mqtt

import (
	"encoding/json"
	"fmt"
)

// Publish sends a message to the specified topic.
//
// The message is published with the configured QoS level. QoS 1 (at least
// once) is the default for all Hearth messages: commands must arrive, and
// the consumers tolerate duplicates.
//
// Parameters:
//   - topic: Full topic path (e.g., "hearth/devices/abc123/control")
//   - payload: Message payload (typically JSON)
//
// Returns:
//   - error: ErrNotConnected if no connection, ErrPublishFailed on failure,
//     ErrTimeout if the broker does not acknowledge in time
func (c *Client) Publish(topic string, payload []byte) error {
	return c.PublishWithOptions(topic, payload, byte(c.cfg.QoS), false)
}

// PublishRetained publishes a message with the retained flag set.
// The broker stores retained messages and delivers them to new subscribers.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.PublishWithOptions(topic, payload, byte(c.cfg.QoS), true)
}

// PublishJSON marshals v to JSON and publishes it to the topic.
func (c *Client) PublishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %w", ErrPublishFailed, err)
	}
	return c.Publish(topic, payload)
}

// PublishWithOptions publishes with explicit QoS and retained flag.
func (c *Client) PublishWithOptions(topic string, payload []byte, qos byte, retained bool) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if topic == "" {
		return ErrInvalidTopic
	}

	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes exceeds %d limit", ErrPayloadTooLarge, len(payload), maxPayloadSize)
	}

	token := c.client.Publish(topic, qos, retained, payload)

	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: publish to %s", ErrTimeout, topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: topic %s: %w", ErrPublishFailed, topic, err)
	}

	return nil
}
