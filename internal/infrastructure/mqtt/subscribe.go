package mqtt

import (
	"fmt"
	"strings"
)

// Subscribe registers a handler for messages on the given topic.
//
// The subscription is tracked and automatically restored after reconnection.
// Topics may contain MQTT wildcards:
//   - "+" matches a single level (e.g., "hearth/devices/+/status")
//   - "#" matches all remaining levels (must be last)
//
// The handler is invoked asynchronously for each received message; a
// panicking handler is recovered and logged without affecting the
// connection or other subscriptions.
//
// Parameters:
//   - topic: Topic filter to subscribe to
//   - handler: Callback invoked for each received message
//
// Returns:
//   - error: ErrNotConnected if no connection, ErrSubscribeFailed on failure
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if err := validateTopicFilter(topic); err != nil {
		return err
	}

	qos := byte(c.cfg.QoS)
	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))

	if !token.WaitTimeout(defaultSubscribeTimeout) {
		return fmt.Errorf("%w: subscribe to %s", ErrTimeout, topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: topic %s: %w", ErrSubscribeFailed, topic, err)
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{
		topic:   topic,
		qos:     qos,
		handler: handler,
	}
	c.subMu.Unlock()

	return nil
}

// Unsubscribe removes the subscription for the given topic.
func (c *Client) Unsubscribe(topic string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Unsubscribe(topic)

	if !token.WaitTimeout(defaultSubscribeTimeout) {
		return fmt.Errorf("%w: unsubscribe from %s", ErrTimeout, topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: topic %s: %w", ErrUnsubscribeFailed, topic, err)
	}

	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()

	return nil
}

// SubscriptionCount returns the number of tracked subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// validateTopicFilter checks a subscription topic filter for structural
// validity. "#" must be the final level; "+" must occupy a whole level.
func validateTopicFilter(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	levels := strings.Split(topic, "/")
	for i, level := range levels {
		if strings.Contains(level, "#") {
			if level != "#" || i != len(levels)-1 {
				return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
			}
		}
		if strings.Contains(level, "+") && level != "+" {
			return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
		}
	}

	return nil
}
