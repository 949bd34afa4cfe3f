package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/hearthwise/hearth-core/internal/infrastructure/config"
)

// ConnState describes the broker connection lifecycle.
//
// Transitions:
//
//	Disconnected → Connecting → Connected
//	Connected → Disconnected            (clean close)
//	Connected → Reconnecting → Connecting (unexpected drop)
//	Reconnecting → Disconnected          (retries exhausted; Restart required)
type ConnState string

// Connection states.
const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
)

// Status is a snapshot of the connection for monitoring.
type Status struct {
	State         ConnState `json:"state"`
	RetryCount    int       `json:"retry_count"`
	LastError     string    `json:"last_error,omitempty"`
	Subscriptions int       `json:"subscriptions"`
}

// Client wraps paho.mqtt.golang with Hearth-specific functionality.
//
// It owns the single broker connection, tracks subscriptions for restoration
// after reconnect, and manages its own bounded exponential-backoff reconnect
// loop. Paho's built-in auto-reconnect is disabled so the retry policy
// (doubling delay, capped, bounded attempt count, cancellable) lives here.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client  pahomqtt.Client
	options *pahomqtt.ClientOptions
	cfg     config.MQTTConfig

	// subscriptions tracks active subscriptions for re-subscription on reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	// state tracks the connection lifecycle; retryCount counts consecutive
	// failed reconnect attempts since the last successful connection.
	state      ConnState
	retryCount int
	lastErr    error
	stateMu    sync.RWMutex

	// reconnectTimer is the pending backoff timer; nil when none is scheduled.
	// closed is set by Close and blocks further reconnect attempts.
	reconnectTimer *time.Timer
	closed         bool
	timerMu        sync.Mutex

	// Callbacks for connection events (optional, set via SetOnConnect/SetOnDisconnect).
	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	// logger for error/warn logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}

// subscription holds subscription details for re-subscription on reconnect.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked on their own goroutine, off the network read loop,
// so a slow handler never stalls message delivery.
//
// Parameters:
//   - topic: The topic the message was received on (wildcards expanded)
//   - payload: The raw message payload (typically JSON)
//
// Returns:
//   - error: Logged but does not affect message acknowledgment
type MessageHandler func(topic string, payload []byte) error

// Connect establishes a connection to the MQTT broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Configures Last Will and Testament (LWT) for offline detection
//  3. Attempts initial connection with timeout
//  4. Publishes online status to {prefix}/system/status
//
// A failed initial connection returns an error with the failure class
// (credentials, protocol, unreachable); the caller decides whether to retry.
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If initial connection fails within timeout
func Connect(cfg config.MQTTConfig) (*Client, error) {
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg)

	c := &Client{
		cfg:           cfg,
		options:       opts,
		subscriptions: make(map[string]subscription),
		state:         StateDisconnected,
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(err)
	})

	c.client = pahomqtt.NewClient(opts)

	c.setState(StateConnecting)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		c.setState(StateDisconnected)
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		c.setState(StateDisconnected)
		c.setLastError(err)
		return nil, fmt.Errorf("%w (%s): %w", ErrConnectionFailed, ClassifyConnectError(err), err)
	}

	// The OnConnectHandler runs asynchronously and may not have executed
	// yet, so set the state here to ensure IsConnected() returns true.
	c.setState(StateConnected)

	return c, nil
}

// handleConnect is called when a connection is established (initial or reconnect).
func (c *Client) handleConnect() {
	c.stateMu.Lock()
	c.state = StateConnected
	c.retryCount = 0
	c.lastErr = nil
	c.stateMu.Unlock()

	c.restoreSubscriptions()
	c.publishOnlineStatus()

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleConnectionLost is called when the connection drops unexpectedly.
// A clean Close does not reach here; paho only fires this for failures.
func (c *Client) handleConnectionLost(err error) {
	c.setLastError(err)

	c.timerMu.Lock()
	closed := c.closed
	c.timerMu.Unlock()

	if closed {
		c.setState(StateDisconnected)
		return
	}

	c.setState(StateReconnecting)
	if logger := c.getLogger(); logger != nil {
		logger.Warn("MQTT connection lost", "error", err)
	}

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}

	c.scheduleReconnect()
}

// scheduleReconnect arms the backoff timer for the next reconnect attempt.
//
// The delay doubles each attempt from the configured initial delay up to the
// cap. Once the attempt budget is spent the client transitions to
// Disconnected and stays there until Restart is called: an operator
// decision, not endless self-healing.
func (c *Client) scheduleReconnect() {
	c.stateMu.Lock()
	c.retryCount++
	attempt := c.retryCount
	c.stateMu.Unlock()

	maxAttempts := c.cfg.Reconnect.MaxAttempts
	if maxAttempts > 0 && attempt > maxAttempts {
		c.setState(StateDisconnected)
		if logger := c.getLogger(); logger != nil {
			logger.Error("MQTT reconnect attempts exhausted; explicit restart required",
				"attempts", maxAttempts,
			)
		}
		return
	}

	delay := backoffDelay(attempt,
		time.Duration(c.cfg.Reconnect.InitialDelay)*time.Second,
		time.Duration(c.cfg.Reconnect.MaxDelay)*time.Second,
	)

	if logger := c.getLogger(); logger != nil {
		logger.Info("MQTT reconnect scheduled", "attempt", attempt, "delay", delay)
	}

	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.closed {
		return
	}
	c.reconnectTimer = time.AfterFunc(delay, c.attemptReconnect)
}

// attemptReconnect performs one reconnect attempt after the backoff delay.
func (c *Client) attemptReconnect() {
	c.timerMu.Lock()
	closed := c.closed
	c.reconnectTimer = nil
	c.timerMu.Unlock()
	if closed {
		return
	}

	c.setState(StateConnecting)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		c.setLastError(ErrTimeout)
		c.setState(StateReconnecting)
		c.scheduleReconnect()
		return
	}
	if err := token.Error(); err != nil {
		c.setLastError(err)
		c.setState(StateReconnecting)
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT reconnect failed",
				"class", ClassifyConnectError(err),
				"error", err,
			)
		}
		c.scheduleReconnect()
		return
	}
	// Success: handleConnect fires via OnConnectHandler and resets counters.
}

// Restart re-enables reconnection after Close or after the retry budget was
// exhausted, and performs an immediate connection attempt.
//
// Returns:
//   - error: If the connection attempt fails (further retries are scheduled
//     by the normal backoff path only on later unexpected disconnects)
func (c *Client) Restart() error {
	c.timerMu.Lock()
	c.closed = false
	c.timerMu.Unlock()

	c.stateMu.Lock()
	c.retryCount = 0
	c.stateMu.Unlock()

	c.setState(StateConnecting)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		c.setState(StateDisconnected)
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		c.setState(StateDisconnected)
		c.setLastError(err)
		return fmt.Errorf("%w (%s): %w", ErrConnectionFailed, ClassifyConnectError(err), err)
	}

	c.setState(StateConnected)
	return nil
}

// restoreSubscriptions re-subscribes to all tracked topics after reconnect.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		// Re-subscribe (ignore errors during reconnection)
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// publishOnlineStatus publishes the backend's online status to the system status topic.
func (c *Client) publishOnlineStatus() {
	topic := Topics{Prefix: c.cfg.TopicPrefix}.SystemStatus()
	payload := buildOnlinePayload(c.cfg.Broker.ClientID)
	c.client.Publish(topic, byte(c.cfg.QoS), true, payload)
}

// Close gracefully disconnects from the MQTT broker.
//
// It performs:
//  1. Cancels any pending reconnect timer (prevents reconnect storms after
//     deliberate shutdown)
//  2. Publishes graceful offline status (different from LWT crash status)
//  3. Disconnects from broker with a quiesce period
//
// Returns:
//   - error: If disconnect fails (connection already closed is not an error)
func (c *Client) Close() error {
	c.timerMu.Lock()
	c.closed = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.timerMu.Unlock()

	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		topic := Topics{Prefix: c.cfg.TopicPrefix}.SystemStatus()
		payload := buildOfflinePayload(c.cfg.Broker.ClientID)
		token := c.client.Publish(topic, byte(c.cfg.QoS), true, payload)
		token.WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setState(StateDisconnected)

	return nil
}

// HealthCheck verifies the MQTT connection is alive and functioning.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns whether the client currently holds a live connection.
func (c *Client) IsConnected() bool {
	c.stateMu.RLock()
	state := c.state
	c.stateMu.RUnlock()
	return state == StateConnected && c.client.IsConnected()
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Status returns a snapshot of the connection for monitoring.
func (c *Client) Status() Status {
	c.stateMu.RLock()
	s := Status{
		State:      c.state,
		RetryCount: c.retryCount,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	c.stateMu.RUnlock()

	s.Subscriptions = c.SubscriptionCount()
	return s
}

// SetOnConnect sets a callback to be invoked when connection is established.
// This is called on initial connect and on every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback to be invoked when connection is lost
// unexpectedly. The error parameter describes why.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for error and panic logging.
// If not set, errors in handlers are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

func (c *Client) setState(state ConnState) {
	c.stateMu.Lock()
	c.state = state
	c.stateMu.Unlock()
}

func (c *Client) setLastError(err error) {
	c.stateMu.Lock()
	c.lastErr = err
	c.stateMu.Unlock()
}

// wrapHandler wraps a MessageHandler with asynchronous dispatch and panic
// recovery. The goroutine hop keeps handler work off the network read loop.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		topic := msg.Topic()
		payload := msg.Payload()

		go func() {
			defer func() {
				if r := recover(); r != nil {
					if logger := c.getLogger(); logger != nil {
						logger.Error("MQTT handler panic recovered",
							"topic", topic,
							"panic", r,
						)
					}
				}
			}()

			if err := handler(topic, payload); err != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Warn("MQTT handler returned error",
						"topic", topic,
						"error", err,
					)
				}
			}
		}()
	}
}

// backoffDelay computes the reconnect delay for the given attempt (1-based).
// The sequence doubles from initial and is capped at maxDelay.
func backoffDelay(attempt int, initial, maxDelay time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}
