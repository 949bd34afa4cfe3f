package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/hearthwise/hearth-core/internal/infrastructure/config"
)

// Connection timeouts and limits.
const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultSubscribeTimeout  = 5 * time.Second
	defaultDisconnectQuiesce = 250 // milliseconds
	defaultKeepAlive         = 30 * time.Second
	defaultPingTimeout       = 10 * time.Second

	// maxPayloadSize rejects oversized publishes before they reach the broker.
	maxPayloadSize = 1024 * 1024 // 1MB
)

// buildClientOptions constructs paho client options from Hearth config.
//
// Paho's auto-reconnect and connect-retry are disabled: the Client owns its
// reconnect policy so the backoff schedule, attempt budget, and restart
// semantics are under local control rather than the library's.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	brokerURL := fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
	opts.AddBroker(brokerURL)

	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})
	}

	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetPingTimeout(defaultPingTimeout)

	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)

	return opts
}

// configureLWT sets up the Last Will and Testament message.
//
// The LWT is published by the broker if the backend disconnects without
// sending a graceful offline message, letting UIs distinguish a crash from
// a clean shutdown.
func configureLWT(opts *pahomqtt.ClientOptions, cfg config.MQTTConfig) {
	topic := Topics{Prefix: cfg.TopicPrefix}.SystemStatus()

	payload, _ := json.Marshal(map[string]any{
		"online":    false,
		"client_id": cfg.Broker.ClientID,
		"reason":    "unexpected_disconnect",
	})

	opts.SetWill(topic, string(payload), byte(cfg.QoS), true)
}

// buildOnlinePayload constructs the retained online status message.
func buildOnlinePayload(clientID string) []byte {
	payload, _ := json.Marshal(map[string]any{
		"online":    true,
		"client_id": clientID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	return payload
}

// buildOfflinePayload constructs the retained graceful-offline status message.
func buildOfflinePayload(clientID string) []byte {
	payload, _ := json.Marshal(map[string]any{
		"online":    false,
		"client_id": clientID,
		"reason":    "shutdown",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	return payload
}
