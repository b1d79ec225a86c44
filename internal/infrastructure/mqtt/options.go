package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/mqtt-media-bridge/internal/infrastructure/config"
)

// Connection constants.
const (
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout also bounds subscribe and unsubscribe acknowledgements.
	defaultPublishTimeout = 5 * time.Second

	defaultDisconnectQuiesce = 1000 // milliseconds

	defaultKeepAlive = 60 * time.Second

	maxQoS = 2

	tlsMinVersion = tls.VersionTLS12
)

// Bridge status values published on the status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

func brokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
}

// buildClientOptions maps the bridge MQTT config onto paho options.
//
// Clean sessions are used: the bridge restores its own subscriptions after
// reconnect and relies on retained discovery messages for state.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)
	opts.SetOrderMatters(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// statusPayload is the retained JSON document on the bridge status topic.
type statusPayload struct {
	Status    string `json:"status"`
	BridgeID  string `json:"bridge_id"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func buildStatusPayload(status, reason, bridgeID, clientID string) string {
	data, err := json.Marshal(statusPayload{
		Status:    status,
		BridgeID:  bridgeID,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		// A struct of strings always marshals.
		return fmt.Sprintf(`{"status":%q}`, status)
	}
	return string(data)
}

// configureLWT registers the broker-published offline status used when the
// bridge disconnects without calling Close.
func configureLWT(opts *pahomqtt.ClientOptions, bridgeID, clientID string) {
	opts.SetWill(
		Topics{}.BridgeStatus(bridgeID),
		buildStatusPayload(StatusOffline, "unexpected_disconnect", bridgeID, clientID),
		1,
		true,
	)
}

func buildOnlinePayload(bridgeID, clientID string) string {
	return buildStatusPayload(StatusOnline, "", bridgeID, clientID)
}

func buildOfflinePayload(bridgeID, clientID string) string {
	return buildStatusPayload(StatusOffline, "graceful_shutdown", bridgeID, clientID)
}
