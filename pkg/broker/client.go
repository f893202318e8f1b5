package broker

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// Connect dials an MQTT broker and waits for the session to be up. onConnect,
// when set, runs after every (re)connect, which is where subscriptions
// belong.
func Connect(brokerURL, clientID string, onConnect func(paho.Client)) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger().Warn("MQTT connection lost", zap.String("client_id", clientID), zap.Error(err))
		})
	if onConnect != nil {
		opts.SetOnConnectHandler(onConnect)
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", brokerURL, err)
	}

	logger().Info("MQTT client connected", zap.String("broker", brokerURL), zap.String("client_id", clientID))
	return client, nil
}
