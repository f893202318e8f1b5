// Package broker runs an in-process MQTT broker for development setups and
// dials MQTT clients for the packages that publish or subscribe.
package broker

import (
	"bytes"
	"fmt"
	"sync/atomic"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"go.uber.org/zap"
	"liyu1981.xyz/roomwatch-service/pkg/common"
)

type Broker struct {
	server *mqtt.Server
	addr   string
	hook   *connectionHook
}

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameIngest, zap.String("component", "broker"))
}

// Start listens on addr (host:port) and serves until Close.
func Start(addr string) (*Broker, error) {
	server := mqtt.New(&mqtt.Options{InlineClient: true})

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("failed to add auth hook: %w", err)
	}
	hook := &connectionHook{}
	if err := server.AddHook(hook, nil); err != nil {
		return nil, fmt.Errorf("failed to add connection hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "roomwatch-tcp", Address: addr})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("failed to add TCP listener: %w", err)
	}

	if err := server.Serve(); err != nil {
		return nil, fmt.Errorf("failed to start MQTT broker: %w", err)
	}

	logger().Info("Embedded MQTT broker listening", zap.String("addr", addr))
	return &Broker{server: server, addr: addr, hook: hook}, nil
}

func (b *Broker) Addr() string {
	return b.addr
}

// URL is the address in the form paho expects.
func (b *Broker) URL() string {
	return "tcp://" + b.addr
}

func (b *Broker) Clients() int64 {
	return b.hook.connected.Load()
}

func (b *Broker) Close() error {
	return b.server.Close()
}

type connectionHook struct {
	mqtt.HookBase
	connected atomic.Int64
}

func (h *connectionHook) ID() string {
	return "roomwatch-connections"
}

func (h *connectionHook) Provides(b byte) bool {
	return bytes.Contains([]byte{
		mqtt.OnConnect,
		mqtt.OnDisconnect,
	}, []byte{b})
}

func (h *connectionHook) OnConnect(cl *mqtt.Client, pk packets.Packet) error {
	h.connected.Add(1)
	logger().Debug("MQTT client connected", zap.String("client_id", cl.ID))
	return nil
}

func (h *connectionHook) OnDisconnect(cl *mqtt.Client, err error, expire bool) {
	h.connected.Add(-1)
	logger().Debug("MQTT client disconnected", zap.String("client_id", cl.ID), zap.Error(err))
}
