package services

import (
	"context"
	"encoding/json"
	"fmt"

	"sosline/internal/metrics"
	"sosline/pkg/cache"
	"sosline/pkg/logger"
	"sosline/pkg/websocket"
)

// RoomPublisher forwards a room broadcast to other server instances. Local
// members are always served by the hub directly.
type RoomPublisher interface {
	Publish(ctx context.Context, rooms []string, frame []byte) error
}

type relayMessage struct {
	Origin string          `json:"origin"`
	Rooms  []string        `json:"rooms"`
	Frame  json.RawMessage `json:"frame"`
}

// ClusterRelay bridges the local hub to a Redis channel shared by every
// instance. Messages an instance published itself are ignored on receipt.
type ClusterRelay struct {
	cache      *cache.RedisCache
	channel    string
	instanceID string
	hub        *websocket.Hub
	logger     *logger.Logger
	metrics    *metrics.Metrics
	ready      chan struct{}
}

func NewClusterRelay(c *cache.RedisCache, channel, instanceID string, hub *websocket.Hub, log *logger.Logger, m *metrics.Metrics) *ClusterRelay {
	return &ClusterRelay{
		cache:      c,
		channel:    channel,
		instanceID: instanceID,
		hub:        hub,
		logger:     log.WithField("component", "cluster_relay"),
		metrics:    m,
		ready:      make(chan struct{}),
	}
}

func (r *ClusterRelay) Publish(ctx context.Context, rooms []string, frame []byte) error {
	payload, err := json.Marshal(relayMessage{Origin: r.instanceID, Rooms: rooms, Frame: frame})
	if err != nil {
		return fmt.Errorf("failed to encode relay message: %w", err)
	}

	if err := r.cache.Publish(ctx, r.channel, payload); err != nil {
		return fmt.Errorf("failed to publish relay message: %w", err)
	}

	r.metrics.RelayMessages.WithLabelValues("out").Inc()
	return nil
}

// Ready is closed once the subscription is established.
func (r *ClusterRelay) Ready() <-chan struct{} {
	return r.ready
}

// Run consumes the shared channel until ctx is done.
func (r *ClusterRelay) Run(ctx context.Context) error {
	sub := r.cache.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	close(r.ready)
	r.logger.Infof("Relaying rooms over %s", r.channel)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.deliver([]byte(msg.Payload))
		}
	}
}

func (r *ClusterRelay) deliver(payload []byte) {
	var msg relayMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.logger.WithError(err).Warn("Dropping malformed relay message")
		return
	}

	if msg.Origin == r.instanceID || len(msg.Rooms) == 0 {
		return
	}

	r.metrics.RelayMessages.WithLabelValues("in").Inc()
	delivered := r.hub.BroadcastRooms(msg.Rooms, msg.Frame, nil)
	r.logger.Debugf("Relayed frame from %s to %d local sessions", msg.Origin, delivered)
}
