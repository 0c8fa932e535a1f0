package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/redis"
)

const (
	RealtimeEventNewOrder = "new_order"
	messageTypeNewOrder   = "NEW_ORDER"
)

// RealtimeMessage is the body pushed to a shop's channel.
type RealtimeMessage struct {
	Event     string    `json:"event"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Realtime pushes messages to shop channels over redis pub/sub.
type Realtime struct {
	publisher redis.Publisher
	prefix    string
}

func NewRealtime(publisher redis.Publisher, prefix string) *Realtime {
	return &Realtime{publisher: publisher, prefix: strings.Trim(strings.TrimSpace(prefix), ":")}
}

// Channel names the pub/sub channel for a shop.
func (r *Realtime) Channel(stationaryID uuid.UUID) string {
	return StationaryChannel(r.prefix, stationaryID)
}

// StationaryChannel is stationary_<id>, optionally namespaced by prefix.
func StationaryChannel(prefix string, stationaryID uuid.UUID) string {
	channel := "stationary_" + stationaryID.String()
	if prefix == "" {
		return channel
	}
	return prefix + ":" + channel
}

func (r *Realtime) PushNewOrder(ctx context.Context, stationaryID uuid.UUID, data any, at time.Time) error {
	body, err := json.Marshal(RealtimeMessage{
		Event:     RealtimeEventNewOrder,
		Type:      messageTypeNewOrder,
		Message:   "New order received!",
		Data:      data,
		Timestamp: at.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode realtime message: %w", err)
	}
	return r.publisher.Publish(ctx, r.Channel(stationaryID), body)
}
