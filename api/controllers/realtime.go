package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusprint/campusprint-backend/api/middleware"
	"github.com/campusprint/campusprint-backend/api/responses"
	"github.com/campusprint/campusprint-backend/internal/notifications"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

const realtimeHeartbeat = 25 * time.Second

// RealtimeFeed yields raw messages published on channel until the returned
// stop func is called or ctx ends.
type RealtimeFeed interface {
	Listen(ctx context.Context, channel string) (<-chan string, func() error, error)
}

type redisSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error)
}

// RedisFeed adapts the redis pub/sub client to RealtimeFeed.
type RedisFeed struct {
	Client redisSubscriber
}

func (f RedisFeed) Listen(ctx context.Context, channel string) (<-chan string, func() error, error) {
	sub, err := f.Client.Subscribe(ctx, channel)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, sub.Close, nil
}

// OwnerRealtime streams new-order pushes for the owner's shop as server-sent events.
func OwnerRealtime(feed RealtimeFeed, prefix string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		stationaryID, err := middleware.StationaryUUID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		channel := notifications.StationaryChannel(prefix, stationaryID)
		messages, stop, err := feed.Listen(ctx, channel)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to realtime channel"))
			return
		}
		defer func() {
			if cerr := stop(); cerr != nil && logg != nil {
				logg.Warn(ctx, "realtime unsubscribe failed: "+cerr.Error())
			}
		}()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		ticker := time.NewTicker(realtimeHeartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			case msg, open := <-messages:
				if !open {
					return
				}
				fmt.Fprintf(w, "event: order\ndata: %s\n\n", msg)
				flusher.Flush()
			}
		}
	}
}
