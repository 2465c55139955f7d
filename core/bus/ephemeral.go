package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"meetbook/core/logger"
)

// SubscribeNew tails a stream from its current end, delivering every new
// envelope on the returned channel. No consumer group is involved; backlog
// is deliberately not replayed. The channel closes when ctx ends.
func (b *Bus) SubscribeNew(ctx context.Context, stream string) <-chan Envelope {
	out := make(chan Envelope, 16)
	go func() {
		defer close(out)
		lastID := "$"
		for {
			if ctx.Err() != nil {
				return
			}
			streams, err := b.client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{stream, lastID},
				Count:   16,
				Block:   5 * time.Second,
			}).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					// "$" only matters on the first read; after a timeout we
					// must pin to a concrete id or we would skip messages.
					if lastID == "$" {
						lastID = nowStreamID()
					}
					continue
				}
				if ctx.Err() != nil {
					return
				}
				logger.Warn("Bus:SubscribeNew:Read:Error", "stream", stream, "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}
			for _, s := range streams {
				for _, msg := range s.Messages {
					lastID = msg.ID
					env, err := envelopeFromValues(msg.Values)
					if err != nil {
						logger.Warn("Bus:SubscribeNew:Malformed", "stream", stream, "id", msg.ID, "error", err)
						continue
					}
					select {
					case out <- env:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out
}

func nowStreamID() string {
	return fmt.Sprintf("%d-0", time.Now().UnixMilli())
}
