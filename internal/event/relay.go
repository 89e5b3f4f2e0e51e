package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultChannelPrefix namespaces the pub/sub channels used to mirror
// events between processes. The job ID is appended per channel.
const DefaultChannelPrefix = "forge:events:"

// PublishTap returns a bus tap that mirrors every event onto a redis
// pub/sub channel, so other processes can observe pipeline progress.
// Publish failures are logged and dropped; progress events are advisory.
func PublishTap(client *redis.Client, prefix string) func(Event) {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return func(ev Event) {
		payload, err := json.Marshal(ev)
		if err != nil {
			slog.Error("failed to marshal event for relay", "error", err, "job_id", ev.JobID)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Publish(ctx, prefix+ev.JobID, payload).Err(); err != nil {
			slog.WarnContext(ctx, "failed to publish event", "error", err, "job_id", ev.JobID)
		}
	}
}

// RunListener subscribes to the relay channels and re-emits received
// events onto the local bus. It blocks until ctx is cancelled.
func RunListener(ctx context.Context, client *redis.Client, bus *Bus, prefix string) {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}

	sub := client.PSubscribe(ctx, prefix+"*")
	defer sub.Close()

	slog.InfoContext(ctx, "event relay listening", "pattern", prefix+"*")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				slog.WarnContext(ctx, "dropping malformed relay event", "error", err, "channel", msg.Channel)
				continue
			}
			if ev.JobID == "" {
				ev.JobID = strings.TrimPrefix(msg.Channel, prefix)
			}
			bus.Emit(ctx, ev)
		}
	}
}
