package bus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"meetbook/core/logger"
)

// Handler processes one delivered event. A nil return acks the message; an
// error leaves it pending for redelivery under the backoff schedule.
type Handler func(ctx context.Context, env Envelope) error

// DeliverPolicy controls where a new consumer group starts.
type DeliverPolicy string

const (
	// DeliverAll replays the stream from the beginning.
	DeliverAll DeliverPolicy = "all"
	// DeliverNew starts at the stream tail.
	DeliverNew DeliverPolicy = "new"
)

// backoffSchedule spaces redeliveries; attempts beyond the schedule reuse
// the last entry.
var backoffSchedule = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	30 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
}

// BackoffForAttempt returns the redelivery delay after `attempt` failed
// deliveries (attempt is 1-based).
func BackoffForAttempt(attempt int64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if int(attempt) > len(backoffSchedule) {
		return backoffSchedule[len(backoffSchedule)-1]
	}
	return backoffSchedule[attempt-1]
}

// ConsumerConfig declares a durable consumer per the stream contract.
type ConsumerConfig struct {
	Stream        string
	Group         string
	Subjects      []string // empty means all subjects on the stream
	MaxDeliver    int64
	AckWait       time.Duration
	DeliverPolicy DeliverPolicy
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.MaxDeliver <= 0 {
		c.MaxDeliver = 5
	}
	if c.AckWait <= 0 {
		c.AckWait = 30 * time.Second
	}
	if c.DeliverPolicy == "" {
		c.DeliverPolicy = DeliverAll
	}
	return c
}

func (c ConsumerConfig) wantsSubject(subject string) bool {
	if len(c.Subjects) == 0 {
		return true
	}
	for _, s := range c.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// Consumer is a durable consumer-group reader with per-message retry and
// dead-lettering.
type Consumer struct {
	bus     *Bus
	cfg     ConsumerConfig
	handler Handler
	name    string
}

func NewConsumer(b *Bus, cfg ConsumerConfig, handler Handler) *Consumer {
	host, _ := os.Hostname()
	if host == "" {
		host = "consumer"
	}
	return &Consumer{
		bus:     b,
		cfg:     cfg.withDefaults(),
		handler: handler,
		name:    fmt.Sprintf("%s-%d", host, os.Getpid()),
	}
}

// Start creates the group if needed and runs the read and retry loops until
// ctx is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}
	go c.readLoop(ctx)
	go c.retryLoop(ctx)
	logger.Info("Bus:Consumer:Started",
		"stream", c.cfg.Stream, "group", c.cfg.Group, "policy", string(c.cfg.DeliverPolicy))
	return nil
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	start := "0"
	if c.cfg.DeliverPolicy == DeliverNew {
		start = "$"
	}
	err := c.bus.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, start).Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("create group %s on %s: %w", c.cfg.Group, c.cfg.Stream, err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func (c *Consumer) readLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		streams, err := c.bus.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.name,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    16,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			logger.Error("Bus:Consumer:Read:Error",
				"stream", c.cfg.Stream, "group", c.cfg.Group, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		for _, s := range streams {
			for _, msg := range s.Messages {
				c.deliver(ctx, msg, 1)
			}
		}
	}
}

// retryLoop re-dispatches pending messages whose idle time passed the
// backoff for their attempt count, and dead-letters messages that exhausted
// the budget. Safe to run in multiple processes.
func (c *Consumer) retryLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweepPending(ctx)
		}
	}
}

func (c *Consumer) sweepPending(ctx context.Context) {
	pending, err := c.bus.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.cfg.Stream,
		Group:  c.cfg.Group,
		Start:  "-",
		End:    "+",
		Count:  64,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("Bus:Consumer:Pending:Error", "stream", c.cfg.Stream, "error", err)
		}
		return
	}

	for _, p := range pending {
		if p.RetryCount >= c.cfg.MaxDeliver-1 && p.Idle >= c.cfg.AckWait {
			c.deadLetter(ctx, p.ID, p.RetryCount)
			continue
		}
		wait := BackoffForAttempt(p.RetryCount)
		if wait < c.cfg.AckWait {
			wait = c.cfg.AckWait
		}
		if p.Idle < wait {
			continue
		}
		claimed, err := c.bus.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   c.cfg.Stream,
			Group:    c.cfg.Group,
			Consumer: c.name,
			MinIdle:  wait,
			Messages: []string{p.ID},
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.Warn("Bus:Consumer:Claim:Error", "id", p.ID, "error", err)
			continue
		}
		for _, msg := range claimed {
			c.deliver(ctx, msg, p.RetryCount+1)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, msg redis.XMessage, attempt int64) {
	env, err := envelopeFromValues(msg.Values)
	if err != nil {
		// Malformed payloads are acked to prevent poison-message loops.
		logger.Error("Bus:Consumer:Malformed",
			"stream", c.cfg.Stream, "id", msg.ID, "error", err)
		c.ack(ctx, msg.ID)
		return
	}
	if !c.cfg.wantsSubject(env.EventType) {
		c.ack(ctx, msg.ID)
		return
	}

	hctx, cancel := context.WithTimeout(ctx, c.cfg.AckWait)
	err = c.handler(hctx, env)
	cancel()
	if err != nil {
		logger.Warn("Bus:Consumer:Handler:Error",
			"stream", c.cfg.Stream, "group", c.cfg.Group,
			"subject", env.EventType, "event_id", env.EventID,
			"attempt", attempt, "error", err)
		// Leave pending; the retry loop redelivers on the backoff schedule.
		return
	}
	c.ack(ctx, msg.ID)
}

// deadLetter publishes the message on dlq.<subject> and acks the original.
func (c *Consumer) deadLetter(ctx context.Context, msgID string, attempts int64) {
	msgs, err := c.bus.client.XRangeN(ctx, c.cfg.Stream, msgID, msgID, 1).Result()
	if err != nil || len(msgs) == 0 {
		// Trimmed out from under us; nothing left to preserve.
		c.ack(ctx, msgID)
		return
	}
	env, envErr := envelopeFromValues(msgs[0].Values)
	if envErr != nil {
		c.ack(ctx, msgID)
		return
	}
	entry := DLQEntry{
		OriginalSubject: env.EventType,
		OriginalEvent:   env,
		LastError:       fmt.Sprintf("exhausted %d deliveries", attempts+1),
		Attempts:        attempts + 1,
	}
	if err := c.bus.Publish(ctx, DLQPrefix+env.EventType, entry); err != nil {
		logger.Error("Bus:Consumer:DLQ:Error", "event_id", env.EventID, "error", err)
		return // keep pending; retried next sweep
	}
	logger.Warn("Bus:Consumer:DeadLettered",
		"stream", c.cfg.Stream, "group", c.cfg.Group,
		"subject", env.EventType, "event_id", env.EventID, "attempts", attempts+1)
	c.ack(ctx, msgID)
}

func (c *Consumer) ack(ctx context.Context, msgID string) {
	if err := c.bus.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msgID).Err(); err != nil && ctx.Err() == nil {
		logger.Warn("Bus:Consumer:Ack:Error", "id", msgID, "error", err)
	}
}
