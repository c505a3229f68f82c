package outbox

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// Handler processes one event. A returned error leaves the entry pending for retry.
type Handler interface {
	Handle(ctx context.Context, e Event) error
}

type HandlerFunc func(ctx context.Context, e Event) error

func (f HandlerFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }

type ConsumerConfig struct {
	Stream   string
	Group    string
	Consumer string
	Batch    int64
	// Block is how long a read waits for new entries. Negative means do not block.
	Block       time.Duration
	MaxAttempts int
	// Backoff is the pause after a failed poll in Run.
	Backoff time.Duration
}

func (c *ConsumerConfig) defaults() {
	if c.Stream == "" {
		c.Stream = DefaultStream
	}
	if c.Group == "" {
		c.Group = "healthsense-sync"
	}
	if c.Consumer == "" {
		c.Consumer = "worker-1"
	}
	if c.Batch <= 0 {
		c.Batch = 16
	}
	if c.Block == 0 {
		c.Block = 5 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Backoff <= 0 {
		c.Backoff = time.Second
	}
}

// Consumer drains the stream through a consumer group. Entries it failed to
// handle stay in its pending list and are retried before new entries are read;
// after MaxAttempts failures an entry moves to the dead-letter stream.
type Consumer struct {
	client   *redis.Client
	handler  Handler
	cfg      ConsumerConfig
	log      zerolog.Logger
	attempts map[string]int
}

func NewConsumer(client *redis.Client, h Handler, cfg ConsumerConfig, log zerolog.Logger) *Consumer {
	cfg.defaults()
	return &Consumer{
		client:   client,
		handler:  h,
		cfg:      cfg,
		log:      log.With().Str("component", "sync-worker").Str("consumer", cfg.Consumer).Logger(),
		attempts: make(map[string]int),
	}
}

// DeadLetterStream is where entries go after too many failed attempts.
func (c *Consumer) DeadLetterStream() string {
	return c.cfg.Stream + deadLetterSuffix
}

// Setup creates the stream and consumer group if they do not exist yet.
func (c *Consumer) Setup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", c.cfg.Group, err)
	}
	return nil
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.Setup(ctx); err != nil {
		return err
	}
	c.log.Info().Str("stream", c.cfg.Stream).Msg("sync worker started")

	for {
		if ctx.Err() != nil {
			c.log.Info().Msg("sync worker stopped")
			return nil
		}
		res, err := c.Poll(ctx)
		if err != nil && ctx.Err() == nil {
			c.log.Error().Err(err).Msg("poll failed")
		}
		idle := res.Read == 0 && c.cfg.Block < 0
		if err != nil || res.Acked < res.Read || idle {
			select {
			case <-ctx.Done():
			case <-time.After(c.cfg.Backoff):
			}
		}
	}
}

// PollResult counts the entries one Poll read and acked. Read > Acked means some
// entries failed and remain pending.
type PollResult struct {
	Read  int
	Acked int
}

// Poll runs one read-and-handle round. Pending entries are retried first; new
// entries are read only when none are pending.
func (c *Consumer) Poll(ctx context.Context) (PollResult, error) {
	var res PollResult
	msgs, err := c.read(ctx, "0", -1)
	if err != nil {
		return res, err
	}
	if len(msgs) == 0 {
		msgs, err = c.read(ctx, ">", c.cfg.Block)
		if err != nil {
			return res, err
		}
	}

	res.Read = len(msgs)
	for _, msg := range msgs {
		done, err := c.process(ctx, msg)
		if err != nil {
			return res, err
		}
		if done {
			res.Acked++
		}
	}
	return res, nil
}

func (c *Consumer) read(ctx context.Context, id string, block time.Duration) ([]redis.XMessage, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, id},
		Count:    c.cfg.Batch,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup %s: %w", c.cfg.Stream, err)
	}

	var msgs []redis.XMessage
	for _, s := range streams {
		msgs = append(msgs, s.Messages...)
	}
	return msgs, nil
}

// process handles one entry and reports whether it was acked.
func (c *Consumer) process(ctx context.Context, msg redis.XMessage) (bool, error) {
	evt, err := eventFromValues(msg.ID, msg.Values)
	if err != nil {
		// Undecodable entries never succeed; retire them straight away.
		return true, c.deadLetter(ctx, msg, err, 1)
	}

	if err := c.handler.Handle(ctx, evt); err != nil {
		c.attempts[msg.ID]++
		n := c.attempts[msg.ID]
		c.log.Warn().Err(err).
			Str("entry_id", msg.ID).
			Str("event_type", string(evt.Type)).
			Int("attempt", n).
			Msg("sync failed")
		if n < c.cfg.MaxAttempts {
			return false, nil
		}
		return true, c.deadLetter(ctx, msg, err, n)
	}

	delete(c.attempts, msg.ID)
	if err := c.ack(ctx, msg.ID); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Consumer) deadLetter(ctx context.Context, msg redis.XMessage, cause error, attempts int) error {
	values := make(map[string]interface{}, len(msg.Values)+3)
	for k, v := range msg.Values {
		values[k] = v
	}
	values["source_id"] = msg.ID
	values["error"] = cause.Error()
	values["attempts"] = strconv.Itoa(attempts)

	if err := c.client.XAdd(ctx, &redis.XAddArgs{Stream: c.DeadLetterStream(), Values: values}).Err(); err != nil {
		return fmt.Errorf("dead-letter %s: %w", msg.ID, err)
	}
	c.log.Error().Str("entry_id", msg.ID).Int("attempts", attempts).Err(cause).Msg("entry moved to dead-letter stream")

	delete(c.attempts, msg.ID)
	return c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		return fmt.Errorf("xack %s: %w", id, err)
	}
	return nil
}
