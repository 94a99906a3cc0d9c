package workers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/speechrelay/internal/broadcast"
	"github.com/yoockh/speechrelay/internal/metrics"
	"github.com/yoockh/speechrelay/internal/transport"
)

const (
	DefaultRetryStream = "broadcast:retry"
	DefaultRetryGroup  = "broadcast-retry"
	DefaultMaxAttempts = 3
)

// StreamQueue appends failed broadcasts to a Redis stream.
type StreamQueue struct {
	Redis  redis.UniversalClient
	Stream string
	MaxLen int64
}

func (q *StreamQueue) Enqueue(ctx context.Context, roomID string, payload []byte, attempt int) error {
	stream := q.Stream
	if stream == "" {
		stream = DefaultRetryStream
	}
	maxLen := q.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]any{
			"room_id": roomID,
			"payload": string(payload),
			"attempt": strconv.Itoa(attempt),
		},
	}).Err()
}

// BroadcastRetryPool drains the retry stream with a consumer group and resends
// each packet, requeueing it until MaxAttempts is reached.
type BroadcastRetryPool struct {
	Redis      redis.UniversalClient
	Transport  transport.Transport
	Queue      broadcast.RetryQueue
	NumWorkers int

	MaxAttempts int
	Backoff     time.Duration

	Logger  *logrus.Logger
	Metrics *metrics.Metrics

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *BroadcastRetryPool) defaults() {
	if p.Stream == "" {
		p.Stream = DefaultRetryStream
	}
	if p.Group == "" {
		p.Group = DefaultRetryGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
	if p.Queue == nil && p.Redis != nil {
		p.Queue = &StreamQueue{Redis: p.Redis, Stream: p.Stream}
	}
}

func (p *BroadcastRetryPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Transport == nil {
		return errors.New("BroadcastRetryPool missing dependency: Redis/Transport must be set")
	}
	p.defaults()

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *BroadcastRetryPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("retry stream read failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *BroadcastRetryPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	roomID := getStr("room_id")
	payload := getStr("payload")
	if roomID == "" || payload == "" {
		return
	}
	attempt, _ := strconv.Atoi(getStr("attempt"))
	if attempt <= 0 {
		attempt = 1
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id": msg.ID,
		"room_id":  roomID,
		"attempt":  attempt,
	})

	if p.Backoff > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * p.Backoff):
		}
	}

	err := p.Transport.SendData(ctx, roomID, []byte(payload), transport.Reliable)
	if err == nil {
		p.count("ok")
		log.Debug("broadcast retry delivered")
		return
	}

	if attempt >= p.MaxAttempts {
		p.count("dropped")
		log.WithError(fmt.Errorf("%w: %v", broadcast.ErrBroadcast, err)).Error("broadcast retry exhausted, dropping packet")
		return
	}

	p.count("requeued")
	log.WithError(err).Warn("broadcast retry failed, requeueing")
	if p.Queue != nil {
		if qerr := p.Queue.Enqueue(ctx, roomID, []byte(payload), attempt+1); qerr != nil {
			log.WithError(qerr).Error("requeue failed")
		}
	}
}

func (p *BroadcastRetryPool) count(result string) {
	if p.Metrics != nil {
		p.Metrics.BroadcastRetries.WithLabelValues(result).Inc()
	}
}
