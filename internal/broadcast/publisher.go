package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/speechrelay/internal/metrics"
	"github.com/yoockh/speechrelay/internal/transport"
)

var ErrBroadcast = errors.New("broadcast failed")

// RetryQueue accepts packets whose first delivery failed.
type RetryQueue interface {
	Enqueue(ctx context.Context, roomID string, payload []byte, attempt int) error
}

// Publisher delivers messages best-effort: a failed send is logged and handed to
// the retry queue, never retried inline.
type Publisher struct {
	transport transport.Transport
	retry     RetryQueue
	log       *logrus.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewPublisher(t transport.Transport, retry RetryQueue, log *logrus.Logger, m *metrics.Metrics) *Publisher {
	if log == nil {
		log = logrus.New()
	}
	return &Publisher{transport: t, retry: retry, log: log, metrics: m, now: time.Now}
}

func (p *Publisher) Now() time.Time { return p.now() }

func (p *Publisher) Publish(ctx context.Context, roomID string, msg Message) {
	if p == nil || p.transport == nil || roomID == "" {
		return
	}
	log := p.log.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": msg.UserID,
		"type":    msg.Type,
	})

	payload, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Error("encode broadcast message")
		p.count(msg.Type, "error")
		return
	}

	if err := p.transport.SendData(ctx, roomID, payload, transport.Reliable); err != nil {
		log.WithError(err).Warn("broadcast send failed")
		p.count(msg.Type, "error")
		p.enqueue(ctx, log, roomID, payload)
		return
	}
	p.count(msg.Type, "ok")
}

func (p *Publisher) enqueue(ctx context.Context, log *logrus.Entry, roomID string, payload []byte) {
	if p.retry == nil {
		return
	}
	// The request context may already be done; the queue write must not depend on it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := p.retry.Enqueue(ctx, roomID, payload, 1); err != nil {
		log.WithError(err).Warn("broadcast retry enqueue failed")
	}
}

func (p *Publisher) count(t Type, result string) {
	if p.metrics != nil {
		p.metrics.Broadcasts.WithLabelValues(string(t), result).Inc()
	}
}
