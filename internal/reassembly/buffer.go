package reassembly

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/speechrelay/internal/metrics"
)

const (
	MinFragmentBytes = 100
	PreviewMinBytes  = 1000
	MaxTotalChunks   = 1024

	IdleTimeout   = 30 * time.Second
	SweepInterval = 60 * time.Second

	defaultShards = 32
)

var ErrInvalidFragment = errors.New("invalid audio fragment")

type Key struct {
	RoomID string
	UserID string
}

func (k Key) String() string { return k.RoomID + "/" + k.UserID }

// Fragment is one indexed piece of an utterance. Payload holds decoded bytes.
type Fragment struct {
	RoomID         string
	UserID         string
	TargetLanguage string
	ChunkIndex     int
	TotalChunks    int
	Payload        []byte
}

func (f Fragment) Key() Key { return Key{RoomID: f.RoomID, UserID: f.UserID} }

type Kind int

const (
	Buffered Kind = iota
	Preview
	Complete
)

func (k Kind) String() string {
	switch k {
	case Complete:
		return "complete"
	case Preview:
		return "preview"
	default:
		return "buffered"
	}
}

type Outcome struct {
	Kind Kind
	Key  Key

	// Payload is the combined utterance for Complete and the fragment itself for Preview.
	Payload        []byte
	TargetLanguage string

	ChunkIndex  int
	TotalChunks int
	Pending     []int // missing indices, ascending; Buffered and bounded Preview

	// Queued is set when the fragment completed an utterance for a key that is
	// still being processed; the caller holding the key picks it up on Release.
	Queued bool
}

type Stats struct {
	Sessions int `json:"sessions"`
	InFlight int `json:"in_flight"`
	Queued   int `json:"queued"`
}

type Config struct {
	Shards        int
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Now           func() time.Time

	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

type session struct {
	slots          [][]byte
	filled         int
	targetLanguage string
	updatedAt      time.Time
}

func (s *session) pending() []int {
	out := make([]int, 0, len(s.slots)-s.filled)
	for i, b := range s.slots {
		if b == nil {
			out = append(out, i)
		}
	}
	return out
}

func (s *session) combine() []byte {
	n := 0
	for _, b := range s.slots {
		n += len(b)
	}
	out := make([]byte, 0, n)
	for _, b := range s.slots {
		out = append(out, b...)
	}
	return out
}

type shard struct {
	mu       sync.Mutex
	sessions map[Key]*session
	// A key present here is being processed. A non-nil value is the next
	// completion waiting for that run to finish.
	inflight map[Key]*Outcome
}

type Buffer struct {
	shards      []*shard
	idleTimeout time.Duration
	interval    time.Duration
	now         func() time.Time
	log         *logrus.Logger
	metrics     *metrics.Metrics
}

func New(cfg Config) *Buffer {
	if cfg.Shards <= 0 {
		cfg.Shards = defaultShards
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = IdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = SweepInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	b := &Buffer{
		shards:      make([]*shard, cfg.Shards),
		idleTimeout: cfg.IdleTimeout,
		interval:    cfg.SweepInterval,
		now:         cfg.Now,
		log:         cfg.Logger,
		metrics:     cfg.Metrics,
	}
	for i := range b.shards {
		b.shards[i] = &shard{
			sessions: make(map[Key]*session),
			inflight: make(map[Key]*Outcome),
		}
	}
	return b
}

func (b *Buffer) shardFor(k Key) *shard {
	h := xxhash.New()
	_, _ = h.WriteString(k.RoomID)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(k.UserID)
	return b.shards[h.Sum64()%uint64(len(b.shards))]
}

func validate(f Fragment) error {
	switch {
	case f.RoomID == "" || f.UserID == "":
		return fmt.Errorf("%w: roomId and userId are required", ErrInvalidFragment)
	case len(f.Payload) == 0:
		return fmt.Errorf("%w: empty payload", ErrInvalidFragment)
	case len(f.Payload) < MinFragmentBytes:
		return fmt.Errorf("%w: payload is %d bytes, minimum is %d", ErrInvalidFragment, len(f.Payload), MinFragmentBytes)
	case f.TotalChunks > MaxTotalChunks:
		return fmt.Errorf("%w: totalChunks %d exceeds %d", ErrInvalidFragment, f.TotalChunks, MaxTotalChunks)
	case f.TotalChunks > 0 && (f.ChunkIndex < 0 || f.ChunkIndex >= f.TotalChunks):
		return fmt.Errorf("%w: chunkIndex %d outside [0, %d)", ErrInvalidFragment, f.ChunkIndex, f.TotalChunks)
	}
	return nil
}

// Submit stores f and reports what the caller should do next. A Complete outcome
// makes the caller responsible for calling Release once processing finishes.
func (b *Buffer) Submit(f Fragment) (Outcome, error) {
	if err := validate(f); err != nil {
		if b.metrics != nil {
			b.metrics.FragmentsRejected.Inc()
		}
		return Outcome{}, err
	}
	if b.metrics != nil {
		b.metrics.FragmentsReceived.Inc()
	}

	out := b.submit(f)

	if b.metrics != nil {
		b.metrics.ReassemblyOutcomes.WithLabelValues(out.Kind.String()).Inc()
	}
	return out, nil
}

func (b *Buffer) submit(f Fragment) Outcome {
	key := f.Key()
	out := Outcome{
		Kind:           Buffered,
		Key:            key,
		TargetLanguage: f.TargetLanguage,
		ChunkIndex:     f.ChunkIndex,
		TotalChunks:    f.TotalChunks,
	}

	// Unbounded stream: never stored, large fragments are processed on their own.
	if f.TotalChunks <= 0 {
		if len(f.Payload) > PreviewMinBytes {
			out.Kind = Preview
			out.Payload = f.Payload
		}
		return out
	}

	sh := b.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s, ok := sh.sessions[key]
	if ok && len(s.slots) != f.TotalChunks {
		b.log.WithFields(logrus.Fields{
			"room_id": key.RoomID,
			"user_id": key.UserID,
			"old":     len(s.slots),
			"new":     f.TotalChunks,
		}).Info("chunk count changed, restarting session")
		ok = false
	}
	if !ok {
		s = &session{slots: make([][]byte, f.TotalChunks)}
		sh.sessions[key] = s
	}

	duplicate := s.slots[f.ChunkIndex] != nil
	if !duplicate {
		s.slots[f.ChunkIndex] = f.Payload
		s.filled++
	}
	if f.TargetLanguage != "" {
		s.targetLanguage = f.TargetLanguage
	}
	s.updatedAt = b.now()
	out.TargetLanguage = s.targetLanguage

	if s.filled == len(s.slots) {
		delete(sh.sessions, key)
		out.Kind = Complete
		out.Payload = s.combine()

		if prev, busy := sh.inflight[key]; busy {
			if prev != nil {
				b.log.WithFields(logrus.Fields{
					"room_id": key.RoomID,
					"user_id": key.UserID,
					"bytes":   len(prev.Payload),
				}).Warn("queued utterance replaced by a newer one")
				if b.metrics != nil {
					b.metrics.QueuedUtterancesDropped.Inc()
				}
			}
			queued := out
			sh.inflight[key] = &queued
			return Outcome{
				Kind:           Buffered,
				Key:            key,
				TargetLanguage: out.TargetLanguage,
				ChunkIndex:     f.ChunkIndex,
				TotalChunks:    f.TotalChunks,
				Queued:         true,
			}
		}
		sh.inflight[key] = nil
		return out
	}

	// A duplicate already had its chance at a preview.
	out.Pending = s.pending()
	if !duplicate && len(f.Payload) > PreviewMinBytes {
		out.Kind = Preview
		out.Payload = f.Payload
	}
	return out
}

// Release ends the in-flight run for key. If a completion was queued meanwhile it
// is returned and the key stays in flight for it; otherwise the key is cleared.
func (b *Buffer) Release(key Key) (Outcome, bool) {
	sh := b.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	next, ok := sh.inflight[key]
	if !ok {
		return Outcome{}, false
	}
	if next == nil {
		delete(sh.inflight, key)
		return Outcome{}, false
	}
	sh.inflight[key] = nil
	return *next, true
}

// Sweep removes sessions idle for longer than the idle timeout and returns how many it removed.
func (b *Buffer) Sweep() int {
	cutoff := b.now().Add(-b.idleTimeout)
	removed := 0
	for _, sh := range b.shards {
		sh.mu.Lock()
		for k, s := range sh.sessions {
			if s.updatedAt.Before(cutoff) {
				delete(sh.sessions, k)
				removed++
				b.log.WithFields(logrus.Fields{
					"room_id": k.RoomID,
					"user_id": k.UserID,
					"pending": len(s.slots) - s.filled,
				}).Debug("reaped idle chunk session")
			}
		}
		sh.mu.Unlock()
	}
	if b.metrics != nil {
		b.metrics.SessionsReaped.Add(float64(removed))
		b.metrics.ActiveSessions.Set(float64(b.Stats().Sessions))
	}
	return removed
}

// Run sweeps on every interval until ctx is done.
func (b *Buffer) Run(ctx context.Context) {
	t := time.NewTicker(b.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := b.Sweep(); n > 0 {
				b.log.WithField("removed", n).Info("chunk session sweep")
			}
		}
	}
}

func (b *Buffer) Stats() Stats {
	var st Stats
	for _, sh := range b.shards {
		sh.mu.Lock()
		st.Sessions += len(sh.sessions)
		st.InFlight += len(sh.inflight)
		for _, q := range sh.inflight {
			if q != nil {
				st.Queued++
			}
		}
		sh.mu.Unlock()
	}
	return st
}

// Pending lists the missing chunk indices for key, or nil when no session exists.
func (b *Buffer) Pending(key Key) []int {
	sh := b.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, ok := sh.sessions[key]
	if !ok {
		return nil
	}
	return s.pending()
}
