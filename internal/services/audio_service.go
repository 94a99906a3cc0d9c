package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/speechrelay/internal/audio"
	"github.com/yoockh/speechrelay/internal/models"
	"github.com/yoockh/speechrelay/internal/pipeline"
	"github.com/yoockh/speechrelay/internal/reassembly"
	"github.com/yoockh/speechrelay/internal/utils"
)

// UtteranceProcessor is the part of the pipeline the audio service drives.
type UtteranceProcessor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

type FragmentInput struct {
	Audio          string // base64, optionally a data: URL
	RoomID         string
	UserID         string
	TargetLanguage string
	ChunkIndex     int
	TotalChunks    int
}

type ChunkAck struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	ChunkIndex    int    `json:"chunkIndex"`
	TotalChunks   int    `json:"totalChunks"`
	PendingChunks []int  `json:"pendingChunks"`
	Queued        bool   `json:"queued,omitempty"`
}

// FragmentResponse holds exactly one of Result or Ack.
type FragmentResponse struct {
	Result *pipeline.Result
	Ack    *ChunkAck
}

type StreamWindow struct {
	RoomID         string
	UserID         string
	TargetLanguage string
	Samples        []int16
	SampleRate     int
}

type AudioService interface {
	HandleFragment(ctx context.Context, in FragmentInput) (*FragmentResponse, error)
	ProcessWindow(ctx context.Context, w StreamWindow) (*pipeline.Result, error)
	Synthesize(ctx context.Context, text, language string) (string, error)
	Stats() reassembly.Stats
	// Close waits for background work (queued utterances, log writes) to finish.
	Close()
}

type audioService struct {
	chunks    *reassembly.Buffer
	processor UtteranceProcessor
	history   UtteranceLogService
	log       *logrus.Logger

	queuedTimeout time.Duration
	wg            sync.WaitGroup
}

func NewAudioService(chunks *reassembly.Buffer, processor UtteranceProcessor, history UtteranceLogService, log *logrus.Logger) AudioService {
	if log == nil {
		log = logrus.New()
	}
	return &audioService{
		chunks:        chunks,
		processor:     processor,
		history:       history,
		log:           log,
		queuedTimeout: 2 * time.Minute,
	}
}

func (s *audioService) HandleFragment(ctx context.Context, in FragmentInput) (*FragmentResponse, error) {
	const op = "AudioService.HandleFragment"

	if strings.TrimSpace(in.Audio) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio is required", nil)
	}
	payload, err := audio.DecodeBase64([]byte(in.Audio))
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio must be base64", err)
	}

	out, err := s.chunks.Submit(reassembly.Fragment{
		RoomID:         in.RoomID,
		UserID:         in.UserID,
		TargetLanguage: in.TargetLanguage,
		ChunkIndex:     in.ChunkIndex,
		TotalChunks:    in.TotalChunks,
		Payload:        payload,
	})
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, err.Error(), err)
	}

	switch out.Kind {
	case reassembly.Complete:
		res, err := s.processOutcome(ctx, out, models.SourceComplete)
		s.release(ctx, out.Key)
		if err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "malformed audio", err)
		}
		return &FragmentResponse{Result: res}, nil

	case reassembly.Preview:
		res, err := s.processOutcome(ctx, out, models.SourcePreview)
		if errors.Is(err, audio.ErrMalformedAudio) {
			// Only the first chunk of a split WAV carries a header; later ones
			// cannot be previewed on their own.
			return &FragmentResponse{Ack: ack(out)}, nil
		}
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to process preview", err)
		}
		return &FragmentResponse{Result: res}, nil

	default:
		return &FragmentResponse{Ack: ack(out)}, nil
	}
}

func ack(out reassembly.Outcome) *ChunkAck {
	pending := out.Pending
	if pending == nil {
		pending = []int{}
	}
	msg := fmt.Sprintf("Chunk %d/%d received successfully", out.ChunkIndex+1, out.TotalChunks)
	if out.TotalChunks <= 0 {
		msg = fmt.Sprintf("Chunk %d received successfully", out.ChunkIndex+1)
	}
	if out.Queued {
		msg += ", queued behind the utterance in progress"
	}
	return &ChunkAck{
		Status:        "chunk_received",
		Message:       msg,
		ChunkIndex:    out.ChunkIndex,
		TotalChunks:   out.TotalChunks,
		PendingChunks: pending,
		Queued:        out.Queued,
	}
}

func (s *audioService) processOutcome(ctx context.Context, out reassembly.Outcome, source models.UtteranceSource) (*pipeline.Result, error) {
	u, err := audio.Decode(out.Payload)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, out.Key.RoomID, out.Key.UserID, out.TargetLanguage, u, source)
}

func (s *audioService) run(ctx context.Context, roomID, userID, target string, u *audio.Utterance, source models.UtteranceSource) (*pipeline.Result, error) {
	start := time.Now()
	res, err := s.processor.Process(ctx, pipeline.Request{
		Utterance:      u,
		TargetLanguage: target,
		RoomID:         roomID,
		UserID:         userID,
	})
	if err != nil {
		return nil, err
	}
	if res.Text != "" {
		s.record(ctx, roomID, userID, source, u, res, time.Since(start))
	}
	return res, nil
}

// release hands the key back to the buffer and runs any completion that was
// queued meanwhile, in the background, still holding the key.
func (s *audioService) release(ctx context.Context, key reassembly.Key) {
	next, ok := s.chunks.Release(key)
	if !ok {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for ok {
			bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.queuedTimeout)
			if _, err := s.processOutcome(bg, next, models.SourceComplete); err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{
					"room_id": key.RoomID,
					"user_id": key.UserID,
				}).Warn("queued utterance failed")
			}
			cancel()
			next, ok = s.chunks.Release(key)
		}
	}()
}

func (s *audioService) record(ctx context.Context, roomID, userID string, source models.UtteranceSource, u *audio.Utterance, res *pipeline.Result, took time.Duration) {
	if s.history == nil || roomID == "" || userID == "" {
		return
	}
	rec := &models.UtteranceRecord{
		RoomID:           roomID,
		UserID:           userID,
		Source:           source,
		Transcript:       res.Transcript,
		Text:             res.Text,
		Language:         res.Language,
		Demo:             res.Demo,
		HasAudio:         res.AudioContent != "",
		AudioBytes:       len(u.Raw),
		ProcessingTimeMS: took.Milliseconds(),
	}
	if res.Confidence != nil {
		rec.Confidence = *res.Confidence
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.history.Record(bg, rec); err != nil {
			s.log.WithError(err).WithField("room_id", roomID).Warn("utterance log write failed")
		}
	}()
}

func (s *audioService) ProcessWindow(ctx context.Context, w StreamWindow) (*pipeline.Result, error) {
	const op = "AudioService.ProcessWindow"

	if w.SampleRate <= 0 {
		w.SampleRate = 16000
	}
	wav, err := audio.EncodeWAV(w.Samples, w.SampleRate, 1)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid audio window", err)
	}
	u, err := audio.Decode(wav)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to frame audio window", err)
	}
	res, err := s.run(ctx, w.RoomID, w.UserID, w.TargetLanguage, u, models.SourceStream)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "malformed audio", err)
	}
	return res, nil
}

func (s *audioService) Synthesize(ctx context.Context, text, language string) (string, error) {
	const op = "AudioService.Synthesize"

	if strings.TrimSpace(text) == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "text is required", nil)
	}
	out, err := s.processor.Synthesize(ctx, text, language)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "speech synthesis unavailable", err)
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *audioService) Stats() reassembly.Stats { return s.chunks.Stats() }

func (s *audioService) Close() { s.wg.Wait() }
