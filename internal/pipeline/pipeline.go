package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/speechrelay/internal/audio"
	"github.com/yoockh/speechrelay/internal/broadcast"
	"github.com/yoockh/speechrelay/internal/logger"
	"github.com/yoockh/speechrelay/internal/metrics"
	"github.com/yoockh/speechrelay/internal/providers/stt"
	"github.com/yoockh/speechrelay/internal/providers/tts"
	"github.com/yoockh/speechrelay/internal/translation"
)

const (
	DefaultSourceLanguage = "en-US"
	DefaultDemoText       = "I am speaking at the meeting"

	// MinUtteranceBytes is a header plus one 16-bit sample.
	MinUtteranceBytes = audio.HeaderSize + 2
)

var (
	ErrTranscriptionEngine = errors.New("transcription engine failed")
	ErrSynthesis           = errors.New("speech synthesis failed")
)

type Config struct {
	SourceLanguage string
	// DegradedMode answers transcription failures with DemoText instead of an empty result.
	DegradedMode bool
	DemoText     string
}

type Request struct {
	Utterance      *audio.Utterance
	TargetLanguage string
	RoomID         string
	UserID         string
}

type Result struct {
	Text         string   `json:"text"`
	AudioContent string   `json:"audioContent,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
	Language     string   `json:"language,omitempty"`
	Demo         bool     `json:"demo,omitempty"`

	// Transcript is the normalized source-language text before translation.
	Transcript string `json:"-"`
}

type Broadcaster interface {
	Publish(ctx context.Context, roomID string, msg broadcast.Message)
	Now() time.Time
}

type Pipeline struct {
	cfg         Config
	stt         stt.Provider
	tts         tts.Provider
	translator  translation.Service
	broadcaster Broadcaster

	log      *logrus.Logger
	throttle *logger.Throttle
	metrics  *metrics.Metrics
}

type Deps struct {
	STT         stt.Provider
	TTS         tts.Provider
	Translator  translation.Service
	Broadcaster Broadcaster
	Logger      *logrus.Logger
	Metrics     *metrics.Metrics
}

func New(cfg Config, d Deps) *Pipeline {
	if cfg.SourceLanguage == "" {
		cfg.SourceLanguage = DefaultSourceLanguage
	}
	if cfg.DemoText == "" {
		cfg.DemoText = DefaultDemoText
	}
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	return &Pipeline{
		cfg:         cfg,
		stt:         d.STT,
		tts:         d.TTS,
		translator:  d.Translator,
		broadcaster: d.Broadcaster,
		log:         d.Logger,
		throttle:    logger.NewThrottle(10*time.Second, nil),
		metrics:     d.Metrics,
	}
}

// Process runs one utterance through gate, transcription, translation,
// synthesis and broadcast. Engine failures degrade the result; only malformed
// audio is returned as an error.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
		}
	}()

	u := req.Utterance
	if u == nil || len(u.Raw) < MinUtteranceBytes {
		n := 0
		if u != nil {
			n = len(u.Raw)
		}
		return nil, fmt.Errorf("%w: utterance is %d bytes, need at least %d", audio.ErrMalformedAudio, n, MinUtteranceBytes)
	}

	log := p.log.WithFields(logrus.Fields{
		"room_id": req.RoomID,
		"user_id": req.UserID,
	})

	stats := audio.Analyze(u.Samples)
	p.throttle.Debugf(log.WithFields(logrus.Fields{
		"bytes":       len(u.Raw),
		"sample_rate": u.SampleRate,
		"channels":    u.Channels,
		"samples":     stats.TotalSamples,
		"non_zero":    stats.NonZeroSamples,
		"rms":         stats.RMS,
		"max":         stats.Max,
		"min":         stats.Min,
	}), "audio statistics")

	if stats.RMS <= audio.SpeechRMSThreshold {
		p.gate("silence")
		return &Result{}, nil
	}
	p.gate("speech")

	text, confidence, err := p.transcribe(ctx, u.Raw)
	if err != nil {
		log.WithError(err).Warn("transcription unavailable, using degraded response")
		return p.degraded(), nil
	}

	text = Normalize(text)
	if text == "" {
		return &Result{}, nil
	}

	if p.broadcaster != nil && req.RoomID != "" && req.UserID != "" {
		p.broadcaster.Publish(ctx, req.RoomID, broadcast.NewCaption(p.broadcaster.Now(), req.RoomID, req.UserID, text, p.cfg.SourceLanguage, confidence))
	}

	target := req.TargetLanguage
	if target == "" {
		target = p.cfg.SourceLanguage
	}

	translated := text
	if target != p.cfg.SourceLanguage && p.translator != nil {
		tr, err := p.translator.Translate(ctx, text, p.cfg.SourceLanguage, target)
		if err != nil {
			log.WithError(err).Warn("translation failed, keeping transcript")
		}
		if tr != nil && tr.Text != "" {
			translated = tr.Text
		}
	}

	res := &Result{
		Text:       translated,
		Confidence: &confidence,
		Language:   target,
		Transcript: text,
	}

	speech, err := p.synthesize(ctx, translated, target)
	if err != nil {
		log.WithError(err).Warn("synthesis failed, returning text only")
		return res, nil
	}
	res.AudioContent = base64.StdEncoding.EncodeToString(speech)

	if p.broadcaster != nil && req.RoomID != "" && req.UserID != "" {
		p.broadcaster.Publish(ctx, req.RoomID, broadcast.NewSpeech(p.broadcaster.Now(), req.RoomID, req.UserID, res.AudioContent, target))
	}
	return res, nil
}

func (p *Pipeline) degraded() *Result {
	if p.metrics != nil {
		p.metrics.DegradedResponses.Inc()
	}
	if !p.cfg.DegradedMode {
		return &Result{}
	}
	return &Result{Text: p.cfg.DemoText, Demo: true}
}

func (p *Pipeline) transcribe(ctx context.Context, wav []byte) (string, float64, error) {
	if p.stt == nil {
		return "", 0, ErrTranscriptionEngine
	}
	start := time.Now()
	text, conf, err := p.stt.Transcribe(ctx, wav, p.cfg.SourceLanguage)
	p.observe("stt", start, err)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrTranscriptionEngine, err)
	}
	return text, conf, nil
}

// Synthesize turns text into MP3 audio spoken in language.
func (p *Pipeline) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if language == "" {
		language = p.cfg.SourceLanguage
	}
	return p.synthesize(ctx, text, language)
}

func (p *Pipeline) synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if p.tts == nil {
		return nil, ErrSynthesis
	}
	start := time.Now()
	out, err := p.tts.Synthesize(ctx, text, language)
	p.observe("tts", start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	return out, nil
}

func (p *Pipeline) gate(result string) {
	if p.metrics != nil {
		p.metrics.GateDecisions.WithLabelValues(result).Inc()
	}
}

func (p *Pipeline) observe(engine string, start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.metrics.EngineRequests.WithLabelValues(engine, result).Inc()
	p.metrics.EngineDuration.WithLabelValues(engine).Observe(time.Since(start).Seconds())
}
