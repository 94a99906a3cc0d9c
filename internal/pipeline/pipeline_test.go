package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/speechrelay/internal/audio"
	"github.com/yoockh/speechrelay/internal/broadcast"
	"github.com/yoockh/speechrelay/internal/metrics"
	"github.com/yoockh/speechrelay/internal/translation"
)

type fakeSTT struct {
	text  string
	conf  float64
	err   error
	calls int
	lang  string
}

func (f *fakeSTT) Transcribe(_ context.Context, _ []byte, language string) (string, float64, error) {
	f.calls++
	f.lang = language
	return f.text, f.conf, f.err
}

func (f *fakeSTT) Close() error { return nil }

type fakeTTS struct {
	err   error
	calls int
	text  string
	lang  string
}

func (f *fakeTTS) Synthesize(_ context.Context, text, language string) ([]byte, error) {
	f.calls++
	f.text, f.lang = text, language
	if f.err != nil {
		return nil, f.err
	}
	return []byte("ID3-mp3-bytes"), nil
}

func (f *fakeTTS) Close() error { return nil }

type fakeTranslator struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranslator) Translate(_ context.Context, text, source, target string) (*translation.Translation, error) {
	f.calls++
	if f.err != nil {
		return &translation.Translation{Text: text, SourceLanguage: source, TargetLanguage: target, Fallback: true}, f.err
	}
	return &translation.Translation{Text: f.text, SourceLanguage: source, TargetLanguage: target}, nil
}

func (f *fakeTranslator) CacheSize() int { return 0 }

type fakeBroadcaster struct {
	mu   sync.Mutex
	msgs []broadcast.Message
}

func (f *fakeBroadcaster) Publish(_ context.Context, _ string, msg broadcast.Message) {
	f.mu.Lock()
	f.msgs = append(f.msgs, msg)
	f.mu.Unlock()
}

func (f *fakeBroadcaster) Now() time.Time { return time.UnixMilli(1700000000000) }

type harness struct {
	stt *fakeSTT
	tts *fakeTTS
	tr  *fakeTranslator
	bc  *fakeBroadcaster
	p   *Pipeline
}

func newHarness(cfg Config) *harness {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	h := &harness{
		stt: &fakeSTT{text: "hello  team. let's   begin", conf: 0.92},
		tts: &fakeTTS{},
		tr:  &fakeTranslator{text: "hola equipo"},
		bc:  &fakeBroadcaster{},
	}
	h.p = New(cfg, Deps{
		STT:         h.stt,
		TTS:         h.tts,
		Translator:  h.tr,
		Broadcaster: h.bc,
		Logger:      l,
		Metrics:     metrics.New(prometheus.NewRegistry()),
	})
	return h
}

func toneUtterance(t *testing.T) *audio.Utterance {
	t.Helper()
	samples := make([]int16, 8000)
	for i := range samples {
		samples[i] = int16(6000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	wav, err := audio.EncodeWAV(samples, 16000, 1)
	if err != nil {
		t.Fatal(err)
	}
	u, err := audio.Decode(wav)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func silentUtterance(t *testing.T) *audio.Utterance {
	t.Helper()
	wav, err := audio.EncodeWAV(make([]int16, 8000), 16000, 1)
	if err != nil {
		t.Fatal(err)
	}
	u, err := audio.Decode(wav)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func req(u *audio.Utterance, target string) Request {
	return Request{Utterance: u, TargetLanguage: target, RoomID: "standup", UserID: "u1"}
}

func TestProcessSameLanguage(t *testing.T) {
	h := newHarness(Config{})

	res, err := h.p.Process(context.Background(), req(toneUtterance(t), "en-US"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Text != "hello team. let's begin" {
		t.Errorf("text = %q", res.Text)
	}
	if h.tr.calls != 0 {
		t.Error("translator called for same-language request")
	}
	if res.AudioContent == "" {
		t.Fatal("expected synthesized audio")
	}
	if b, _ := base64.StdEncoding.DecodeString(res.AudioContent); string(b) != "ID3-mp3-bytes" {
		t.Errorf("audio content = %q", b)
	}
	if res.Confidence == nil || *res.Confidence != 0.92 || res.Language != "en-US" {
		t.Errorf("confidence/language = %v/%q", res.Confidence, res.Language)
	}
	if h.stt.lang != "en-US" {
		t.Errorf("stt language = %q", h.stt.lang)
	}

	if len(h.bc.msgs) != 2 {
		t.Fatalf("broadcasts = %d, want caption and tts", len(h.bc.msgs))
	}
	if h.bc.msgs[0].Type != broadcast.TypeTranscription || h.bc.msgs[0].Text != res.Text {
		t.Errorf("caption = %+v", h.bc.msgs[0])
	}
	if h.bc.msgs[0].Language != DefaultSourceLanguage {
		t.Errorf("caption language = %q, want %q", h.bc.msgs[0].Language, DefaultSourceLanguage)
	}
	if h.bc.msgs[1].Type != broadcast.TypeTTS || h.bc.msgs[1].AudioContent != res.AudioContent {
		t.Errorf("tts message = %+v", h.bc.msgs[1])
	}
}

func TestProcessEmptyTargetMeansSource(t *testing.T) {
	h := newHarness(Config{})
	res, err := h.p.Process(context.Background(), req(toneUtterance(t), ""))
	if err != nil {
		t.Fatal(err)
	}
	if h.tr.calls != 0 || res.Language != DefaultSourceLanguage {
		t.Errorf("translator calls = %d language = %q", h.tr.calls, res.Language)
	}
}

func TestProcessTranslates(t *testing.T) {
	h := newHarness(Config{})

	res, err := h.p.Process(context.Background(), req(toneUtterance(t), "es-ES"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hola equipo" || res.Transcript != "hello team. let's begin" {
		t.Errorf("text = %q transcript = %q", res.Text, res.Transcript)
	}
	if h.tts.text != "hola equipo" || h.tts.lang != "es-ES" {
		t.Errorf("synthesized %q in %q", h.tts.text, h.tts.lang)
	}
	// The caption carries the source-language transcript.
	if h.bc.msgs[0].Text != "hello team. let's begin" {
		t.Errorf("caption text = %q", h.bc.msgs[0].Text)
	}
}

func TestProcessTranslationFailureKeepsTranscript(t *testing.T) {
	h := newHarness(Config{})
	h.tr.err = translation.ErrTranslationEngine

	res, err := h.p.Process(context.Background(), req(toneUtterance(t), "fr-FR"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hello team. let's begin" {
		t.Errorf("text = %q, want the untranslated transcript", res.Text)
	}
}

func TestProcessSilenceSkipsEngines(t *testing.T) {
	h := newHarness(Config{})

	res, err := h.p.Process(context.Background(), req(silentUtterance(t), "es-ES"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "" || res.AudioContent != "" {
		t.Errorf("result = %+v, want empty", res)
	}
	if h.stt.calls+h.tts.calls+h.tr.calls != 0 || len(h.bc.msgs) != 0 {
		t.Error("engines or broadcast invoked for silence")
	}
}

func TestProcessRejectsShortAudio(t *testing.T) {
	h := newHarness(Config{})
	u := &audio.Utterance{Raw: make([]byte, 45)}

	if _, err := h.p.Process(context.Background(), req(u, "")); !errors.Is(err, audio.ErrMalformedAudio) {
		t.Errorf("err = %v, want ErrMalformedAudio", err)
	}
	if _, err := h.p.Process(context.Background(), req(nil, "")); !errors.Is(err, audio.ErrMalformedAudio) {
		t.Errorf("nil utterance err = %v, want ErrMalformedAudio", err)
	}
}

func TestProcessTranscriptionFailure(t *testing.T) {
	cases := []struct {
		name     string
		degraded bool
		wantText string
		wantDemo bool
	}{
		{"empty by default", false, "", false},
		{"demo text in degraded mode", true, DefaultDemoText, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(Config{DegradedMode: tc.degraded})
			h.stt.err = errors.New("deadline exceeded")

			res, err := h.p.Process(context.Background(), req(toneUtterance(t), "es-ES"))
			if err != nil {
				t.Fatalf("engine failure leaked: %v", err)
			}
			if res.Text != tc.wantText || res.Demo != tc.wantDemo {
				t.Errorf("result = %+v", res)
			}
			if h.tts.calls+h.tr.calls != 0 || len(h.bc.msgs) != 0 {
				t.Error("fallback result must return immediately")
			}
		})
	}
}

func TestProcessSynthesisFailure(t *testing.T) {
	h := newHarness(Config{})
	h.tts.err = errors.New("quota")

	res, err := h.p.Process(context.Background(), req(toneUtterance(t), "en-US"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text == "" || res.AudioContent != "" {
		t.Errorf("result = %+v, want text without audio", res)
	}
	if len(h.bc.msgs) != 1 || h.bc.msgs[0].Type != broadcast.TypeTranscription {
		t.Errorf("broadcasts = %+v, want caption only", h.bc.msgs)
	}
}
