package translation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/yoockh/speechrelay/internal/metrics"
	"github.com/yoockh/speechrelay/internal/providers/translate"
)

type fakeEngine struct {
	calls    atomic.Int32
	text     string
	detected string
	err      error
}

func (f *fakeEngine) Translate(_ context.Context, text, source, target string) (translate.Result, error) {
	f.calls.Add(1)
	if f.err != nil {
		return translate.Result{}, f.err
	}
	return translate.Result{Text: f.text, DetectedSource: f.detected}, nil
}

func (f *fakeEngine) Close() error { return nil }

func newTestService(engine translate.Provider) Service {
	m := metrics.New(prometheus.NewRegistry())
	return NewService(engine, NewCache(CacheConfig{Metrics: m}), nil, m)
}

func TestTranslateSameLanguageSkipsEngine(t *testing.T) {
	engine := &fakeEngine{text: "unused"}
	svc := newTestService(engine)

	tr, err := svc.Translate(context.Background(), "hello team", "en-US", "en-US")
	if err != nil {
		t.Fatal(err)
	}
	if tr.Text != "hello team" || tr.Cached || tr.Fallback {
		t.Errorf("translation = %+v", tr)
	}
	if engine.calls.Load() != 0 {
		t.Error("engine called for same-language request")
	}
}

func TestTranslateCachesResult(t *testing.T) {
	engine := &fakeEngine{text: "hola", detected: "en"}
	svc := newTestService(engine)

	first, err := svc.Translate(context.Background(), "hello", "", "es")
	if err != nil {
		t.Fatal(err)
	}
	if first.Text != "hola" || first.Cached || first.SourceLanguage != "en" {
		t.Errorf("first = %+v", first)
	}

	second, err := svc.Translate(context.Background(), "hello", "", "es")
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached || second.Text != "hola" || second.SourceLanguage != "en" {
		t.Errorf("second = %+v", second)
	}
	if engine.calls.Load() != 1 {
		t.Errorf("engine calls = %d, want 1", engine.calls.Load())
	}
	if svc.CacheSize() != 1 {
		t.Errorf("CacheSize() = %d", svc.CacheSize())
	}
}

func TestTranslateAutoSourceStillCallsEngine(t *testing.T) {
	engine := &fakeEngine{text: "auto"}
	svc := newTestService(engine)

	if _, err := svc.Translate(context.Background(), "x", "auto", "auto"); err != nil {
		t.Fatal(err)
	}
	if engine.calls.Load() != 1 {
		t.Error("auto source must not short-circuit")
	}
}

func TestTranslateEngineFailureFallsBack(t *testing.T) {
	engine := &fakeEngine{err: errors.New("quota exceeded")}
	svc := newTestService(engine)

	tr, err := svc.Translate(context.Background(), "good night", "en", "fr")
	if !errors.Is(err, ErrTranslationEngine) {
		t.Fatalf("err = %v, want ErrTranslationEngine", err)
	}
	if tr == nil || tr.Text != "good night" || !tr.Fallback {
		t.Errorf("fallback translation = %+v", tr)
	}
	if svc.CacheSize() != 0 {
		t.Error("failures must not be cached")
	}
}
