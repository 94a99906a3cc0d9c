package translation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/speechrelay/internal/metrics"
	"github.com/yoockh/speechrelay/internal/providers/translate"
)

const AutoDetect = "auto"

var ErrTranslationEngine = errors.New("translation engine failed")

type Translation struct {
	Text           string `json:"translatedText"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
	Cached         bool   `json:"cached,omitempty"`
	// Fallback marks Text as the untranslated input after an engine failure.
	Fallback bool `json:"fallback,omitempty"`
}

type Service interface {
	// Translate never returns a nil Translation. On ErrTranslationEngine the
	// Translation carries the original text with Fallback set.
	Translate(ctx context.Context, text, source, target string) (*Translation, error)
	CacheSize() int
}

type service struct {
	engine  translate.Provider
	cache   *Cache
	log     *logrus.Logger
	metrics *metrics.Metrics
}

func NewService(engine translate.Provider, c *Cache, log *logrus.Logger, m *metrics.Metrics) Service {
	if c == nil {
		c = NewCache(CacheConfig{Logger: log, Metrics: m})
	}
	if log == nil {
		log = logrus.New()
	}
	return &service{engine: engine, cache: c, log: log, metrics: m}
}

func (s *service) CacheSize() int { return s.cache.Len() }

func (s *service) Translate(ctx context.Context, text, source, target string) (*Translation, error) {
	if strings.TrimSpace(source) == "" {
		source = AutoDetect
	}
	out := &Translation{Text: text, SourceLanguage: source, TargetLanguage: target}

	if text == "" || (source != AutoDetect && source == target) {
		return out, nil
	}

	k := cacheKey{text, source, target}
	if e, ok := s.cache.get(ctx, k); ok {
		out.Text = e.Translated
		out.Cached = true
		if e.Detected != "" {
			out.SourceLanguage = e.Detected
		}
		return out, nil
	}

	if s.engine == nil {
		out.Fallback = true
		return out, ErrTranslationEngine
	}

	start := time.Now()
	res, err := s.engine.Translate(ctx, text, source, target)
	s.observe(start, err)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"source": source,
			"target": target,
		}).Warn("translation failed, returning original text")
		out.Fallback = true
		return out, errors.Join(ErrTranslationEngine, err)
	}

	s.cache.put(ctx, k, res.Text, res.DetectedSource)
	out.Text = res.Text
	if res.DetectedSource != "" {
		out.SourceLanguage = res.DetectedSource
	}
	return out, nil
}

func (s *service) observe(start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.EngineRequests.WithLabelValues("translate", result).Inc()
	s.metrics.EngineDuration.WithLabelValues("translate").Observe(time.Since(start).Seconds())
}
