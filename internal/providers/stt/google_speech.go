package stt

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

// MeetingPhrases bias recognition toward vocabulary common in meetings.
var MeetingPhrases = []string{
	"meeting", "conference", "project", "team", "discuss", "update",
	"schedule", "timeline", "deadline", "priority", "status", "report",
	"client", "customer", "presentation", "analysis", "review", "summary",
	"action", "item", "task", "assign", "complete", "progress", "issue",
	"question", "answer", "feedback", "concern", "solution", "problem",
}

type GoogleSpeech struct {
	c *speech.Client

	Encoding        speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz    int32
	Model           string
	UseEnhanced     bool
	ProfanityFilter bool
	Phrases         []string
	PhraseBoost     float32
}

// NewGoogleSpeech builds a client with the relay's recognition defaults.
// credentialsFile may be empty to use application default credentials.
func NewGoogleSpeech(ctx context.Context, credentialsFile string) (*GoogleSpeech, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{
		c:               c,
		Encoding:        speechpb.RecognitionConfig_LINEAR16,
		SampleRateHz:    16000,
		Model:           "default",
		UseEnhanced:     true,
		ProfanityFilter: true,
		Phrases:         MeetingPhrases,
		PhraseBoost:     10,
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

func (g *GoogleSpeech) config(language string) *speechpb.RecognitionConfig {
	if language == "" {
		language = "en-US"
	}
	cfg := &speechpb.RecognitionConfig{
		Encoding:                   g.Encoding,
		SampleRateHertz:            g.SampleRateHz,
		LanguageCode:               language,
		Model:                      g.Model,
		UseEnhanced:                g.UseEnhanced,
		ProfanityFilter:            g.ProfanityFilter,
		EnableAutomaticPunctuation: true,
		MaxAlternatives:            1,
	}
	if len(g.Phrases) > 0 {
		cfg.SpeechContexts = []*speechpb.SpeechContext{{Phrases: g.Phrases, Boost: g.PhraseBoost}}
	}
	return cfg
}

// Transcribe joins the top alternative of every result. Confidence comes from the first result.
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: g.config(language),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", 0, err
	}
	return joinResults(resp.GetResults())
}

func joinResults(results []*speechpb.SpeechRecognitionResult) (string, float64, error) {
	if len(results) == 0 {
		return "", 0, ErrNoResults
	}

	parts := make([]string, 0, len(results))
	var conf float64
	for i, r := range results {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if i == 0 {
			conf = float64(alts[0].GetConfidence())
		}
		if t := alts[0].GetTranscript(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), conf, nil
}
