package tts

import (
	"context"
	"errors"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

type GoogleTTS struct {
	c *texttospeech.Client

	Gender   texttospeechpb.SsmlVoiceGender
	Encoding texttospeechpb.AudioEncoding
}

func NewGoogleTTS(ctx context.Context, credentialsFile string) (*GoogleTTS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleTTS{
		c:        c,
		Gender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
		Encoding: texttospeechpb.AudioEncoding_MP3,
	}, nil
}

func (g *GoogleTTS) Close() error { return g.c.Close() }

func (g *GoogleTTS) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("nothing to synthesize")
	}
	if language == "" {
		language = "en-US"
	}
	resp, err := g.c.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: language,
			SsmlGender:   g.Gender,
		},
		AudioConfig: &texttospeechpb.AudioConfig{AudioEncoding: g.Encoding},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, errors.New("synthesis returned no audio")
	}
	return resp.GetAudioContent(), nil
}
