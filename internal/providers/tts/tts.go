package tts

import "context"

type Provider interface {
	// Synthesize returns encoded audio (MP3) for text spoken in language.
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
	Close() error
}
