package stt

import (
	"context"
	"errors"
)

// ErrNoResults is returned when the engine answered but recognized nothing.
var ErrNoResults = errors.New("no transcription results")

type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}
