package translate

import (
	"context"
	"strings"
)

type Result struct {
	Text string
	// DetectedSource is set when the engine auto-detected the source language.
	DetectedSource string
}

type Provider interface {
	Translate(ctx context.Context, text, source, target string) (Result, error)
	Close() error
}

// BaseLanguage reduces a BCP-47 tag to its primary subtag: "es-ES" -> "es".
func BaseLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
