package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LibreTranslate talks to a LibreTranslate-compatible /translate endpoint.
type LibreTranslate struct {
	base   string
	apiKey string
	http   *http.Client
}

func NewLibreTranslate(baseURL, apiKey string, timeout time.Duration) *LibreTranslate {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &LibreTranslate{
		base:   strings.TrimRight(baseURL, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

func (l *LibreTranslate) Close() error { return nil }

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText   string          `json:"translatedText"`
	DetectedLanguage json.RawMessage `json:"detectedLanguage"`
	Error            string          `json:"error"`
}

// detected accepts both {"language":"en","confidence":90} and a bare "en".
func (r libreResponse) detected() string {
	if len(r.DetectedLanguage) == 0 {
		return ""
	}
	var obj struct {
		Language string `json:"language"`
	}
	if err := json.Unmarshal(r.DetectedLanguage, &obj); err == nil {
		return obj.Language
	}
	var s string
	_ = json.Unmarshal(r.DetectedLanguage, &s)
	return s
}

func (l *LibreTranslate) Translate(ctx context.Context, text, source, target string) (Result, error) {
	src := BaseLanguage(source)
	if src == "" {
		src = "auto"
	}
	body, err := json.Marshal(libreRequest{
		Q:      text,
		Source: src,
		Target: BaseLanguage(target),
		Format: "text",
		APIKey: l.apiKey,
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.base+"/translate", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, err
	}
	var lr libreResponse
	if err := json.Unmarshal(raw, &lr); err != nil {
		return Result{}, fmt.Errorf("libretranslate http %d: decode response: %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("libretranslate http %d: %s", resp.StatusCode, lr.Error)
	}
	return Result{Text: strings.TrimSpace(lr.TranslatedText), DetectedSource: lr.detected()}, nil
}
