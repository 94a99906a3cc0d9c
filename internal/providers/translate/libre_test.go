package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLibreTranslate(t *testing.T) {
	var got libreRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translatedText":" hola ","detectedLanguage":{"confidence":92,"language":"en"}}`))
	}))
	defer srv.Close()

	l := NewLibreTranslate(srv.URL+"/", "secret", time.Second)
	res, err := l.Translate(context.Background(), "hello", "", "es-ES")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.Text != "hola" || res.DetectedSource != "en" {
		t.Errorf("result = %+v", res)
	}
	if got.Source != "auto" || got.Target != "es" || got.APIKey != "secret" || got.Format != "text" {
		t.Errorf("request = %+v", got)
	}
}

func TestLibreTranslateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"es is not supported"}`))
	}))
	defer srv.Close()

	if _, err := NewLibreTranslate(srv.URL, "", time.Second).Translate(context.Background(), "hi", "en", "es"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestBaseLanguage(t *testing.T) {
	cases := map[string]string{"es-ES": "es", "en_US": "en", "FR": "fr", "": "", " id-ID ": "id"}
	for in, want := range cases {
		if got := BaseLanguage(in); got != want {
			t.Errorf("BaseLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}
