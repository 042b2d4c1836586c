package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/five82/smashtrack/internal/gateway"
	"github.com/five82/smashtrack/internal/upload"
)

type sessionTokens struct {
	mu     sync.Mutex
	clears int
}

func (s *sessionTokens) Get() (string, bool) { return "user-token", true }
func (s *sessionTokens) Clear() error {
	s.mu.Lock()
	s.clears++
	s.mu.Unlock()
	return nil
}

func candidateBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{
				map[string]any{"text": "thinking...", "thought": true},
				map[string]any{"text": text},
			}},
		}},
	})
	return string(b)
}

func newProvider(t *testing.T, handler http.HandlerFunc) (*ProviderSubmitter, *sessionTokens, upload.MediaReference) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	tokens := &sessionTokens{}
	client, err := gateway.New("http://backend.invalid/api", tokens)
	if err != nil {
		t.Fatalf("gateway.New returned error: %v", err)
	}
	p, err := NewProviderSubmitter(client, server.URL+"/", "gemini-2.5-flash", "key-1")
	if err != nil {
		t.Fatalf("NewProviderSubmitter returned error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "smash.mp4")
	if err := os.WriteFile(path, []byte("clip-bytes"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p, tokens, upload.MediaReference{ID: "local-1", LocalPath: path, Filename: "smash.mp4", MIMEType: "video/mp4"}
}

func TestProviderSubmit_FullModeRequest(t *testing.T) {
	var got generateRequest
	p, _, ref := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.5-flash:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("X-Goog-Api-Key") != "key-1" {
			t.Errorf("api key header = %q", r.Header.Get("X-Goog-Api-Key"))
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("user credential leaked to provider")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(candidateBody(`{"speed":320,"level":"精英级","score":8.9}`)))
	})
	ref.Trim = &upload.TrimWindow{Start: 1.5, End: 4}

	raw, err := p.Submit(context.Background(), ref, ModeFull)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if r := Normalize(raw); r.Speed != 320 || r.Level != "精英级" {
		t.Fatalf("report = %+v", r)
	}

	cfg := got.GenerationConfig
	if cfg.MaxOutputTokens != fullMaxOutputTokens || cfg.ThinkingConfig == nil || cfg.ThinkingConfig.ThinkingBudget != fullThinkingBudget {
		t.Fatalf("generationConfig = %+v, want full budget", cfg)
	}
	if cfg.ResponseMIMEType != "application/json" || cfg.ResponseSchema["type"] != "OBJECT" {
		t.Fatalf("response format = %q %v", cfg.ResponseMIMEType, cfg.ResponseSchema["type"])
	}
	parts := got.Contents[0].Parts
	if len(parts) != 2 || parts[0].InlineData == nil || parts[1].Text == "" {
		t.Fatalf("parts = %+v", parts)
	}
	data, _ := base64.StdEncoding.DecodeString(parts[0].InlineData.Data)
	if string(data) != "clip-bytes" || parts[0].InlineData.MIMEType != "video/mp4" {
		t.Fatalf("inline data = %q (%s)", data, parts[0].InlineData.MIMEType)
	}
	if vm := parts[0].VideoMetadata; vm == nil || vm.StartOffset != "1.5s" || vm.EndOffset != "4s" {
		t.Fatalf("videoMetadata = %+v", vm)
	}
}

func TestProviderSubmit_DegradedModeOmitsBudget(t *testing.T) {
	var body map[string]any
	p, _, ref := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(candidateBody("```json\n{\"speed\":150}\n```")))
	})
	raw, err := p.Submit(context.Background(), ref, ModeDegraded)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if Normalize(raw).Speed != 150 {
		t.Fatalf("fenced JSON not decoded: %#v", raw)
	}
	cfg, _ := body["generationConfig"].(map[string]any)
	if _, ok := cfg["maxOutputTokens"]; ok {
		t.Fatalf("degraded request carries maxOutputTokens")
	}
	if _, ok := cfg["thinkingConfig"]; ok {
		t.Fatalf("degraded request carries thinkingConfig")
	}
}

func TestProviderSubmit_OverloadIsExhaustedAndKeepsSession(t *testing.T) {
	p, tokens, ref := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"The model is overloaded. Please try again later.","status":"UNAVAILABLE"}}`))
	})
	_, err := p.Submit(context.Background(), ref, ModeFull)
	if !IsExhausted(err) {
		t.Fatalf("Submit error = %v, want exhausted", err)
	}
	if tokens.clears != 0 {
		t.Fatalf("provider failure cleared the session")
	}
}

func TestProviderSubmit_EmptyResponse(t *testing.T) {
	p, _, ref := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	})
	_, err := p.Submit(context.Background(), ref, ModeFull)
	if !errors.Is(err, ErrEmptyResponse) || !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("Submit error = %v, want ErrEmptyResponse with block reason", err)
	}
}

func TestProviderSubmit_MalformedText(t *testing.T) {
	p, _, ref := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(candidateBody("speed is about 300")))
	})
	_, err := p.Submit(context.Background(), ref, ModeFull)
	if !errors.Is(err, gateway.ErrServer) {
		t.Fatalf("Submit error = %v, want ErrServer", err)
	}
}

func TestProviderSubmit_LocalPreconditions(t *testing.T) {
	p, _, ref := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected provider call")
	})
	noFile := ref
	noFile.LocalPath = ""
	if _, err := p.Submit(context.Background(), noFile, ModeFull); !errors.Is(err, gateway.ErrValidation) {
		t.Fatalf("Submit without file error = %v, want ErrValidation", err)
	}
	p.apiKey = ""
	if _, err := p.Submit(context.Background(), ref, ModeFull); !errors.Is(err, gateway.ErrValidation) {
		t.Fatalf("Submit without key error = %v, want ErrValidation", err)
	}
}

func TestNewProviderSubmitter_RequiresEndpointAndModel(t *testing.T) {
	if _, err := NewProviderSubmitter(nil, "", "m", "k"); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
	if _, err := NewProviderSubmitter(nil, "https://x", " ", "k"); err == nil {
		t.Fatalf("expected error for empty model")
	}
}

func TestBackendSubmitter(t *testing.T) {
	var start startRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/analysis/start", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer user-token" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&start)
		_, _ = w.Write([]byte(`{"id":"an-1","video_id":"vid-1","speed":260,"rank_position":12}`))
	})
	mux.HandleFunc("/api/analysis/an-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"an-1","speed":260}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := gateway.New(server.URL+"/api", &sessionTokens{})
	if err != nil {
		t.Fatalf("gateway.New returned error: %v", err)
	}
	b := NewBackendSubmitter(client)

	raw, err := b.Submit(context.Background(), upload.MediaReference{ID: "vid-1"}, ModeDegraded)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if start.VideoID != "vid-1" || start.Mode != "degraded" {
		t.Fatalf("start request = %+v", start)
	}
	if r := Normalize(raw); r.RankPosition != 12 || r.ID != "an-1" {
		t.Fatalf("report = %+v", r)
	}

	raw, err = b.Fetch(context.Background(), "an-1")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if Normalize(raw).Speed != 260 {
		t.Fatalf("fetched = %#v", raw)
	}

	if _, err := b.Submit(context.Background(), upload.MediaReference{}, ModeFull); !errors.Is(err, gateway.ErrValidation) {
		t.Fatalf("Submit without id error = %v, want ErrValidation", err)
	}
}
