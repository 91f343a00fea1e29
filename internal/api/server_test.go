package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dgallion1/subtrans/internal/config"
	"github.com/dgallion1/subtrans/internal/language"
	"github.com/dgallion1/subtrans/internal/pipeline"
	"github.com/dgallion1/subtrans/internal/store"
	"github.com/dgallion1/subtrans/internal/translate"
)

const (
	testAPIKey    = "test-key"
	testJWTSecret = "test-jwt-secret"
	sampleSRT     = "1\n00:00:01,000 --> 00:00:02,500\nHallo Welt.\n"
)

func newTestServer(t *testing.T, start bool) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		APIKey:         testAPIKey,
		JWTSecret:      testJWTSecret,
		CORSOrigins:    []string{"*"},
		DefaultEngine:  "passthrough",
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
	}

	db, err := store.Open(filepath.Join(t.TempDir(), "subtrans.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	languages := language.DefaultRegistry()
	stats := translate.NewLatencyStats(time.Hour)
	runner := pipeline.NewRunner(languages, db, translate.BackendConfig{Stats: stats}, 2, log)
	orch := pipeline.NewOrchestrator(cfg, runner, log)
	if start {
		orch.Start(context.Background())
		t.Cleanup(orch.Stop)
	}
	return NewServer(orch, languages, db, stats, log, cfg)
}

func do(srv http.Handler, req *http.Request) *httptest.ResponseRecorder {
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write([]byte(content))
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/translate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, false)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, false)
	hour := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusUnauthorized},
		{"api key", "Bearer " + testAPIKey, http.StatusOK},
		{"jwt", "Bearer " + signToken(t, testJWTSecret, jwt.MapClaims{"sub": "ops", "exp": hour}), http.StatusOK},
		{"jwt wrong secret", "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "ops", "exp": hour}), http.StatusUnauthorized},
		{"jwt expired", "Bearer " + signToken(t, testJWTSecret, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized},
		{"jwt without expiry", "Bearer " + signToken(t, testJWTSecret, jwt.MapClaims{"sub": "ops"}), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/languages", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestLanguages(t *testing.T) {
	srv := newTestServer(t, false)
	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/languages", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	langs, _ := body["languages"].([]any)
	if len(langs) != 5 {
		t.Errorf("expected 5 languages, got %d", len(langs))
	}
	if !strings.Contains(rec.Body.String(), `"passthrough"`) {
		t.Errorf("expected engine list in %s", rec.Body.String())
	}
}

func TestTranslate_Validation(t *testing.T) {
	srv := newTestServer(t, false)

	tests := []struct {
		name     string
		filename string
		fields   map[string]string
	}{
		{"missing file", "", map[string]string{"target_lang": "en"}},
		{"bad extension", "movie.pdf", map[string]string{"target_lang": "en"}},
		{"missing target", "movie.srt", map[string]string{"source_lang": "de"}},
		{"unknown target", "movie.srt", map[string]string{"target_lang": "xx"}},
		{"unknown source", "movie.srt", map[string]string{"source_lang": "xx", "target_lang": "en"}},
		{"unknown engine", "movie.srt", map[string]string{"target_lang": "en", "engine": "babelfish"}},
		{"bad flag", "movie.srt", map[string]string{"target_lang": "en", "purge_cc": "maybe"}},
		{"bad shift", "movie.srt", map[string]string{"target_lang": "en", "shift_ms": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, uploadRequest(t, tt.filename, sampleSRT, tt.fields))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestTranslate_TooLarge(t *testing.T) {
	srv := newTestServer(t, false)
	big := strings.Repeat("x", int(srv.cfg.MaxUploadBytes)+1)
	rec := do(srv, uploadRequest(t, "movie.srt", big, map[string]string{"target_lang": "en"}))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestUnknownJob(t *testing.T) {
	srv := newTestServer(t, false)
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/translate/nope/status", nil),
		httptest.NewRequest(http.MethodGet, "/api/translate/nope/result", nil),
		httptest.NewRequest(http.MethodGet, "/api/translate/nope/report", nil),
		httptest.NewRequest(http.MethodDelete, "/api/translate/nope", nil),
	} {
		if rec := do(srv, req); rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", req.Method, req.URL.Path, rec.Code)
		}
	}
}

func TestQueuedJob(t *testing.T) {
	srv := newTestServer(t, false)
	rec := do(srv, uploadRequest(t, "movie.srt", sampleSRT, map[string]string{"source_lang": "de", "target_lang": "en"}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	jobID := decode(t, rec)["job_id"].(string)

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/api/translate/"+jobID+"/result", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for a queued job, got %d", rec.Code)
	}

	rec = do(srv, httptest.NewRequest(http.MethodDelete, "/api/translate/"+jobID, nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202 on cancel, got %d", rec.Code)
	}
}

func waitCompleted(t *testing.T, srv *Server, jobID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/translate/"+jobID+"/status", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status: expected 200, got %d", rec.Code)
		}
		snap := decode(t, rec)
		switch snap["status"] {
		case string(pipeline.StatusCompleted):
			return snap
		case string(pipeline.StatusFailed), string(pipeline.StatusCancelled):
			t.Fatalf("job ended with %v: %v", snap["status"], snap["progress"])
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not complete", jobID)
	return nil
}

func TestTranslate_EndToEnd(t *testing.T) {
	srv := newTestServer(t, true)

	rec := do(srv, uploadRequest(t, "movie.srt", sampleSRT, map[string]string{
		"source_lang": "de",
		"target_lang": "en",
		"engine":      "passthrough",
	}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	jobID := body["job_id"].(string)
	if body["poll_url"] != "/api/translate/"+jobID+"/status" {
		t.Errorf("unexpected poll url %v", body["poll_url"])
	}

	snap := waitCompleted(t, srv, jobID)
	if snap["source_lang"] != "de" || snap["engine"] != "passthrough" {
		t.Errorf("unexpected snapshot %v", snap)
	}

	t.Run("result srt", func(t *testing.T) {
		rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/translate/"+jobID+"/result", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec.Body.String() != sampleSRT {
			t.Errorf("expected %q, got %q", sampleSRT, rec.Body.String())
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "movie.en.srt") {
			t.Errorf("unexpected Content-Disposition %q", cd)
		}
	})

	t.Run("result vtt", func(t *testing.T) {
		rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/translate/"+jobID+"/result?format=vtt", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.HasPrefix(rec.Body.String(), "WEBVTT") {
			t.Errorf("expected WebVTT output, got %q", rec.Body.String())
		}
	})

	t.Run("result bad format", func(t *testing.T) {
		rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/translate/"+jobID+"/result?format=docx", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("report", func(t *testing.T) {
		rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/translate/"+jobID+"/report", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "<h1>movie.srt</h1>") {
			t.Errorf("expected report title, got %s", rec.Body.String())
		}
	})

	t.Run("cancel finished", func(t *testing.T) {
		rec := do(srv, httptest.NewRequest(http.MethodDelete, "/api/translate/"+jobID, nil))
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("stats", func(t *testing.T) {
		rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/stats/backend", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decode(t, rec)
		if _, ok := body["latency"].(map[string]any); !ok {
			t.Errorf("expected latency keyed by backend, got %v", body["latency"])
		}
		usage, _ := body["usage_24h"].([]any)
		if len(usage) != 1 {
			t.Errorf("expected one usage row, got %v", usage)
		}
	})

	t.Run("glossary", func(t *testing.T) {
		rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/glossary?source=de&target=en", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if n := decode(t, rec)["entries"]; n != float64(1) {
			t.Errorf("expected 1 glossary entry, got %v", n)
		}

		rec = do(srv, httptest.NewRequest(http.MethodDelete, "/api/glossary?source=de&target=en", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if n := decode(t, rec)["deleted"]; n != float64(1) {
			t.Errorf("expected 1 deleted entry, got %v", n)
		}

		rec = do(srv, httptest.NewRequest(http.MethodGet, "/api/glossary?source=de", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 without target, got %d", rec.Code)
		}
	})
}

func TestCORSOptions(t *testing.T) {
	if CORSOptions(nil).AllowCredentials {
		t.Error("expected credentials disabled for wildcard origin")
	}
	opts := CORSOptions([]string{"https://subs.example.com"})
	if !opts.AllowCredentials || opts.AllowedOrigins[0] != "https://subs.example.com" {
		t.Errorf("unexpected options %+v", opts)
	}
}
