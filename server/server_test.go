package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pixelplay/alert"
	"pixelplay/config"
	"pixelplay/upstream"
)

func newTestRouter(t *testing.T, upstreamHandler http.Handler) http.Handler {
	t.Helper()

	origin := httptest.NewServer(upstreamHandler)
	t.Cleanup(origin.Close)

	cfg := config.Default()
	cfg.Upstream.BaseURL = origin.URL

	client, err := upstream.NewClient(cfg.Upstream)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return NewRouter(cfg, client, alert.Nop{})
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestFramingHeaders(t *testing.T) {
	h := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "audio")
	}))

	tests := []struct {
		name    string
		target  string
		framing bool
	}{
		{"embed page", "/embed/abc", true},
		{"embed page with query", "/embed/abc?title=x&artist=y", true},
		{"embed asset", "/embed/assets/player.js", true},
		{"embed not found", "/embed/", true},
		{"download", "/api/download/abc", false},
		{"health", "/healthz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.target)

			xfo := rec.Header().Get("X-Frame-Options")
			csp := rec.Header().Get("Content-Security-Policy")
			if tt.framing {
				if xfo != "ALLOWALL" {
					t.Errorf("X-Frame-Options = %q, want ALLOWALL", xfo)
				}
				if csp != "frame-ancestors *" {
					t.Errorf("Content-Security-Policy = %q, want frame-ancestors *", csp)
				}
				return
			}
			if xfo != "" || csp != "" {
				t.Errorf("unexpected framing headers %q / %q", xfo, csp)
			}
		})
	}
}

func TestHeaderPolicyDoesNotShareState(t *testing.T) {
	rules := []HeaderRule{{Prefix: "/x/", Headers: map[string]string{"X-Test": "1"}}}
	mw := headerPolicy(rules)
	rules[0].Headers["X-Test"] = "2"

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("X-Test", "handler")
	}))

	for i := 0; i < 2; i++ {
		rec := serve(h, "/x/y")
		got := rec.Header().Values("X-Test")
		if len(got) != 2 || got[0] != "1" {
			t.Fatalf("request %d: X-Test = %v, want [1 handler]", i, got)
		}
	}
}

func TestDownloadEndToEnd(t *testing.T) {
	var gotPath string
	h := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "audio/ogg")
		io.WriteString(w, "OggS-data")
	}))

	rec := serve(h, "/api/download/a%2Fb?title=Caf%C3%A9%20Night!")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if gotPath != "/api/file/a%2Fb" {
		t.Errorf("upstream path = %q, want /api/file/a%%2Fb", gotPath)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/ogg" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="Cafe Night.mp3"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if rec.Body.String() != "OggS-data" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestDownloadNotFound(t *testing.T) {
	h := newTestRouter(t, http.NotFoundHandler())

	rec := serve(h, "/api/download/missing")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "File not found" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestEmbedEscapedID(t *testing.T) {
	h := newTestRouter(t, http.NotFoundHandler())

	rec := serve(h, "/embed/a%20b?title=Song")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "/api/file/a%20b") {
		t.Error("direct source not re-encoded")
	}
	if !strings.Contains(body, "/api/download/a%20b?title=Song") {
		t.Error("download link not re-encoded")
	}
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(t, http.NotFoundHandler())

	rec := serve(h, "/healthz")

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestStartStop(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"

	client, err := upstream.NewClient(cfg.Upstream)
	if err != nil {
		t.Fatal(err)
	}

	s := New(cfg, client, alert.Nop{})
	errc := make(chan error, 1)
	if err := s.Start(errc); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop: %v", err)
	}

	select {
	case err := <-errc:
		t.Errorf("unexpected serve error: %v", err)
	default:
	}
}
