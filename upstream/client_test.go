package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pixelplay/config"
)

func newTestClient(t *testing.T, baseURL string, maxSize int64) *Client {
	t.Helper()
	c, err := NewClient(config.UpstreamConfig{BaseURL: baseURL, Timeout: 5 * time.Second, MaxSize: maxSize})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestFileURL(t *testing.T) {
	c := newTestClient(t, "https://pixeldrain.com/", 0)

	tests := []struct {
		id   string
		want string
	}{
		{"abc123", "https://pixeldrain.com/api/file/abc123"},
		{"a b", "https://pixeldrain.com/api/file/a%20b"},
		{"a/b", "https://pixeldrain.com/api/file/a%2Fb"},
		{"a?b#c", "https://pixeldrain.com/api/file/a%3Fb%23c"},
		{"a+b:c@d&e=f", "https://pixeldrain.com/api/file/a%2Bb%3Ac%40d%26e%3Df"},
	}

	for _, tt := range tests {
		if got := c.FileURL(tt.id); got != tt.want {
			t.Errorf("FileURL(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestOpenSuccess(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "audio/wav")
		io.WriteString(w, "RIFFdata")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	f, err := c.Open(context.Background(), "x/y")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Body.Close()

	if gotPath != "/api/file/x%2Fy" {
		t.Errorf("upstream path = %q", gotPath)
	}
	if f.ContentType != "audio/wav" {
		t.Errorf("ContentType = %q", f.ContentType)
	}
	body, _ := io.ReadAll(f.Body)
	if string(body) != "RIFFdata" {
		t.Errorf("body = %q", body)
	}
}

func TestOpenDefaultContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// An explicit empty value stops net/http from sniffing one.
		w.Header()["Content-Type"] = nil
		w.Write([]byte{0xff, 0xfb, 0x90, 0x00})
	}))
	defer srv.Close()

	f, err := newTestClient(t, srv.URL, 0).Open(context.Background(), "id")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Body.Close()

	if f.ContentType != DefaultContentType {
		t.Errorf("ContentType = %q, want %q", f.ContentType, DefaultContentType)
	}
}

func TestOpenNotFound(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError, http.StatusMovedPermanently} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := newTestClient(t, srv.URL, 0).Open(context.Background(), "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("status %d: error = %v, want ErrNotFound", status, err)
		}
		srv.Close()
	}
}

func TestOpenUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url, 0).Open(context.Background(), "id")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestOpenTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.Write(make([]byte, 100))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 10).Open(context.Background(), "id")
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("error = %v, want ErrTooLarge", err)
	}
}

func TestOpenUndeclaredLengthOverLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte(strings.Repeat("a", 64)))
		w.(http.Flusher).Flush()
		w.Write([]byte(strings.Repeat("b", 64)))
	}))
	defer srv.Close()

	f, err := newTestClient(t, srv.URL, 80).Open(context.Background(), "id")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Body.Close()

	body, err := io.ReadAll(f.Body)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("ReadAll() error = %v, want ErrTooLarge", err)
	}
	if len(body) != 80 {
		t.Errorf("read %d bytes before failing, want 80", len(body))
	}
}

func TestOpenUndeclaredLengthAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 40)))
		w.(http.Flusher).Flush()
		w.Write([]byte(strings.Repeat("b", 40)))
	}))
	defer srv.Close()

	f, err := newTestClient(t, srv.URL, 80).Open(context.Background(), "id")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Body.Close()

	body, err := io.ReadAll(f.Body)
	if err != nil {
		t.Errorf("ReadAll() error = %v", err)
	}
	if len(body) != 80 {
		t.Errorf("read %d bytes, want 80", len(body))
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	c := newTestClient(t, srv.URL, 0)

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	srv.Close()
	if err := c.Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Ping() after close error = %v, want ErrUnavailable", err)
	}
}
