package page

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func fileURL(id string) string {
	return "https://pixeldrain.com/api/file/" + url.PathEscape(id)
}

func pathID(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, "/embed/")
}

func TestResolveDefaults(t *testing.T) {
	p := Resolve("abc", url.Values{}, fileURL)

	if p.Title != "Untitled" {
		t.Errorf("Title = %q, want Untitled", p.Title)
	}
	if p.Artist != "" {
		t.Errorf("Artist = %q, want empty", p.Artist)
	}
	if p.Src != "https://pixeldrain.com/api/file/abc" {
		t.Errorf("Src = %q", p.Src)
	}
	if p.DownloadURL != "/api/download/abc?title=Untitled" {
		t.Errorf("DownloadURL = %q", p.DownloadURL)
	}

	u, err := url.Parse(p.DownloadURL)
	if err != nil {
		t.Fatal(err)
	}
	if got := u.Query().Get("title"); got != "Untitled" {
		t.Errorf("download title param = %q, want Untitled", got)
	}
}

func TestResolveEncodes(t *testing.T) {
	q := url.Values{"title": {"Rock & Roll / 100%"}, "artist": {"AC/DC"}}
	p := Resolve("a b/c", q, fileURL)

	if p.Src != "https://pixeldrain.com/api/file/a%20b%2Fc" {
		t.Errorf("Src = %q", p.Src)
	}
	if !strings.HasPrefix(p.DownloadURL, "/api/download/a%20b%2Fc?title=") {
		t.Errorf("DownloadURL = %q", p.DownloadURL)
	}

	u, err := url.Parse(p.DownloadURL)
	if err != nil {
		t.Fatal(err)
	}
	if got := u.Query().Get("title"); got != "Rock & Roll / 100%" {
		t.Errorf("round-tripped title = %q", got)
	}
	if p.Artist != "AC/DC" {
		t.Errorf("Artist = %q", p.Artist)
	}
}

func TestDownloadURLEncodesReservedCharacters(t *testing.T) {
	got := DownloadURL("a+b:c@d&e=f", "x y+z")
	want := "/api/download/a%2Bb%3Ac%40d%26e%3Df?title=x%20y%2Bz"
	if got != want {
		t.Errorf("DownloadURL() = %q, want %q", got, want)
	}
}

func TestResolveRepeatedParamIsAbsent(t *testing.T) {
	q := url.Values{"title": {"a", "b"}, "artist": {"x", "y"}}
	p := Resolve("id", q, fileURL)

	if p.Title != DefaultTitle || p.Artist != DefaultArtist {
		t.Errorf("Title/Artist = %q/%q, want defaults", p.Title, p.Artist)
	}
}

func TestResolveEmptyTitle(t *testing.T) {
	p := Resolve("id", url.Values{"title": {""}}, fileURL)

	if p.Title != "" {
		t.Errorf("Title = %q, want empty as given", p.Title)
	}
	if p.DisplayTitle() != "Untitled" {
		t.Errorf("DisplayTitle() = %q, want Untitled", p.DisplayTitle())
	}
}

func TestHandlerRendersDocument(t *testing.T) {
	h := NewHandler(fileURL, pathID)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/embed/abc?title=Night%20Drive&artist=The%20Band", nil)
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Night Drive — Player</title>",
		"background:transparent",
		`src="https://pixeldrain.com/api/file/abc"`,
		`href="/api/download/abc?title=Night`,
		">The Band<",
		`preload="metadata"`,
		`aria-label="Seek"`,
		`aria-label="Volume"`,
		AssetPath + "/player.js",
		AssetPath + "/player.css",
		">0:00<",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestHandlerEscapesTitle(t *testing.T) {
	h := NewHandler(fileURL, pathID)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/embed/abc?title=%3Cscript%3Ealert(1)%3C%2Fscript%3E", nil)
	h.ServeHTTP(rec, req)

	if strings.Contains(rec.Body.String(), "<script>alert(1)</script>") {
		t.Error("title rendered unescaped")
	}
}

func TestHandlerDefaultTitle(t *testing.T) {
	h := NewHandler(fileURL, pathID)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/embed/abc", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "<title>Untitled — Player</title>") {
		t.Error("default page title missing")
	}
	if !strings.Contains(body, "/api/download/abc?title=Untitled") {
		t.Error("default download title missing")
	}
}

func TestAssets(t *testing.T) {
	srv := httptest.NewServer(http.StripPrefix(AssetPath, Assets()))
	defer srv.Close()

	for path, marker := range map[string]string{
		"/player.js":  "removeEventListener",
		"/player.css": ".pp-bar",
	} {
		resp, err := http.Get(srv.URL + AssetPath + path)
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status %d", path, resp.StatusCode)
		}
		if !strings.Contains(string(body), marker) {
			t.Errorf("%s: missing %q", path, marker)
		}
	}
}

func TestPlayerScriptSurvivesBackForwardCache(t *testing.T) {
	js, err := assetFS.ReadFile("assets/player.js")
	if err != nil {
		t.Fatal(err)
	}
	script := string(js)

	if strings.Contains(script, "once: true") {
		t.Error("pagehide handler must stay registered across cache restores")
	}
	if !strings.Contains(script, "if (event.persisted)") {
		t.Error("pagehide handler unmounts pages kept in the back/forward cache")
	}
}
