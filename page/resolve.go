// Package page renders the iframe-friendly embed page that hosts the
// browser player.
package page

import (
	"net/url"

	"pixelplay/upstream"
)

const (
	DefaultTitle  = "Untitled"
	DefaultArtist = ""
)

// Params is everything the player needs for one file.
type Params struct {
	ID          string
	Title       string // as given; may be empty
	Artist      string
	Src         string // direct upstream URL, streamed by the browser
	DownloadURL string // same-origin proxy URL
}

// DisplayTitle is the title shown in the player, never empty.
func (p Params) DisplayTitle() string {
	if p.Title == "" {
		return DefaultTitle
	}
	return p.Title
}

// Resolve maps the route id and query onto player parameters. fileURL
// builds the direct upstream URL for an id.
func Resolve(id string, query url.Values, fileURL func(id string) string) Params {
	title := single(query, "title", DefaultTitle)
	artist := single(query, "artist", DefaultArtist)

	return Params{
		ID:          id,
		Title:       title,
		Artist:      artist,
		Src:         fileURL(id),
		DownloadURL: DownloadURL(id, title),
	}
}

// DownloadURL returns the proxy path for id with title as a query parameter.
func DownloadURL(id, title string) string {
	return "/api/download/" + upstream.EscapeComponent(id) + "?title=" + upstream.EscapeComponent(title)
}

// single returns the only value of key, or def when it is absent or
// repeated.
func single(query url.Values, key, def string) string {
	vs, ok := query[key]
	if !ok || len(vs) != 1 {
		return def
	}
	return vs[0]
}
