// Package proxy relays upstream audio files to the browser as attachments.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"pixelplay/alert"
	"pixelplay/upstream"

	"github.com/dustin/go-humanize"
)

const copyBufferSize = 32 * 1024

// Opener fetches an upstream file by identifier.
type Opener interface {
	Open(ctx context.Context, id string) (*upstream.File, error)
}

// Download serves GET /api/download/{id}?title=
type Download struct {
	opener      Opener
	notifier    alert.Notifier
	cacheMaxAge time.Duration
	param       func(r *http.Request) string
	logger      *slog.Logger
}

// NewDownload creates the download handler. param extracts the file
// identifier from the request path.
func NewDownload(opener Opener, notifier alert.Notifier, cacheMaxAge time.Duration, param func(r *http.Request) string) *Download {
	if notifier == nil {
		notifier = alert.Nop{}
	}
	return &Download{
		opener:      opener,
		notifier:    notifier,
		cacheMaxAge: cacheMaxAge,
		param:       param,
		logger:      slog.With("component", "download"),
	}
}

// ContentDisposition returns the attachment header value for a title.
func ContentDisposition(title string) string {
	return fmt.Sprintf(`attachment; filename="%s.mp3"`, SanitizeTitle(title))
}

func (d *Download) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := d.param(r)

	title := r.URL.Query().Get("title")
	if title == "" {
		title = id
	}

	file, err := d.opener.Open(r.Context(), id)
	if err != nil {
		d.fail(w, r, id, err)
		return
	}
	defer file.Body.Close()

	h := w.Header()
	h.Set("Content-Type", file.ContentType)
	h.Set("Content-Disposition", ContentDisposition(title))
	h.Set("Cache-Control", "public, max-age="+strconv.FormatInt(int64(d.cacheMaxAge/time.Second), 10))
	if file.ContentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(file.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	buf := make([]byte, copyBufferSize)
	n, err := io.CopyBuffer(w, file.Body, buf)
	if err != nil {
		d.logger.Warn("Relay interrupted",
			slog.String("id", id),
			slog.String("relayed", humanize.IBytes(uint64(n))),
			slog.Any("error", err))
		// The status is already sent. Aborting drops the connection so the
		// client sees a failed download rather than a short file.
		panic(http.ErrAbortHandler)
	}

	d.logger.Info("Relayed file",
		slog.String("id", id),
		slog.String("content_type", file.ContentType),
		slog.String("size", humanize.IBytes(uint64(n))))
}

func (d *Download) fail(w http.ResponseWriter, r *http.Request, id string, err error) {
	switch {
	case errors.Is(err, upstream.ErrNotFound):
		d.logger.Info("File not found upstream", slog.String("id", id), slog.Any("error", err))
		plainText(w, http.StatusNotFound, "File not found")
		return
	case errors.Is(err, upstream.ErrTooLarge):
		d.logger.Warn("File exceeds size limit", slog.String("id", id), slog.Any("error", err))
		plainText(w, http.StatusBadGateway, "File too large")
		return
	case r.Context().Err() != nil:
		d.logger.Debug("Client went away before upstream answered", slog.String("id", id))
		return
	}

	d.logger.Error("Upstream fetch failed", slog.String("id", id), slog.Any("error", err))
	d.notifier.UpstreamFailure(id, err)
	plainText(w, http.StatusBadGateway, "Upstream unavailable")
}

// plainText writes msg verbatim, unlike http.Error which appends a newline.
func plainText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, msg)
}
