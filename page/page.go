package page

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"

	"pixelplay/player"
)

//go:embed templates/embed.html
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

// AssetPath is where the player stylesheet and script are mounted.
const AssetPath = "/embed/assets"

var embedTemplate = template.Must(template.New("embed.html").Funcs(template.FuncMap{
	"formatTime": func(seconds float64) string {
		return player.FormatTime(seconds)
	},
}).ParseFS(templateFS, "templates/embed.html"))

type embedData struct {
	Params
	AssetBase string
}

// Handler serves GET /embed/{id}.
type Handler struct {
	fileURL func(id string) string
	param   func(r *http.Request) string
	logger  *slog.Logger
}

// NewHandler creates the embed page handler. fileURL builds the direct
// upstream URL; param extracts the file identifier from the request path.
func NewHandler(fileURL func(id string) string, param func(r *http.Request) string) *Handler {
	return &Handler{
		fileURL: fileURL,
		param:   param,
		logger:  slog.With("component", "embed"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params := Resolve(h.param(r), r.URL.Query(), h.fileURL)

	var buf bytes.Buffer
	if err := Render(&buf, params); err != nil {
		h.logger.Error("Failed to render embed page",
			slog.String("id", params.ID),
			slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// Render writes the full embed document for params.
func Render(w io.Writer, params Params) error {
	return embedTemplate.Execute(w, embedData{Params: params, AssetBase: AssetPath})
}

// Assets serves the player stylesheet and script. Mount it under AssetPath
// with the prefix stripped.
func Assets() http.Handler {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
