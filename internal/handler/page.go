package handler

import (
	"embed"
	"html/template"
	"net/http"

	"squeeze/internal/config"
	"squeeze/internal/image"
	"squeeze/internal/logging"
)

//go:embed templates/*
var templates embed.FS

type PageHandler struct {
	cfg       *config.Config
	indexTmpl *template.Template
}

func NewPageHandler(cfg *config.Config) *PageHandler {
	indexTmpl := template.Must(template.ParseFS(templates, "templates/index.html"))
	return &PageHandler{cfg: cfg, indexTmpl: indexTmpl}
}

type option struct {
	Value    int
	Selected bool
}

func options(values []int, selected int) []option {
	out := make([]option, len(values))
	for i, v := range values {
		out[i] = option{Value: v, Selected: v == selected}
	}
	return out
}

// GET / - compression widget
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.indexTmpl.ExecuteTemplate(w, "index.html", map[string]any{
		"Qualities":     options(image.QualityOptions, image.DefaultQuality),
		"MaxWidths":     options(image.MaxWidthOptions, image.DefaultMaxWidth),
		"MaxFileSizeMB": h.cfg.MaxFileSizeMB,
	}); err != nil {
		logging.Get(logging.App).Printf("template error: %v", err)
	}
}
