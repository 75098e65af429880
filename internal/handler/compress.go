package handler

import (
	"errors"
	"net/http"

	"squeeze/internal/config"
	"squeeze/internal/image"
	"squeeze/internal/logging"
)

// CompressHandler runs the pipeline once per request without touching session state.
type CompressHandler struct {
	cfg  *config.Config
	proc image.Processor
}

func NewCompressHandler(cfg *config.Config, proc image.Processor) *CompressHandler {
	return &CompressHandler{cfg: cfg, proc: proc}
}

// POST /api/compress - multipart file, quality, max_width
func (h *CompressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", "MethodNotAllowed", http.StatusMethodNotAllowed)
		return
	}

	upload, err := formFile(w, r, h.cfg.MaxFileSize())
	if err != nil {
		writeError(w, err)
		return
	}
	defer upload.Close()
	defer r.MultipartForm.RemoveAll()

	params, err := image.ParseParams(r.FormValue("quality"), r.FormValue("max_width"))
	if err != nil {
		writeError(w, err)
		return
	}

	src, err := image.ReadSource(upload, upload.ContentType, upload.Name, h.cfg.MaxFileSize())
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.proc.Process(src.Data, params)
	if err != nil {
		if !errors.Is(err, image.ErrDecode) {
			logging.Get(logging.Compress).Printf("process error: %v", err)
		}
		writeError(w, err)
		return
	}

	logging.Get(logging.Compress).Printf("compress name=%q format=%s src=%dx%d/%d out=%dx%d/%d params=%s backend=%s",
		src.Name, src.Format, res.SourceWidth, res.SourceHeight, src.Size(),
		res.Width, res.Height, res.Size(), params, h.proc.Name())

	writeJPEG(w, res, params, "attachment")
}
