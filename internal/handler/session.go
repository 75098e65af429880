package handler

import (
	"errors"
	"fmt"
	"net/http"

	"squeeze/internal/compress"
	"squeeze/internal/config"
	"squeeze/internal/image"
	"squeeze/internal/logging"
	"squeeze/internal/middleware"
)

// SessionHandler serves the widget endpoints that act on the caller's compression session.
type SessionHandler struct {
	cfg *config.Config
}

func NewSessionHandler(cfg *config.Config) *SessionHandler {
	return &SessionHandler{cfg: cfg}
}

type sourceJSON struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Format      string `json:"format"`
	Size        int64  `json:"size"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

type derivedJSON struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Size        int64  `json:"size"`
	Quality     int    `json:"quality"`
	MaxWidth    int    `json:"max_width"`
	FileName    string `json:"file_name"`
	PreviewURL  string `json:"preview_url"`
	DownloadURL string `json:"download_url"`
}

type errorJSON struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type stateResponse struct {
	Source     *sourceJSON  `json:"source"`
	Quality    int          `json:"quality"`
	MaxWidth   int          `json:"max_width"`
	Derived    *derivedJSON `json:"derived"`
	Error      *errorJSON   `json:"error,omitempty"`
	Busy       bool         `json:"busy"`
	Generation uint64       `json:"generation"`
}

func newStateResponse(snap compress.Snapshot) stateResponse {
	resp := stateResponse{
		Quality:    snap.Params.QualityPercent,
		MaxWidth:   snap.Params.MaxWidth,
		Busy:       snap.Busy,
		Generation: snap.Generation,
	}
	if s := snap.Source; s != nil {
		resp.Source = &sourceJSON{
			Name:        s.Name,
			ContentType: s.ContentType,
			Format:      string(s.Format),
			Size:        s.Size,
			Width:       s.Width,
			Height:      s.Height,
		}
	}
	if d := snap.Derived; d != nil {
		resp.Derived = &derivedJSON{
			Width:       d.Width,
			Height:      d.Height,
			Size:        d.Size(),
			Quality:     snap.DerivedParams.QualityPercent,
			MaxWidth:    snap.DerivedParams.MaxWidth,
			FileName:    image.DownloadName(snap.DerivedParams),
			PreviewURL:  fmt.Sprintf("/api/preview?g=%d", snap.Generation),
			DownloadURL: fmt.Sprintf("/api/download?g=%d", snap.Generation),
		}
	}
	if snap.Err != nil {
		resp.Error = &errorJSON{Kind: image.Kind(snap.Err), Message: snap.Err.Error()}
	}
	return resp
}

func writeState(w http.ResponseWriter, s *compress.Session) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, newStateResponse(s.Snapshot()))
}

// POST /api/source - select a file; DELETE /api/source - clear the selection
func (h *SessionHandler) Source(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)
	if session == nil {
		jsonError(w, "no session", kindNoSource, http.StatusInternalServerError)
		return
	}

	switch r.Method {
	case http.MethodPost:
	case http.MethodDelete:
		session.Clear()
		writeState(w, session)
		return
	default:
		jsonError(w, "method not allowed", "MethodNotAllowed", http.StatusMethodNotAllowed)
		return
	}

	upload, err := formFile(w, r, h.cfg.MaxFileSize())
	if err != nil {
		// The attempt still supersedes the previous selection.
		session.Fail(err)
		writeError(w, err)
		return
	}
	defer upload.Close()
	defer r.MultipartForm.RemoveAll()

	if err := session.SelectFile(r.Context(), upload, upload.ContentType, upload.Name); err != nil {
		if !errors.Is(err, compress.ErrSuperseded) && image.Kind(err) == image.KindInternal {
			logging.Get(logging.Compress).Printf("select file error: %v", err)
		}
		writeError(w, err)
		return
	}

	snap := session.Snapshot()
	if snap.Derived != nil && snap.Source != nil {
		logging.Get(logging.Compress).Printf("session compress name=%q src=%dx%d/%d out=%dx%d/%d params=%s",
			snap.Source.Name, snap.Source.Width, snap.Source.Height, snap.Source.Size,
			snap.Derived.Width, snap.Derived.Height, snap.Derived.Size(), snap.DerivedParams)
	}
	writeState(w, session)
}

// POST /api/params - quality, max_width
func (h *SessionHandler) Params(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", "MethodNotAllowed", http.StatusMethodNotAllowed)
		return
	}
	session := middleware.GetSession(r)
	if session == nil {
		jsonError(w, "no session", kindNoSource, http.StatusInternalServerError)
		return
	}

	params, err := image.ParseParams(r.FormValue("quality"), r.FormValue("max_width"))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := session.SetParams(r.Context(), params); err != nil {
		writeError(w, err)
		return
	}
	writeState(w, session)
}

// GET /api/state
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)
	if session == nil {
		jsonError(w, "no session", kindNoSource, http.StatusInternalServerError)
		return
	}
	writeState(w, session)
}

// GET /api/preview
func (h *SessionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	h.serveDerived(w, r, "inline")
}

// GET /api/download
func (h *SessionHandler) Download(w http.ResponseWriter, r *http.Request) {
	h.serveDerived(w, r, "attachment")
}

func (h *SessionHandler) serveDerived(w http.ResponseWriter, r *http.Request, disposition string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		jsonError(w, "method not allowed", "MethodNotAllowed", http.StatusMethodNotAllowed)
		return
	}
	session := middleware.GetSession(r)
	if session == nil {
		jsonError(w, "no session", kindNoSource, http.StatusInternalServerError)
		return
	}

	res, params, err := session.Derived()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJPEG(w, res, params, disposition)
}
