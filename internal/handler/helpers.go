package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"squeeze/internal/compress"
	"squeeze/internal/image"
)

const (
	kindSuperseded = "Superseded"
	kindNoSource   = "NoSource"
)

// jsonError writes {"error": message, "kind": kind}.
func jsonError(w http.ResponseWriter, message, kind string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message, "kind": kind})
}

func writeJSON(w http.ResponseWriter, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	json.NewEncoder(w).Encode(v)
}

// writeError maps pipeline and session errors to a status code and client-facing kind.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, image.ErrNotAnImage):
		jsonError(w, "selected file is not an image", image.KindNotAnImage, http.StatusUnsupportedMediaType)
	case errors.Is(err, image.ErrFileTooLarge):
		jsonError(w, "file too large", image.KindFileTooLarge, http.StatusRequestEntityTooLarge)
	case errors.Is(err, image.ErrFileRead):
		jsonError(w, "could not read file", image.KindFileRead, http.StatusBadRequest)
	case errors.Is(err, image.ErrDecode):
		jsonError(w, "could not decode image", image.KindDecode, http.StatusUnprocessableEntity)
	case errors.Is(err, image.ErrInvalidParams):
		jsonError(w, err.Error(), image.KindInvalidParams, http.StatusBadRequest)
	case errors.Is(err, compress.ErrSuperseded):
		jsonError(w, "superseded by a newer request", kindSuperseded, http.StatusConflict)
	case errors.Is(err, compress.ErrNoSource):
		jsonError(w, "no image selected", kindNoSource, http.StatusConflict)
	default:
		jsonError(w, "image processing failed", image.KindInternal, http.StatusInternalServerError)
	}
}

// writeJPEG sends a derived image. disposition is "inline" or "attachment".
func writeJPEG(w http.ResponseWriter, res *image.Result, p image.Params, disposition string) {
	h := w.Header()
	h.Set("Content-Type", "image/jpeg")
	h.Set("Content-Length", strconv.Itoa(len(res.Data)))
	h.Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{
		"filename": image.DownloadName(p),
	}))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Image-Width", strconv.Itoa(res.Width))
	h.Set("X-Image-Height", strconv.Itoa(res.Height))
	h.Set("X-Source-Width", strconv.Itoa(res.SourceWidth))
	h.Set("X-Source-Height", strconv.Itoa(res.SourceHeight))
	h.Set("X-Source-Size", strconv.FormatInt(res.SourceSize, 10))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

type uploadedFile struct {
	multipart.File
	Name        string
	ContentType string
}

// formFile parses a multipart upload limited to maxSize and returns the "file" part.
// The caller closes the returned file.
func formFile(w http.ResponseWriter, r *http.Request, maxSize int64) (*uploadedFile, error) {
	// Leave room for multipart framing and the other form fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, image.ErrFileTooLarge
		}
		return nil, errors.Join(image.ErrFileRead, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errors.Join(image.ErrFileRead, err)
	}
	return &uploadedFile{
		File:        file,
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}
