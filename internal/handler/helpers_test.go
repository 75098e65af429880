package handler

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"squeeze/internal/compress"
	"squeeze/internal/config"
	"squeeze/internal/image"
	"squeeze/internal/middleware"
	"squeeze/internal/storage"
	"squeeze/internal/testutil"
)

type testEnv struct {
	cfg      *config.Config
	db       *storage.DB
	sessions *compress.Manager
	traffic  *middleware.TrafficStats
	handler  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testutil.TestConfig(t)
	db, _ := testutil.TestDB(t)
	fs, _ := testutil.TestFilesystem(t)

	proc := compress.NewCachedProcessor(image.NewProcessor(), db, fs)
	sessions := compress.NewManager(proc, cfg.MaxFileSize(), time.Hour)
	traffic := middleware.NewTrafficStats()

	h := NewRouter(Deps{
		Config:    cfg,
		Processor: proc,
		Sessions:  sessions,
		DB:        db,
		Traffic:   traffic,
	})
	return &testEnv{cfg: cfg, db: db, sessions: sessions, traffic: traffic, handler: h}
}

// uploadBody builds a multipart body whose file part carries contentType,
// the way browsers label a selected file.
func uploadBody(t *testing.T, contentType, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}

	if content != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		h.Set("Content-Type", contentType)
		part, err := writer.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func uploadRequest(t *testing.T, url, contentType, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	body, ct := uploadBody(t, contentType, filename, content, fields)
	req := httptest.NewRequest("POST", url, body)
	req.Header.Set("Content-Type", ct)
	return req
}
