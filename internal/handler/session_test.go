package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"squeeze/internal/image"
	"squeeze/internal/middleware"
	"squeeze/internal/testutil"
)

type client struct {
	t    *testing.T
	srv  *httptest.Server
	http *http.Client
}

func newClient(t *testing.T, env *testEnv) *client {
	t.Helper()
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &client{t: t, srv: srv, http: &http.Client{Jar: jar}}
}

func (c *client) do(req *http.Request) *http.Response {
	c.t.Helper()
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (c *client) get(path string) *http.Response {
	c.t.Helper()
	req, _ := http.NewRequest("GET", c.srv.URL+path, nil)
	return c.do(req)
}

func (c *client) upload(contentType, filename string, content []byte) *http.Response {
	c.t.Helper()
	body, ct := uploadBody(c.t, contentType, filename, content, nil)
	req, _ := http.NewRequest("POST", c.srv.URL+"/api/source", body)
	req.Header.Set("Content-Type", ct)
	return c.do(req)
}

func (c *client) setParams(quality, maxWidth string) *http.Response {
	c.t.Helper()
	form := url.Values{"quality": {quality}, "max_width": {maxWidth}}
	req, _ := http.NewRequest("POST", c.srv.URL+"/api/params", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) clear() *http.Response {
	c.t.Helper()
	req, _ := http.NewRequest("DELETE", c.srv.URL+"/api/source", nil)
	return c.do(req)
}

func decodeState(t *testing.T, resp *http.Response) stateResponse {
	t.Helper()
	var s stateResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return s
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(t, env)

	resp := c.get("/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	html := string(body)

	if !strings.Contains(html, `<option value="70" selected>`) {
		t.Error("default quality 70 not selected")
	}
	if !strings.Contains(html, `<option value="800" selected>`) {
		t.Error("default max width 800 not selected")
	}

	var found bool
	for _, cookie := range resp.Cookies() {
		if cookie.Name == middleware.SessionCookie && cookie.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("session cookie not set")
	}
	if env.sessions.Len() != 1 {
		t.Errorf("sessions = %d, want 1", env.sessions.Len())
	}
}

func TestIndexPage_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(t, env)

	state := decodeState(t, c.get("/api/state"))
	if state.Source != nil || state.Derived != nil {
		t.Fatalf("fresh session state = %+v, want empty", state)
	}
	if state.Quality != image.DefaultQuality || state.MaxWidth != image.DefaultMaxWidth {
		t.Errorf("default params = %d/%d", state.Quality, state.MaxWidth)
	}

	// Select a file: derived output uses the default parameters.
	resp := c.upload("image/png", "photo.png", testutil.PNG(1600, 1200))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	state = decodeState(t, resp)
	if state.Source == nil || state.Source.Width != 1600 || state.Source.Height != 1200 {
		t.Fatalf("source = %+v, want 1600x1200", state.Source)
	}
	if state.Source.Format != string(image.FormatPNG) {
		t.Errorf("source format = %q, want png", state.Source.Format)
	}
	if state.Derived == nil || state.Derived.Width != 800 || state.Derived.Height != 600 {
		t.Fatalf("derived = %+v, want 800x600", state.Derived)
	}
	if state.Derived.FileName != "compressed_image_w800_q70.jpg" {
		t.Errorf("file name = %q", state.Derived.FileName)
	}

	// Change parameters: pipeline reruns on the loaded source.
	resp = c.setParams("0.5", "400")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("params status = %d", resp.StatusCode)
	}
	state = decodeState(t, resp)
	if state.Derived == nil || state.Derived.Width != 400 || state.Derived.Height != 300 {
		t.Fatalf("derived = %+v, want 400x300", state.Derived)
	}
	if state.Derived.Quality != 50 {
		t.Errorf("derived quality = %d, want 50", state.Derived.Quality)
	}

	preview := c.get(state.Derived.PreviewURL)
	if preview.StatusCode != http.StatusOK {
		t.Fatalf("preview status = %d", preview.StatusCode)
	}
	if cd := preview.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, "inline") {
		t.Errorf("preview disposition = %q", cd)
	}
	if preview.Header.Get("X-Image-Width") != "400" {
		t.Errorf("preview width = %q", preview.Header.Get("X-Image-Width"))
	}

	download := c.get(state.Derived.DownloadURL)
	if download.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", download.StatusCode)
	}
	cd := download.Header.Get("Content-Disposition")
	if !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, "compressed_image_w400_q50.jpg") {
		t.Errorf("download disposition = %q", cd)
	}
	if ct := download.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("download content type = %q", ct)
	}

	// Clear the selection: nothing left to preview.
	state = decodeState(t, c.clear())
	if state.Source != nil || state.Derived != nil {
		t.Errorf("state after clear = %+v, want empty", state)
	}
	if state.Quality != 50 || state.MaxWidth != 400 {
		t.Errorf("params after clear = %d/%d, want 50/400", state.Quality, state.MaxWidth)
	}
	if resp := c.get("/api/preview"); resp.StatusCode != http.StatusConflict {
		t.Errorf("preview after clear status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestSessionParamsWithoutSource(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(t, env)

	resp := c.setParams("90", "1200")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	state := decodeState(t, resp)
	if state.Quality != 90 || state.MaxWidth != 1200 || state.Derived != nil {
		t.Errorf("state = %+v", state)
	}

	// The next selection uses the stored parameters.
	state = decodeState(t, c.upload("image/jpeg", "small.jpg", testutil.JPEG(2000, 1000)))
	if state.Derived == nil || state.Derived.Width != 1200 || state.Derived.Height != 600 {
		t.Errorf("derived = %+v, want 1200x600", state.Derived)
	}
	if state.Derived.FileName != "compressed_image_w1200_q90.jpg" {
		t.Errorf("file name = %q", state.Derived.FileName)
	}
}

func TestSessionInvalidParams(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(t, env)

	resp := c.setParams("55", "800")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	state := decodeState(t, c.get("/api/state"))
	if state.Quality != image.DefaultQuality {
		t.Errorf("quality = %d, want unchanged default", state.Quality)
	}
}

func TestSessionErrorClearsDerived(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		content     []byte
		wantStatus  int
		wantKind    string
	}{
		{"not an image", "text/plain", []byte("just text"), http.StatusUnsupportedMediaType, image.KindNotAnImage},
		{"corrupt", "image/png", testutil.Corrupt(), http.StatusUnprocessableEntity, image.KindDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			c := newClient(t, env)

			if resp := c.upload("image/png", "ok.png", testutil.SamplePNG()); resp.StatusCode != http.StatusOK {
				t.Fatalf("first upload status = %d", resp.StatusCode)
			}

			resp := c.upload(tt.contentType, "bad", tt.content)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			state := decodeState(t, c.get("/api/state"))
			if state.Source != nil || state.Derived != nil {
				t.Errorf("state = %+v, want no source and no derived", state)
			}
			if state.Error == nil || state.Error.Kind != tt.wantKind {
				t.Errorf("error = %+v, want kind %s", state.Error, tt.wantKind)
			}
			if resp := c.get("/api/download"); resp.StatusCode == http.StatusOK {
				t.Error("download succeeded after failed selection")
			}
		})
	}
}

func TestSessionMissingFileRecordsError(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(t, env)

	if resp := c.upload("image/png", "ok.png", testutil.SamplePNG()); resp.StatusCode != http.StatusOK {
		t.Fatalf("first upload status = %d", resp.StatusCode)
	}

	body, ct := uploadBody(t, "", "", nil, map[string]string{"quality": "70"})
	req, _ := http.NewRequest("POST", c.srv.URL+"/api/source", body)
	req.Header.Set("Content-Type", ct)
	if resp := c.do(req); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	state := decodeState(t, c.get("/api/state"))
	if state.Source != nil || state.Derived != nil {
		t.Errorf("state = %+v, want no source and no derived", state)
	}
	if state.Error == nil || state.Error.Kind != image.KindFileRead {
		t.Errorf("error = %+v, want kind %s", state.Error, image.KindFileRead)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	a := newClient(t, env)
	b := newClient(t, env)

	a.upload("image/png", "a.png", testutil.PNG(1000, 500))

	state := decodeState(t, b.get("/api/state"))
	if state.Source != nil {
		t.Errorf("second client sees first client's source: %+v", state.Source)
	}
	if env.sessions.Len() != 2 {
		t.Errorf("sessions = %d, want 2", env.sessions.Len())
	}
}

func TestSessionMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(t, env)

	req, _ := http.NewRequest("PUT", c.srv.URL+"/api/source", nil)
	if resp := c.do(req); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("PUT /api/source status = %d", resp.StatusCode)
	}
	req, _ = http.NewRequest("GET", c.srv.URL+"/api/params", nil)
	if resp := c.do(req); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/params status = %d", resp.StatusCode)
	}
}
