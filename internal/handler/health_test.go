package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"squeeze/internal/testutil"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	req := uploadRequest(t, "/api/compress", "image/png", "a.png", testutil.PNG(900, 300), nil)
	env.handler.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Backend != "native" {
		t.Errorf("backend = %q, want native", resp.Backend)
	}
	if resp.Cache == nil || resp.Cache.Entries != 1 || resp.Cache.Bytes <= 0 {
		t.Errorf("cache = %+v, want one entry", resp.Cache)
	}
	if resp.Traffic == nil || resp.Traffic.M1.Bytes <= 0 {
		t.Errorf("traffic = %+v, want the compress response counted", resp.Traffic)
	}
}

func TestHealth_NoCache(t *testing.T) {
	h := NewHealthHandler("native", nil, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Cache != nil || resp.Traffic != nil {
		t.Errorf("resp = %+v", resp)
	}
}
