package rpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client := NewHTTPClient(&HTTPConfig{
		Address: strings.TrimPrefix(srv.URL, "http://"),
		Timeout: 2 * time.Second,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

/**
 * Test GET with query parameters and JSON decoding
 */
func TestHTTPClientGet(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/fcc/api/v1/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"mode": "INSTALL", "verbose": r.URL.Query().Get("verbose")})
	})

	rsp, err := client.Get("/fcc/api/v1/status", map[string]interface{}{"verbose": true})
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	if err := rsp.Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["mode"] != "INSTALL" || body["verbose"] != "true" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestHTTPClientPost(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		w.Write([]byte(`{"healthy":true}`))
	})

	rsp, err := client.Post("/fcc/api/v1/check", map[string]string{"reason": "test"})
	if err != nil {
		t.Fatal(err)
	}
	if rsp.StatusCode != http.StatusOK || rsp.Error != "" {
		t.Errorf("unexpected response %+v", rsp)
	}
}

/**
 * Test error bodies in ErrorResponse format
 */
func TestHTTPClientErrorResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"code":"check.none","error":"no check has run"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	rsp, err := client.Get("/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if rsp.Error != "no check has run" {
		t.Errorf("unexpected error %q", rsp.Error)
	}
	var v map[string]interface{}
	if err := rsp.Decode(&v); err == nil {
		t.Error("Decode must fail for error responses")
	}

	rsp, err = client.Get("/empty", nil)
	if err != nil {
		t.Fatal(err)
	}
	if rsp.Error == "" || rsp.StatusCode != http.StatusInternalServerError {
		t.Errorf("unexpected response %+v", rsp)
	}
}

func TestHTTPClientUnreachable(t *testing.T) {
	client := NewHTTPClient(&HTTPConfig{Address: "127.0.0.1:1", Timeout: time.Second})
	defer client.Close()
	if _, err := client.Get("/healthz", nil); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestBuildURL(t *testing.T) {
	got, err := buildURL("http://127.0.0.1:8765/", "/fcc/api/v1/status", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "http://127.0.0.1:8765/fcc/api/v1/status" {
		t.Errorf("unexpected url %s", got)
	}
}
