package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "pipext-test" {
			t.Errorf("default header not applied, got %q", r.Header.Get("User-Agent"))
		}
		json.NewEncoder(w).Encode(map[string]string{"name": "requests"})
	}))
	defer server.Close()

	c := NewClient(5, map[string]string{"User-Agent": "pipext-test"})

	var out map[string]string
	if err := c.Get(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if out["name"] != "requests" {
		t.Errorf("decoded name = %q, want requests", out["name"])
	}
}

func TestClientGetWithHeadersOverridesDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token2" {
			t.Errorf("request header should override default, got %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	c := NewClient(5, map[string]string{"Authorization": "Bearer token1"})

	var out map[string]any
	err := c.GetWithHeaders(context.Background(), server.URL, map[string]string{"Authorization": "Bearer token2"}, &out)
	if err != nil {
		t.Fatalf("GetWithHeaders failed: %v", err)
	}
}

func TestClientGetText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("install_requires = []"))
	}))
	defer server.Close()

	c := NewClient(5, nil)

	text, err := c.GetText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetText failed: %v", err)
	}
	if text != "install_requires = []" {
		t.Errorf("GetText = %q", text)
	}
}

func TestClientStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"server error", http.StatusInternalServerError, ErrNetwork},
		{"forbidden", http.StatusForbidden, ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			c := NewClient(5, nil)
			var out map[string]any
			err := c.Get(context.Background(), server.URL, &out)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("status %d: error = %v, want %v", tt.status, err, tt.wantErr)
			}
		})
	}
}

func TestClientPreservesCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(5, nil)
	var out map[string]any
	err := c.Get(ctx, server.URL, &out)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("cancelled request should map to ErrNetwork, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancellation cause should survive wrapping, got %v", err)
	}
}

func TestClientConnectionErrorIsNetwork(t *testing.T) {
	c := NewClient(1, nil)
	var out map[string]any
	err := c.Get(context.Background(), "http://127.0.0.1:1", &out)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("connection error should map to ErrNetwork, got %v", err)
	}
}
