package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

func TestGetWithinBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG"))
	}))
	defer srv.Close()

	resp, err := NewRestyClient(0, WithMaxBodyBytes(16)).Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != http.StatusOK || string(resp.Body()) != "\x89PNG" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode(), resp.Body())
	}
	if resp.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("missing header, got %v", resp.Header())
	}
}

func TestGetRejectsOversizedBody(t *testing.T) {
	body := strings.Repeat("x", 64)
	for name, declare := range map[string]bool{
		"declared length": true,
		"chunked":         false,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if declare {
					w.Header().Set("Content-Length", strconv.Itoa(len(body)))
				} else {
					w.(http.Flusher).Flush()
				}
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := NewRestyClient(0, WithMaxBodyBytes(16)).Get(context.Background(), srv.URL, nil)
			if !errors.Is(err, ErrBodyTooLarge) {
				t.Fatalf("expected ErrBodyTooLarge, got %v", err)
			}
		})
	}
}

func TestGetWithoutLimitReadsWholeBody(t *testing.T) {
	body := strings.Repeat("x", 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	resp, err := NewRestyClient(0).Get(context.Background(), srv.URL, map[string]string{"Accept": "text/plain"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(resp.Body()) != len(body) {
		t.Fatalf("expected %d bytes, got %d", len(body), len(resp.Body()))
	}
}
