package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

func TestPost_SendsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
			t.Errorf("unexpected content-type: %s", ct)
		}
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("unexpected user-agent: %s", ua)
		}
		bodyBytes, _ := io.ReadAll(r.Body)
		values, err := url.ParseQuery(string(bodyBytes))
		if err != nil {
			t.Errorf("parse form: %v", err)
		}
		if values.Get("account") != "alice" || values.Get("x") != "1" {
			t.Errorf("unexpected form: %v", values)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	form := url.Values{"account": {"alice"}, "x": {"1"}}
	body, err := New(srv.Client(), "test-agent").Post(context.Background(), srv.URL+"/api/foo.php", form)
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("Post() body = %s", body)
	}
}

func TestPost_DecodesContentEncoding(t *testing.T) {
	const payload = `{"character":{"name":"Someone"}}`

	encoders := map[string]func(t *testing.T) []byte{
		"gzip": func(t *testing.T) []byte {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			_, _ = zw.Write([]byte(payload))
			_ = zw.Close()
			return buf.Bytes()
		},
		"br": func(t *testing.T) []byte {
			var buf bytes.Buffer
			bw := brotli.NewWriter(&buf)
			_, _ = bw.Write([]byte(payload))
			_ = bw.Close()
			return buf.Bytes()
		},
		"zstd": func(t *testing.T) []byte {
			enc, err := zstd.NewWriter(nil)
			if err != nil {
				t.Fatalf("zstd writer: %v", err)
			}
			defer func() { _ = enc.Close() }()
			return enc.EncodeAll([]byte(payload), nil)
		},
	}

	for name, encode := range encoders {
		name, encode := name, encode
		t.Run(name, func(t *testing.T) {
			encoded := encode(t)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", name)
				_, _ = w.Write(encoded)
			}))
			defer srv.Close()

			body, err := New(srv.Client(), "").Post(context.Background(), srv.URL, url.Values{})
			if err != nil {
				t.Fatalf("Post() error = %v", err)
			}
			if string(body) != payload {
				t.Fatalf("Post() body = %s, want %s", body, payload)
			}
		})
	}
}

func TestPost_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.Client(), "").Post(context.Background(), srv.URL, url.Values{})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if transportErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d", transportErr.StatusCode)
	}
	if transportErr.Body != "maintenance" {
		t.Errorf("Body = %q", transportErr.Body)
	}
}

func TestPost_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	_, err := New(&http.Client{}, "").Post(context.Background(), endpoint, url.Values{})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if transportErr.StatusCode != 0 || transportErr.Err == nil {
		t.Errorf("unexpected error fields: %+v", transportErr)
	}
}

func TestPost_UnsupportedEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "compress")
		_, _ = w.Write([]byte("???"))
	}))
	defer srv.Close()

	_, err := New(srv.Client(), "").Post(context.Background(), srv.URL, url.Values{})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", maxErrorBody+10)
	if got := truncate(long); len(got) != maxErrorBody+3 {
		t.Fatalf("truncate() length = %d", len(got))
	}
	if got := truncate("short"); got != "short" {
		t.Fatalf("truncate() = %q", got)
	}
}
