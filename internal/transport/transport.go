// Package transport posts URL-encoded forms to the F-List API and returns the raw response body,
// transparently undoing any content encoding the server applied.
package transport

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/flistgo/flistapi/internal/buildinfo"
	"github.com/flistgo/flistapi/internal/config"
	"github.com/flistgo/flistapi/internal/logging"
	"github.com/flistgo/flistapi/internal/util"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
)

// maxErrorBody caps how much of a failed response is kept in a TransportError.
const maxErrorBody = 512

// TransportError reports a failed HTTP exchange: the request could not be sent, the server
// answered with a non-2xx status, or the body could not be read or decoded.
type TransportError struct {
	// URL is the endpoint that was called.
	URL string
	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int
	// Body holds the (truncated) response body for non-2xx answers.
	Body string
	// Err is the underlying failure, if any.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e == nil {
		return "transport error"
	}
	switch {
	case e.StatusCode != 0 && e.Err == nil:
		return fmt.Sprintf("transport: %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("transport: %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("transport: %s: request failed", e.URL)
	}
}

// Unwrap exposes the underlying failure to errors.Is / errors.As.
func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Doer is the subset of *http.Client the transport needs.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Transport posts forms through a Doer.
type Transport struct {
	client    Doer
	userAgent string
}

// New wraps client. A nil client uses NewHTTPClient with default configuration.
func New(client Doer, userAgent string) *Transport {
	if client == nil {
		client = NewHTTPClient(nil)
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent()
	}
	return &Transport{client: client, userAgent: userAgent}
}

// DefaultUserAgent identifies this client and its version.
func DefaultUserAgent() string {
	return "flistapi/" + buildinfo.Version
}

// NewHTTPClient builds an HTTP client honouring the configured timeout and proxy.
func NewHTTPClient(cfg *config.Config) *http.Client {
	client := &http.Client{Timeout: cfg.Timeout()}
	return util.SetProxy(cfg, client)
}

// Post sends form to endpoint and returns the decoded response body.
func (t *Transport) Post(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TransportError{URL: endpoint, Err: fmt.Errorf("create request failed: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br, zstd")
	req.Header.Set("User-Agent", t.userAgent)

	entry := log.WithField("request_id", logging.GetRequestID(ctx))
	entry.WithField("form", util.MaskSensitiveForm(form)).Debugf("POST %s", endpoint)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: endpoint, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.WithError(errClose).Warn("transport: failed to close response body")
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response failed: %w", err)}
	}
	body, err := decodeBody(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		return nil, &TransportError{URL: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	entry.WithField("status", resp.StatusCode).Debugf("response from %s (%d bytes)", endpoint, len(body))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{URL: endpoint, StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(body)))}
	}
	return body, nil
}

// decodeBody undoes Content-Encoding. Go's transport only handles gzip on its own when it set
// Accept-Encoding itself, which it does not here.
func decodeBody(encoding string, data []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return data, nil
	case "gzip", "x-gzip":
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer func() { _ = reader.Close() }()
		return readAll(reader, "gzip")
	case "deflate":
		reader := flate.NewReader(bytes.NewReader(data))
		defer func() { _ = reader.Close() }()
		return readAll(reader, "deflate")
	case "br":
		return readAll(brotli.NewReader(bytes.NewReader(data)), "brotli")
	case "zstd":
		decoder, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer decoder.Close()
		return readAll(decoder, "zstd")
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

func readAll(r io.Reader, name string) ([]byte, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s data: %w", name, err)
	}
	return out, nil
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}
