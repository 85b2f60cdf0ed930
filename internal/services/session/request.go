package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	jwtlib "posto/internal/lib/jwt"
	"posto/internal/lib/logger/sl"
	"posto/internal/storage"
)

// APIError carries a non-2xx business response. The server's own error text
// is preserved when present so it can be shown to the operator.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// ErrorFromResponse drains the body and extracts the server's error text.
// The backend is inconsistent about the field name, so detail, error and
// message are all tried before falling back to a generic message.
func ErrorFromResponse(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    "erro desconhecido",
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}

	var payload struct {
		Detail  string `json:"detail"`
		Err     string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}

	switch {
	case payload.Detail != "":
		apiErr.Message = payload.Detail
	case payload.Err != "":
		apiErr.Message = payload.Err
	case payload.Message != "":
		apiErr.Message = payload.Message
	}

	return apiErr
}

type requestOptions struct {
	body        io.Reader
	contentType string
	header      http.Header
}

type RequestOption func(*requestOptions)

// WithJSONBody marshals v as the request body.
func WithJSONBody(v any) RequestOption {
	return func(o *requestOptions) {
		data, err := json.Marshal(v)
		if err != nil {
			// Surfaces as a malformed request to the backend; callers
			// marshal plain maps and structs, so this does not happen
			// in practice.
			return
		}
		o.body = bytes.NewReader(data)
		o.contentType = "application/json"
	}
}

// WithBody sets a raw request body, e.g. a multipart form.
func WithBody(body io.Reader, contentType string) RequestOption {
	return func(o *requestOptions) {
		o.body = body
		o.contentType = contentType
	}
}

// WithHeader adds a caller-supplied header. Authorization is always
// overwritten by the manager.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.header == nil {
			o.header = http.Header{}
		}
		o.header.Set(key, value)
	}
}

// Do is the sole entry point for authenticated calls. It re-reads the
// stored access token on every call, refreshes it proactively when expired,
// and reacts to a mid-flight 401 by tearing the session down. Responses
// with any other status, 2xx or not, are returned as-is for the caller to
// interpret.
func (m *Manager) Do(ctx context.Context, method, path string, opts ...RequestOption) (*http.Response, error) {
	const op = "Session.Do"

	log := m.log.With(
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
	)

	accessToken, err := m.store.Get(ctx, storage.KeyAccessToken)
	if err != nil {
		accessToken = ""
	}

	// A token can also expire between this check and the server processing
	// the request, or be revoked server-side; the 401 branch below covers
	// those.
	if jwtlib.IsExpired(accessToken) {
		log.Debug("access token expired, refreshing")

		accessToken, err = m.Refresh(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
		}
	}

	var options requestOptions
	for _, opt := range opts {
		opt(&options)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, options.body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for key, values := range options.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if options.contentType != "" {
		req.Header.Set("Content-Type", options.contentType)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := m.httpClient.Do(req)
	if err != nil {
		log.Error("request failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		log.Warn("token rejected mid-flight, clearing session")
		m.teardown(ctx)
		return nil, fmt.Errorf("%s: %w", op, ErrSessionExpired)
	}

	return resp, nil
}
