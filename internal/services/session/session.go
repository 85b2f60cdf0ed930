package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"posto/internal/domain/models"
	jwtlib "posto/internal/lib/jwt"
	"posto/internal/lib/logger/sl"
	"posto/internal/storage"
)

var (
	// ErrUnauthenticated means no usable access token exists and a refresh
	// was not possible. The caller must send the user back to login.
	ErrUnauthenticated = errors.New("usuário precisa fazer login novamente")

	// ErrSessionExpired means a request came back 401 despite a
	// valid-looking token (revoked or expired mid-flight). Same teardown
	// as ErrUnauthenticated; kept distinct for the caller's messaging.
	ErrSessionExpired = errors.New("sessão expirada")

	ErrInvalidCredentials = errors.New("credenciais inválidas")
	ErrNotAuthorized      = errors.New("usuário não autorizado")
	ErrPasswordMismatch   = errors.New("as senhas não coincidem")
	ErrPasswordTooShort   = errors.New("a senha deve ter pelo menos 6 caracteres")
)

// StateStore persists the token pair and the cached profile. Login, Refresh,
// Logout and the 401 teardown are the only writers; everything else re-reads
// per operation.
type StateStore interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Clear(ctx context.Context) error
}

// Manager owns the authenticated session of the console. Every outbound
// authenticated call goes through Do, which refreshes the access token
// transparently and tears the session down on irrecoverable auth failure.
type Manager struct {
	log        *slog.Logger
	store      StateStore
	httpClient *http.Client
	baseURL    string

	// refreshGroup coalesces concurrent refreshes into a single exchange.
	// Backends rotate refresh tokens on first use; a second concurrent
	// exchange would spuriously invalidate the session.
	refreshGroup singleflight.Group
}

func New(log *slog.Logger, store StateStore, baseURL string, httpClient *http.Client) *Manager {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Manager{
		log:        log,
		store:      store,
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

type tokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Login exchanges credentials for a token pair at api/token/. Only accounts
// carrying the is_funcionario_posto claim may use the console; anyone else
// is rejected before anything is persisted. On success the profile from
// api/user/ is fetched and cached alongside the tokens.
func (m *Manager) Login(ctx context.Context, username, password string) (models.Funcionario, error) {
	const op = "Session.Login"

	log := m.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)

	log.Info("attempting to login")

	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := m.post(ctx, "api/token/", body)
	if err != nil {
		log.Error("login request failed", sl.Err(err))
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		log.Warn("invalid credentials")
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := ErrorFromResponse(resp)
		log.Error("login rejected", slog.Int("status", resp.StatusCode), slog.String("message", apiErr.Message))
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, apiErr)
	}

	var pair tokenPairResponse
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, err)
	}

	claims, err := jwtlib.DecodeTokenPayload(pair.Access)
	if err != nil {
		log.Error("failed to decode access token", sl.Err(err))
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, err)
	}

	if !claims.IsFuncionarioPosto {
		log.Warn("account is not a posto employee")
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, ErrNotAuthorized)
	}

	if err := m.store.Set(ctx, storage.KeyAccessToken, pair.Access); err != nil {
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := m.store.Set(ctx, storage.KeyRefreshToken, pair.Refresh); err != nil {
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("logged in successfully")

	// Profile fetch failure does not undo the login; the profile is
	// refetched lazily by whoever needs it.
	funcionario, err := m.fetchProfile(ctx, pair.Access)
	if err != nil {
		log.Warn("failed to fetch profile after login", sl.Err(err))
		return models.Funcionario{}, nil
	}

	return funcionario, nil
}

func (m *Manager) fetchProfile(ctx context.Context, accessToken string) (models.Funcionario, error) {
	const op = "Session.fetchProfile"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"api/user/", nil)
	if err != nil {
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, ErrorFromResponse(resp))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, err)
	}

	var funcionario models.Funcionario
	if err := json.Unmarshal(raw, &funcionario); err != nil {
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := m.store.Set(ctx, storage.KeyUserData, string(raw)); err != nil {
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, err)
	}

	return funcionario, nil
}

// Refresh exchanges the stored refresh token for a new access token.
// Concurrent callers share a single exchange. Any failure clears the whole
// session state, so the result is always either a new valid session or a
// fully-cleared one.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	const op = "Session.Refresh"

	v, err, _ := m.refreshGroup.Do("refresh", func() (interface{}, error) {
		return m.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return v.(string), nil
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	const op = "Session.refresh"

	log := m.log.With(slog.String("op", op))

	refreshToken, err := m.store.Get(ctx, storage.KeyRefreshToken)
	if err != nil || refreshToken == "" {
		log.Warn("no refresh token available")
		m.teardown(ctx)
		return "", ErrUnauthenticated
	}

	body, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	resp, err := m.post(ctx, "api/token/refresh/", body)
	if err != nil {
		log.Error("refresh request failed", sl.Err(err))
		m.teardown(ctx)
		return "", ErrUnauthenticated
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			log.Warn("refresh token invalid or expired")
		} else {
			log.Error("refresh rejected", slog.Int("status", resp.StatusCode))
		}
		m.teardown(ctx)
		return "", ErrUnauthenticated
	}

	var pair tokenPairResponse
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		m.teardown(ctx)
		return "", ErrUnauthenticated
	}

	if err := m.store.Set(ctx, storage.KeyAccessToken, pair.Access); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("access token refreshed")

	return pair.Access, nil
}

// Logout clears the whole session state. It never fails the caller: a
// storage error is logged and the session is still considered gone.
func (m *Manager) Logout(ctx context.Context) {
	const op = "Session.Logout"

	m.log.With(slog.String("op", op)).Info("logging out")
	m.teardown(ctx)
}

// teardown wipes all session keys together. Safe to call repeatedly.
func (m *Manager) teardown(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.log.Error("failed to clear session state", sl.Err(err))
	}
}

// IsAuthenticated reports whether a non-expired access token is stored.
// It is a read-only query and never triggers a refresh.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	token, err := m.store.Get(ctx, storage.KeyAccessToken)
	if err != nil {
		return false
	}

	return token != "" && !jwtlib.IsExpired(token)
}

// CurrentUser returns the claims of the stored access token, or
// ErrUnauthenticated when no valid token is present.
func (m *Manager) CurrentUser(ctx context.Context) (*jwtlib.CustomClaims, error) {
	const op = "Session.CurrentUser"

	token, err := m.store.Get(ctx, storage.KeyAccessToken)
	if err != nil || jwtlib.IsExpired(token) {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	claims, err := jwtlib.DecodeTokenPayload(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	return claims, nil
}

// Funcionario returns the cached profile stored at login.
func (m *Manager) Funcionario(ctx context.Context) (models.Funcionario, error) {
	const op = "Session.Funcionario"

	raw, err := m.store.Get(ctx, storage.KeyUserData)
	if err != nil {
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	var funcionario models.Funcionario
	if err := json.Unmarshal([]byte(raw), &funcionario); err != nil {
		return models.Funcionario{}, fmt.Errorf("%s: %w", op, err)
	}

	return funcionario, nil
}

// ChangePassword updates the logged-in employee's password. Mismatched or
// too-short passwords are rejected locally before any network call.
func (m *Manager) ChangePassword(ctx context.Context, currentPassword, newPassword, confirmPassword string) error {
	const op = "Session.ChangePassword"

	log := m.log.With(slog.String("op", op))

	if newPassword != confirmPassword {
		return fmt.Errorf("%s: %w", op, ErrPasswordMismatch)
	}
	if len(newPassword) < 6 {
		return fmt.Errorf("%s: %w", op, ErrPasswordTooShort)
	}

	funcionario, err := m.Funcionario(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := m.Do(ctx, http.MethodPatch, fmt.Sprintf("api/user-password-set/%s/", funcionario.ID),
		WithJSONBody(map[string]string{
			"current_password": currentPassword,
			"confirm_password": newPassword,
		}),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := ErrorFromResponse(resp)
		log.Warn("password change rejected", slog.String("message", apiErr.Message))
		return fmt.Errorf("%s: %w", op, apiErr)
	}

	log.Info("password changed successfully")

	return nil
}

// RequestPasswordReset asks the backend to send a reset link. The call is
// unauthenticated by design: it is reachable from the login screen.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "Session.RequestPasswordReset"

	body, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := m.post(ctx, "api/password-reset/", body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %w", op, ErrorFromResponse(resp))
	}

	return nil
}

// post issues an unauthenticated JSON POST relative to the base URL.
func (m *Manager) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return m.httpClient.Do(req)
}
