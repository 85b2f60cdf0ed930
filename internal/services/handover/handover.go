package handover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"posto/internal/domain/models"
	"posto/internal/lib/logger/sl"
	"posto/internal/services/session"
)

var (
	// ErrEmptyChecklist rejects a submission with no condition flagged,
	// before any network call is made.
	ErrEmptyChecklist = errors.New("selecione pelo menos uma condição do produto")

	// ErrIllegalTransition rejects an action outside the lance's legal
	// action set.
	ErrIllegalTransition = errors.New("ação não permitida para o estado atual do lance")
)

// DefaultConditions is the fixed condition checklist offered to the
// operator when registering a handover.
var DefaultConditions = []string{
	"É recondicionado?",
	"É selado?",
	"Está danificado?",
	"Está com garantia?",
}

// transitionPaths maps handover-completing actions to their backend
// endpoints.
var transitionPaths = map[Action]string{
	ActionReceber:  "api/posto/receber-produto/",
	ActionEntregar: "api/posto/entregar-produto/",
	ActionNegar:    "api/posto/negar-produto/",
	ActionDevolver: "api/posto/devolver-produto/",
}

// Requester is the slice of the session manager the engine depends on.
type Requester interface {
	Do(ctx context.Context, method, path string, opts ...session.RequestOption) (*http.Response, error)
	Funcionario(ctx context.Context) (models.Funcionario, error)
}

// ReceiptOpener receives the backend-rendered receipt document after a
// completed handover. Opening is a one-way side effect: failures are
// logged and never roll back the transition.
type ReceiptOpener interface {
	Open(registroID string, document []byte) error
}

// Submission carries the operator's input for a handover-completing action.
type Submission struct {
	Condicoes   []string
	Observacoes string
	Imagem      *Imagem
}

// Imagem is an optional photo attached to a submission.
type Imagem struct {
	Nome        string
	ContentType string
	Data        []byte
}

// Service drives the custody lifecycle of lances through authenticated
// backend calls. It never mutates status locally: every transition is a
// round trip, and callers refetch the lance list afterwards.
type Service struct {
	log      *slog.Logger
	session  Requester
	receipts ReceiptOpener
}

func New(log *slog.Logger, sess Requester, receipts ReceiptOpener) *Service {
	return &Service{
		log:      log,
		session:  sess,
		receipts: receipts,
	}
}

type lancesResponse struct {
	Lances []models.Lance `json:"lances"`
}

// Lances fetches the current lance list for a posto. This is the only read
// path; it is called on startup and again after every successful mutation.
func (s *Service) Lances(ctx context.Context, postoID string) ([]models.Lance, error) {
	const op = "Handover.Lances"

	log := s.log.With(
		slog.String("op", op),
		slog.String("posto_id", postoID),
	)

	resp, err := s.session.Do(ctx, http.MethodGet, fmt.Sprintf("api/posto/%s/lances/", postoID))
	if err != nil {
		log.Error("failed to fetch lances", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := session.ErrorFromResponse(resp)
		log.Error("lances request rejected", slog.Int("status", resp.StatusCode), slog.String("message", apiErr.Message))
		return nil, fmt.Errorf("%s: %w", op, apiErr)
	}

	var payload lancesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("lances fetched", slog.Int("count", len(payload.Lances)))

	return payload.Lances, nil
}

// Receber registers the product's arrival at the posto (espera → recebido).
func (s *Service) Receber(ctx context.Context, lance models.Lance, sub Submission) (models.Registro, error) {
	return s.transition(ctx, ActionReceber, lance, sub)
}

// Entregar hands the product over to the customer (recebido → entregue).
// Requires a confirmed pickup code.
func (s *Service) Entregar(ctx context.Context, lance models.Lance, sub Submission) (models.Registro, error) {
	return s.transition(ctx, ActionEntregar, lance, sub)
}

// Negar refuses the handover (recebido → recusado).
func (s *Service) Negar(ctx context.Context, lance models.Lance, sub Submission) (models.Registro, error) {
	return s.transition(ctx, ActionNegar, lance, sub)
}

// Devolver returns the product to its owner (recusado → devolvido).
// Requires a confirmed return code.
func (s *Service) Devolver(ctx context.Context, lance models.Lance, sub Submission) (models.Registro, error) {
	return s.transition(ctx, ActionDevolver, lance, sub)
}

func (s *Service) transition(ctx context.Context, action Action, lance models.Lance, sub Submission) (models.Registro, error) {
	const op = "Handover.transition"

	log := s.log.With(
		slog.String("op", op),
		slog.String("action", string(action)),
		slog.String("lance_id", lance.ID),
		slog.String("status", string(lance.Status)),
	)

	if !Allowed(lance, action) {
		log.Warn("illegal transition attempted")
		return models.Registro{}, fmt.Errorf("%s: %w", op, ErrIllegalTransition)
	}

	if len(sub.Condicoes) == 0 {
		return models.Registro{}, fmt.Errorf("%s: %w", op, ErrEmptyChecklist)
	}

	funcionario, err := s.session.Funcionario(ctx)
	if err != nil {
		return models.Registro{}, fmt.Errorf("%s: %w", op, err)
	}

	postoID := lance.Posto.ID
	if funcionario.Posto != nil && funcionario.Posto.ID != "" {
		postoID = funcionario.Posto.ID
	}

	body, contentType, err := encodeSubmission(postoID, funcionario.ID, lance.ID, sub)
	if err != nil {
		return models.Registro{}, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.session.Do(ctx, http.MethodPost, transitionPaths[action],
		session.WithBody(body, contentType),
	)
	if err != nil {
		log.Error("transition request failed", sl.Err(err))
		return models.Registro{}, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := session.ErrorFromResponse(resp)
		log.Warn("transition rejected", slog.Int("status", resp.StatusCode), slog.String("message", apiErr.Message))
		return models.Registro{}, fmt.Errorf("%s: %w", op, apiErr)
	}

	var payload struct {
		Registro models.Registro `json:"registro"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.Registro{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("transition registered", slog.String("registro_id", payload.Registro.ID))

	// The transition is already committed server-side; receipt problems
	// must not undo it.
	s.openReceipt(ctx, payload.Registro.ID)

	return payload.Registro, nil
}

// encodeSubmission builds the multipart form the posto endpoints expect.
func encodeSubmission(postoID, funcionarioID, lanceID string, sub Submission) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"posto_id":       postoID,
		"funcionario_id": funcionarioID,
		"lance_id":       lanceID,
		"estado_produto": strings.Join(sub.Condicoes, ", "),
		"observacoes":    sub.Observacoes,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	if sub.Imagem != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="imagem"; filename="%s"`, sub.Imagem.Nome))
		contentType := sub.Imagem.ContentType
		if contentType == "" {
			contentType = "image/jpeg"
		}
		header.Set("Content-Type", contentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(sub.Imagem.Data); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}

// EnviarCodigo asks the backend to send a fresh verification code to the
// customer for the given purpose. Status is not affected.
func (s *Service) EnviarCodigo(ctx context.Context, lanceID string, purpose CodePurpose) error {
	const op = "Handover.EnviarCodigo"

	log := s.log.With(
		slog.String("op", op),
		slog.String("lance_id", lanceID),
		slog.String("tipo", string(purpose)),
	)

	resp, err := s.session.Do(ctx, http.MethodPost, "api/enviar-codigo/",
		session.WithJSONBody(map[string]string{
			"lance_id": lanceID,
			"tipo":     string(purpose),
		}),
	)
	if err != nil {
		log.Error("failed to send code", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := session.ErrorFromResponse(resp)
		log.Warn("send code rejected", slog.String("message", apiErr.Message))
		return fmt.Errorf("%s: %w", op, apiErr)
	}

	log.Info("verification code sent")

	return nil
}

// ConfirmarCodigo confirms a verification code supplied by the customer.
// On success the backend flips the boolean matching the purpose — and only
// that one; the caller must refetch the lance list to observe it.
func (s *Service) ConfirmarCodigo(ctx context.Context, lanceID, codigo string, purpose CodePurpose) error {
	const op = "Handover.ConfirmarCodigo"

	log := s.log.With(
		slog.String("op", op),
		slog.String("lance_id", lanceID),
		slog.String("tipo", string(purpose)),
	)

	resp, err := s.session.Do(ctx, http.MethodPost, fmt.Sprintf("api/confirmar-codigo/%s/", lanceID),
		session.WithJSONBody(map[string]string{
			"codigo_verificacao": codigo,
			"tipo":               string(purpose),
		}),
	)
	if err != nil {
		log.Error("failed to confirm code", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := session.ErrorFromResponse(resp)
		log.Warn("confirm code rejected", slog.String("message", apiErr.Message))
		return fmt.Errorf("%s: %w", op, apiErr)
	}

	log.Info("verification code confirmed")

	return nil
}

// Receipt fetches the printable receipt document for a registro.
func (s *Service) Receipt(ctx context.Context, registroID string) ([]byte, error) {
	const op = "Handover.Receipt"

	resp, err := s.session.Do(ctx, http.MethodGet, fmt.Sprintf("api/registro-posto/%s/", registroID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w", op, session.ErrorFromResponse(resp))
	}

	document, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return document, nil
}

func (s *Service) openReceipt(ctx context.Context, registroID string) {
	const op = "Handover.openReceipt"

	log := s.log.With(
		slog.String("op", op),
		slog.String("registro_id", registroID),
	)

	if s.receipts == nil {
		return
	}

	document, err := s.Receipt(ctx, registroID)
	if err != nil {
		log.Warn("failed to fetch receipt", sl.Err(err))
		return
	}

	if err := s.receipts.Open(registroID, document); err != nil {
		log.Warn("failed to open receipt", sl.Err(err))
	}
}
