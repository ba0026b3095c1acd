package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qubiq-ai/edu-gateway/internal/auth"
	"github.com/qubiq-ai/edu-gateway/internal/domain"
	"github.com/qubiq-ai/edu-gateway/internal/gateway"
)

// Handler wires the admin and proxy endpoints to the gateway service.
type Handler struct {
	svc      *gateway.Service
	verifier auth.Verifier
	guard    *auth.AdminGuard
	logger   *slog.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(svc *gateway.Service, verifier auth.Verifier, guard *auth.AdminGuard, logger *slog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		verifier: verifier,
		guard:    guard,
		logger:   logger,
	}
}

// Routes mounts all endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleHealth)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/school-keys", h.handleUpsertKeys)
		r.Post("/school-disable", h.handleDisable)
	})

	r.Route("/proxy", func(r chi.Router) {
		r.Post("/chat", h.handleChat)
		r.Post("/image", h.handleImage)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Edu AI Gateway running"))
}

// identify verifies the bearer token. Verification failure short-circuits
// before any gateway logic runs.
func (h *Handler) identify(r *http.Request) (*domain.Identity, error) {
	token, err := auth.ExtractBearer(r)
	if err != nil {
		return nil, err
	}

	identity, err := h.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	AddLogField(r.Context(), "subject", identity.Subject)
	return identity, nil
}

// authorizeAdmin accepts either the shared admin secret (X-API-Key) or a
// verified admin-flagged identity.
func (h *Handler) authorizeAdmin(r *http.Request) error {
	sharedSecret := r.Header.Get("X-API-Key")

	var identity *domain.Identity
	if r.Header.Get("Authorization") != "" {
		id, err := h.identify(r)
		if err != nil && sharedSecret == "" {
			return err
		}
		identity = id
	}

	return h.guard.Authorize(sharedSecret, identity)
}

type upsertKeysRequest struct {
	SchoolID string            `json:"schoolId"`
	Keys     map[string]string `json:"keys"`
}

type upsertKeysResponse struct {
	Success  bool   `json:"success"`
	SchoolID string `json:"schoolId"`
}

func (h *Handler) handleUpsertKeys(w http.ResponseWriter, r *http.Request) {
	if err := h.authorizeAdmin(r); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req upsertKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, domain.ErrInvalidRequest("invalid JSON body"))
		return
	}

	AddLogField(r.Context(), "tenant_id", req.SchoolID)

	if err := h.svc.UpsertKeys(r.Context(), req.SchoolID, req.Keys); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, upsertKeysResponse{Success: true, SchoolID: req.SchoolID})
}

type disableRequest struct {
	SchoolID string `json:"schoolId"`
}

type disableResponse struct {
	Success bool `json:"success"`
}

func (h *Handler) handleDisable(w http.ResponseWriter, r *http.Request) {
	if err := h.authorizeAdmin(r); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req disableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, domain.ErrInvalidRequest("invalid JSON body"))
		return
	}

	AddLogField(r.Context(), "tenant_id", req.SchoolID)

	if err := h.svc.DisableTenant(r.Context(), req.SchoolID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, disableResponse{Success: true})
}

type chatRequest struct {
	BotType  string `json:"botType"`
	Prompt   string `json:"prompt"`
	SchoolID string `json:"schoolId"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identify(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, domain.ErrInvalidRequest("invalid JSON body"))
		return
	}

	AddLogField(r.Context(), "bot_type", req.BotType)

	reply, err := h.svc.Chat(r.Context(), identity, &domain.ChatRequest{
		Capability: domain.Capability(req.BotType),
		Prompt:     req.Prompt,
		TenantID:   req.SchoolID,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

type imageRequest struct {
	Prompt   string `json:"prompt"`
	SchoolID string `json:"schoolId"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Steps    int    `json:"steps"`
}

func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identify(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req imageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, domain.ErrInvalidRequest("invalid JSON body"))
		return
	}

	result, err := h.svc.GenerateImage(r.Context(), identity, &domain.ImageRequest{
		Prompt:   req.Prompt,
		TenantID: req.SchoolID,
		Width:    req.Width,
		Height:   req.Height,
		Steps:    req.Steps,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
