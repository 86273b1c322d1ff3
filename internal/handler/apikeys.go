package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/lingua/internal/auth"
	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/DukeRupert/lingua/internal/service"
)

// APIKeyHandler lets users manage their own AI provider keys.
//
// Routes (wrap with RequireUser):
//   - GET    /api/user-api-keys
//   - POST   /api/user-api-keys
//   - DELETE /api/user-api-keys
type APIKeyHandler struct {
	keys   service.APIKeyService
	logger *slog.Logger
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(keys service.APIKeyService, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{keys: keys, logger: logger}
}

// Keys are never sent back in full.
type maskedKeysJSON struct {
	GroqKey   string `json:"groqKey"`
	OpenAIKey string `json:"openaiKey"`
	GeminiKey string `json:"geminiKey"`
}

type apiKeysResponse struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message,omitempty"`
	Keys      maskedKeysJSON `json:"keys"`
	HasKeys   bool           `json:"hasKeys"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

func toAPIKeysResponse(k *domain.UserAPIKeys, message string) apiKeysResponse {
	resp := apiKeysResponse{
		Success: true,
		Message: message,
		Keys: maskedKeysJSON{
			GroqKey:   domain.MaskAPIKey(k.Groq),
			OpenAIKey: domain.MaskAPIKey(k.OpenAI),
			GeminiKey: domain.MaskAPIKey(k.Gemini),
		},
		HasKeys: k.HasAny(),
	}
	if !k.UpdatedAt.IsZero() {
		resp.UpdatedAt = &k.UpdatedAt
	}
	return resp
}

// Get returns the signed-in user's keys, masked.
func (h *APIKeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	keys, err := h.keys.Get(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toAPIKeysResponse(keys, ""))
}

// An absent field leaves the stored key unchanged; "" removes it.
type saveAPIKeysRequest struct {
	OpenAIKey *string `json:"openaiKey"`
	GroqKey   *string `json:"groqKey"`
	GeminiKey *string `json:"geminiKey"`
}

// Save stores the keys present in the request body.
func (h *APIKeyHandler) Save(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req saveAPIKeysRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	keys, err := h.keys.Save(r.Context(), user.ID, domain.SaveAPIKeysParams{
		OpenAI: req.OpenAIKey,
		Groq:   req.GroqKey,
		Gemini: req.GeminiKey,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toAPIKeysResponse(keys, "API keys saved"))
}

type deleteAPIKeysRequest struct {
	Provider string `json:"provider"`
}

// Delete removes one provider's key, or every key for provider "all".
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req deleteAPIKeysRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	keys, err := h.keys.Delete(r.Context(), user.ID, req.Provider)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toAPIKeysResponse(keys, "API keys deleted"))
}
