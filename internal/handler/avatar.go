package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/lingua/internal/auth"
	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/DukeRupert/lingua/internal/service"
)

// AvatarFormField is the multipart field carrying the image.
const AvatarFormField = "avatar"

// AvatarHandler serves POST /api/upload-avatar.
type AvatarHandler struct {
	avatars service.AvatarService
	logger  *slog.Logger
}

// NewAvatarHandler creates a new AvatarHandler.
func NewAvatarHandler(avatars service.AvatarService, logger *slog.Logger) *AvatarHandler {
	return &AvatarHandler{avatars: avatars, logger: logger}
}

type avatarResponse struct {
	Success   bool   `json:"success"`
	AvatarURL string `json:"avatarUrl"`
}

// Upload stores the uploaded avatar for the signed-in user.
func (h *AvatarHandler) Upload(w http.ResponseWriter, r *http.Request) {
	const op = "AvatarHandler.Upload"

	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	// Leave room for multipart framing around the largest allowed file.
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxAvatarBytes+1<<20)

	file, _, err := r.FormFile(AvatarFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			ErrorResponse(w, r, h.logger, domain.Errorf(domain.ETOOLARGE, op, "File too large. Maximum size is 10MB"))
		default:
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "No file uploaded"))
		}
		return
	}
	defer file.Close()

	url, err := h.avatars.Upload(r.Context(), user.ID, file)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, avatarResponse{Success: true, AvatarURL: url})
}
