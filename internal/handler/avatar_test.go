package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DukeRupert/lingua/internal/auth"
	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAvatarService struct {
	UploadFunc func(ctx context.Context, userID uuid.UUID, data io.Reader) (string, error)
}

func (m *mockAvatarService) Upload(ctx context.Context, userID uuid.UUID, data io.Reader) (string, error) {
	return m.UploadFunc(ctx, userID, data)
}

func multipartRequest(t *testing.T, field string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "me.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAvatarUpload(t *testing.T) {
	user := newTestUser()

	var gotUser uuid.UUID
	var gotData []byte
	svc := &mockAvatarService{UploadFunc: func(ctx context.Context, userID uuid.UUID, data io.Reader) (string, error) {
		gotUser = userID
		gotData, _ = io.ReadAll(data)
		return "/files/avatars/x.jpg", nil
	}}
	h := NewAvatarHandler(svc, newTestLogger())

	req := multipartRequest(t, AvatarFormField, []byte("image-bytes"))
	req = req.WithContext(auth.SetUser(req.Context(), user))
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"avatarUrl":"/files/avatars/x.jpg"}`, rec.Body.String())
	assert.Equal(t, user.ID, gotUser)
	assert.Equal(t, []byte("image-bytes"), gotData)
}

func TestAvatarUpload_Errors(t *testing.T) {
	svc := &mockAvatarService{UploadFunc: func(ctx context.Context, userID uuid.UUID, data io.Reader) (string, error) {
		return "", domain.Errorf(domain.EINVALID, "AvatarService.Upload", "Invalid file type. Only JPEG, PNG, WebP and GIF are allowed")
	}}
	h := NewAvatarHandler(svc, newTestLogger())

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Upload(rec, multipartRequest(t, AvatarFormField, []byte("x")))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing field", func(t *testing.T) {
		req := multipartRequest(t, "picture", []byte("x"))
		req = req.WithContext(auth.SetUser(req.Context(), newTestUser()))
		rec := httptest.NewRecorder()
		h.Upload(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "No file uploaded")
	})

	t.Run("rejected by service", func(t *testing.T) {
		req := multipartRequest(t, AvatarFormField, []byte("not an image"))
		req = req.WithContext(auth.SetUser(req.Context(), newTestUser()))
		rec := httptest.NewRecorder()
		h.Upload(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid file type")
	})
}
