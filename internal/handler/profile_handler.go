package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/creatorflow/internal/middleware"
	"github.com/hitoshi/creatorflow/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	// GetProfile はユーザーのプロフィールを取得する。
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	// UpdateProfile は表示名とアイコン画像を更新する。nilのフィールドは変更しない。
	UpdateProfile(ctx context.Context, userID string, name, picture *string) (*model.User, error)
	// ListCredentials はユーザーの全ソーシャル認可情報を返す。
	ListCredentials(ctx context.Context, userID string) ([]*model.SocialCredential, error)
	// SaveCredential はプラットフォームの認可情報を検証のうえ保存する。
	SaveCredential(ctx context.Context, userID string, platform model.Platform, data json.RawMessage) (*model.SocialCredential, error)
}

// ProfileHandler はプロフィールとソーシャル認可情報のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// 省略されたフィールドは変更しない。
type updateProfileRequest struct {
	Name    *string `json:"name"`
	Picture *string `json:"picture"`
}

// credentialResponse は認可情報のAPIレスポンス。
// Dataは保存時に形状検証済みのJSONをそのまま返す。
type credentialResponse struct {
	Platform  model.Platform  `json:"platform"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
}

// GetProfile はプロフィールを取得する。
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]userResponse{"user": newUserResponse(user)})
}

// UpdateProfile はプロフィールを更新する。
// POST /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid JSON body."))
		return
	}
	if req.Name == nil && req.Picture == nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Provide at least one of: name, picture."))
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, req.Name, req.Picture)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]userResponse{"user": newUserResponse(user)})
}

// ListCredentials は保存済みのソーシャル認可情報一覧を返す。
// GET /api/profile/credentials
func (h *ProfileHandler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	creds, err := h.service.ListCredentials(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]credentialResponse, 0, len(creds))
	for _, cred := range creds {
		resp = append(resp, newCredentialResponse(cred))
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string][]credentialResponse{"credentials": resp})
}

// SaveCredential はプラットフォームの認可情報を保存する。
// PUT /api/profile/credentials/{platform}
func (h *ProfileHandler) SaveCredential(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	raw := chi.URLParam(r, "platform")
	platform, ok := model.ParsePlatform(raw)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidPlatformError(raw))
		return
	}

	var data json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid JSON body."))
		return
	}

	cred, err := h.service.SaveCredential(r.Context(), userID, platform, data)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]credentialResponse{"credential": newCredentialResponse(cred)})
}

func newCredentialResponse(cred *model.SocialCredential) credentialResponse {
	resp := credentialResponse{
		Platform: cred.Platform,
		Data:     cred.Data,
	}
	if !cred.UpdatedAt.IsZero() {
		resp.UpdatedAt = cred.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
