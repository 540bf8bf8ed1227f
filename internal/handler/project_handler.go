package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/creatorflow/internal/middleware"
	"github.com/hitoshi/creatorflow/internal/model"
	"github.com/hitoshi/creatorflow/internal/project"
)

// ProjectServiceInterface はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	// Create はプロジェクトを作成する。
	Create(ctx context.Context, userID string, input project.CreateInput) (*model.Project, error)
	// List はユーザーのプロジェクト一覧を作成日時降順で返す。
	List(ctx context.Context, userID string) ([]*model.Project, error)
	// Get はプロジェクトを取得する。他ユーザーの所有物はnot found扱い。
	Get(ctx context.Context, userID, projectID string) (*model.Project, error)
	// Delete はプロジェクトを削除する。
	Delete(ctx context.Context, userID, projectID string) error
}

// ProjectHandler はコンテンツプロジェクト管理のHTTPハンドラー。
type ProjectHandler struct {
	service ProjectServiceInterface
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// createProjectRequest はプロジェクト作成リクエストのボディ。
type createProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CoverURL    string `json:"coverUrl"`
	ContentURL  string `json:"contentUrl"`
}

// projectResponse はプロジェクトのAPIレスポンス。
type projectResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CoverURL    string `json:"coverUrl,omitempty"`
	ContentURL  string `json:"contentUrl,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

func newProjectResponse(p *model.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		CoverURL:    p.CoverURL,
		ContentURL:  p.ContentURL,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// List はプロジェクト一覧を返す。
// GET /api/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	projects, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, newProjectResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string][]projectResponse{"projects": resp})
}

// Create はプロジェクトを作成する。
// POST /api/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid JSON body."))
		return
	}

	p, err := h.service.Create(r.Context(), userID, project.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		CoverURL:    req.CoverURL,
		ContentURL:  req.ContentURL,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]projectResponse{"project": newProjectResponse(p)})
}

// Get はプロジェクトを取得する。
// GET /api/projects/{projectID}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	p, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "projectID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]projectResponse{"project": newProjectResponse(p)})
}

// Delete はプロジェクトを削除する。
// DELETE /api/projects/{projectID}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "projectID")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
