package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/creatorflow/internal/model"
	"github.com/hitoshi/creatorflow/internal/project"
)

// mockProjectService はProjectServiceInterfaceのモック。
type mockProjectService struct {
	createFunc func(ctx context.Context, userID string, input project.CreateInput) (*model.Project, error)
	listFunc   func(ctx context.Context, userID string) ([]*model.Project, error)
	getFunc    func(ctx context.Context, userID, projectID string) (*model.Project, error)
	deleteFunc func(ctx context.Context, userID, projectID string) error
}

func (m *mockProjectService) Create(ctx context.Context, userID string, input project.CreateInput) (*model.Project, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, userID, input)
	}
	return &model.Project{ID: "proj-1", UserID: userID, Title: input.Title, CreatedAt: time.Now()}, nil
}

func (m *mockProjectService) List(ctx context.Context, userID string) ([]*model.Project, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockProjectService) Get(ctx context.Context, userID, projectID string) (*model.Project, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, userID, projectID)
	}
	return &model.Project{ID: projectID, UserID: userID, Title: "t", CreatedAt: time.Now()}, nil
}

func (m *mockProjectService) Delete(ctx context.Context, userID, projectID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, userID, projectID)
	}
	return nil
}

func projectTestRouter(service ProjectServiceInterface) http.Handler {
	h := NewProjectHandler(service)
	r := chi.NewRouter()
	r.Get("/api/projects", h.List)
	r.Post("/api/projects", h.Create)
	r.Get("/api/projects/{projectID}", h.Get)
	r.Delete("/api/projects/{projectID}", h.Delete)
	return r
}

func TestProjectHandler_List(t *testing.T) {
	service := &mockProjectService{
		listFunc: func(ctx context.Context, userID string) ([]*model.Project, error) {
			return []*model.Project{
				{ID: "p2", UserID: userID, Title: "newer", CreatedAt: time.Now()},
				{ID: "p1", UserID: userID, Title: "older", CreatedAt: time.Now().Add(-time.Hour)},
			}, nil
		},
	}
	router := projectTestRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/projects", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body map[string][]projectResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body["projects"]) != 2 {
		t.Fatalf("project count = %d, want 2", len(body["projects"]))
	}
	if body["projects"][0].ID != "p2" {
		t.Errorf("first project = %q, want p2 (newest first)", body["projects"][0].ID)
	}
}

func TestProjectHandler_Create(t *testing.T) {
	var gotInput project.CreateInput
	service := &mockProjectService{
		createFunc: func(ctx context.Context, userID string, input project.CreateInput) (*model.Project, error) {
			gotInput = input
			return &model.Project{ID: "proj-1", UserID: userID, Title: input.Title, CreatedAt: time.Now()}, nil
		},
	}
	router := projectTestRouter(service)

	body := `{"title":"My Video","description":"desc","coverUrl":"https://img.example/c.png"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/projects", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if gotInput.Title != "My Video" || gotInput.CoverURL != "https://img.example/c.png" {
		t.Errorf("input = %+v", gotInput)
	}

	var resp map[string]projectResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["project"].ID != "proj-1" {
		t.Errorf("project.id = %q, want proj-1", resp["project"].ID)
	}
}

func TestProjectHandler_Create_MissingTitle_ReturnsBadRequest(t *testing.T) {
	service := &mockProjectService{
		createFunc: func(ctx context.Context, userID string, input project.CreateInput) (*model.Project, error) {
			return nil, model.NewValidationError("Missing title.")
		},
	}
	router := projectTestRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/projects", `{"description":"no title"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProjectHandler_Get_NotFound_ReturnsNotFound(t *testing.T) {
	service := &mockProjectService{
		getFunc: func(ctx context.Context, userID, projectID string) (*model.Project, error) {
			return nil, model.NewProjectNotFoundError(projectID)
		},
	}
	router := projectTestRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/projects/missing", ""))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Code != model.ErrCodeProjectNotFound {
		t.Errorf("code = %q, want PROJECT_NOT_FOUND", body.Code)
	}
}

func TestProjectHandler_Delete(t *testing.T) {
	deletedID := ""
	service := &mockProjectService{
		deleteFunc: func(ctx context.Context, userID, projectID string) error {
			deletedID = projectID
			return nil
		},
	}
	router := projectTestRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodDelete, "/api/projects/proj-1", ""))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if deletedID != "proj-1" {
		t.Errorf("deleted = %q, want proj-1", deletedID)
	}
}

func TestProjectHandler_NoSession_ReturnsUnauthorized(t *testing.T) {
	router := projectTestRouter(&mockProjectService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
