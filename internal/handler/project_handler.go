package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskboard/internal/middleware"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/security"
)

// ProjectServiceInterface はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	// ListProjects はユーザーの全プロジェクトをタスク付きで返す。
	ListProjects(ctx context.Context, userID string) ([]projectResponse, error)
	// CreateProject はプロジェクトを作成する。
	CreateProject(ctx context.Context, userID, name string, description *string) (*projectResponse, error)
	// UpdateProject は所有プロジェクトを部分更新する。
	UpdateProject(ctx context.Context, userID, projectID string, patch model.ProjectPatch) (*projectResponse, error)
	// DeleteProject は所有プロジェクトを配下のタスクごと削除する。
	DeleteProject(ctx context.Context, userID, projectID string) error
}

// ProjectHandler はプロジェクト管理のHTTPハンドラー。
type ProjectHandler struct {
	service   ProjectServiceInterface
	sanitizer security.TextSanitizerService
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface, sanitizer security.TextSanitizerService) *ProjectHandler {
	return &ProjectHandler{
		service:   service,
		sanitizer: sanitizer,
	}
}

// ListProjects はユーザーのプロジェクト一覧をタスク付きで返す。
// GET /api/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	projects, err := h.service.ListProjects(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, projects)
}

// CreateProject はプロジェクトを作成する。
// POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	if err := req.normalize(h.sanitizer); err != nil {
		handleServiceError(w, err)
		return
	}
	if err := req.validateCreate(); err != nil {
		handleServiceError(w, err)
		return
	}

	project, err := h.service.CreateProject(r.Context(), userID, *req.Name, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusCreated, project)
}

// UpdateProject はプロジェクトの名前・説明を部分更新する。
// PUT /api/projects/:id
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	projectID := chi.URLParam(r, "projectId")

	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	if err := req.normalize(h.sanitizer); err != nil {
		handleServiceError(w, err)
		return
	}
	if err := req.validateUpdate(); err != nil {
		handleServiceError(w, err)
		return
	}

	if !isValidID(projectID) {
		handleServiceError(w, model.NewProjectNotFoundError())
		return
	}

	project, err := h.service.UpdateProject(r.Context(), userID, projectID, req.patch())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, project)
}

// DeleteProject はプロジェクトを配下のタスクごと削除する。
// DELETE /api/projects/:id
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	projectID := chi.URLParam(r, "projectId")
	if !isValidID(projectID) {
		handleServiceError(w, model.NewProjectNotFoundError())
		return
	}

	if err := h.service.DeleteProject(r.Context(), userID, projectID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, nil)
}
