package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskboard/internal/middleware"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/security"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
// すべての操作はプロジェクトの所有者確認を含む。
type TaskServiceInterface interface {
	// ListTasks はプロジェクトのタスク一覧を返す。
	ListTasks(ctx context.Context, userID, projectID string) ([]taskResponse, error)
	// CreateTask はプロジェクトにタスクを作成する。
	CreateTask(ctx context.Context, userID, projectID, title string, description *string, finishDate *time.Time) (*taskResponse, error)
	// EditTask は期限切れでないタスクを部分更新する。
	EditTask(ctx context.Context, userID, projectID, taskID string, patch model.TaskPatch) (*taskResponse, error)
	// SetTaskCompletion は期限切れでないタスクの完了状態を設定する。
	SetTaskCompletion(ctx context.Context, userID, projectID, taskID string, isCompleted bool) (*taskResponse, error)
	// DeleteTask は期限切れでないタスクを削除する。
	DeleteTask(ctx context.Context, userID, projectID, taskID string) error
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service   TaskServiceInterface
	sanitizer security.TextSanitizerService
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface, sanitizer security.TextSanitizerService) *TaskHandler {
	return &TaskHandler{
		service:   service,
		sanitizer: sanitizer,
	}
}

// ListTasks はプロジェクトのタスク一覧を返す。
// GET /api/projects/:projectId/tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
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

	tasks, err := h.service.ListTasks(r.Context(), userID, projectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, tasks)
}

// CreateTask はタスクを作成する。
// POST /api/projects/:projectId/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	projectID := chi.URLParam(r, "projectId")

	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	if err := req.normalize(h.sanitizer); err != nil {
		handleServiceError(w, err)
		return
	}
	finishDate, err := req.validateCreate()
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !isValidID(projectID) {
		handleServiceError(w, model.NewProjectNotFoundError())
		return
	}

	task, err := h.service.CreateTask(r.Context(), userID, projectID, *req.Title, req.Description, finishDate)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusCreated, task)
}

// UpdateTask は期限切れでないタスクを部分更新する。
// PUT /api/projects/:projectId/tasks/:taskId
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	if err := req.normalize(h.sanitizer); err != nil {
		handleServiceError(w, err)
		return
	}
	finishDate, err := req.validateUpdate()
	if err != nil {
		handleServiceError(w, err)
		return
	}

	projectID, taskID, ok := taskPathIDs(w, r)
	if !ok {
		return
	}

	patch := model.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		FinishDate:  finishDate,
	}
	task, err := h.service.EditTask(r.Context(), userID, projectID, taskID, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, task)
}

// ToggleCompletion はタスクの完了状態を設定する。
// PATCH /api/projects/:projectId/tasks/:taskId/toggle
func (h *TaskHandler) ToggleCompletion(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		handleServiceError(w, err)
		return
	}

	projectID, taskID, ok := taskPathIDs(w, r)
	if !ok {
		return
	}

	task, err := h.service.SetTaskCompletion(r.Context(), userID, projectID, taskID, *req.IsCompleted)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, task)
}

// DeleteTask は期限切れでないタスクを削除する。
// DELETE /api/projects/:projectId/tasks/:taskId
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	projectID, taskID, ok := taskPathIDs(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteTask(r.Context(), userID, projectID, taskID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, nil)
}

// taskPathIDs はパスからプロジェクトIDとタスクIDを取り出す。
// どちらかが不正な形式の場合はTaskNotFoundを書き込みfalseを返す。
func taskPathIDs(w http.ResponseWriter, r *http.Request) (projectID, taskID string, ok bool) {
	projectID = chi.URLParam(r, "projectId")
	taskID = chi.URLParam(r, "taskId")
	if !isValidID(projectID) || !isValidID(taskID) {
		handleServiceError(w, model.NewTaskNotFoundError())
		return "", "", false
	}
	return projectID, taskID, true
}
