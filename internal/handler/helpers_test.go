package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskboard/internal/middleware"
	"github.com/hitoshi/taskboard/internal/model"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	registerFn    func(ctx context.Context, email, password, name string) (*authResponse, error)
	loginFn       func(ctx context.Context, email, password string) (*authResponse, error)
	currentUserFn func(ctx context.Context, userID string) (*userResponse, error)
}

func (m *mockAuthService) Register(ctx context.Context, email, password, name string) (*authResponse, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, email, password, name)
	}
	return &authResponse{}, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*authResponse, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return &authResponse{}, nil
}

func (m *mockAuthService) CurrentUser(ctx context.Context, userID string) (*userResponse, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, userID)
	}
	return &userResponse{ID: userID}, nil
}

// mockProjectService はProjectServiceInterfaceのモック実装。
type mockProjectService struct {
	listProjectsFn  func(ctx context.Context, userID string) ([]projectResponse, error)
	createProjectFn func(ctx context.Context, userID, name string, description *string) (*projectResponse, error)
	updateProjectFn func(ctx context.Context, userID, projectID string, patch model.ProjectPatch) (*projectResponse, error)
	deleteProjectFn func(ctx context.Context, userID, projectID string) error
}

func (m *mockProjectService) ListProjects(ctx context.Context, userID string) ([]projectResponse, error) {
	if m.listProjectsFn != nil {
		return m.listProjectsFn(ctx, userID)
	}
	return []projectResponse{}, nil
}

func (m *mockProjectService) CreateProject(ctx context.Context, userID, name string, description *string) (*projectResponse, error) {
	if m.createProjectFn != nil {
		return m.createProjectFn(ctx, userID, name, description)
	}
	return &projectResponse{}, nil
}

func (m *mockProjectService) UpdateProject(ctx context.Context, userID, projectID string, patch model.ProjectPatch) (*projectResponse, error) {
	if m.updateProjectFn != nil {
		return m.updateProjectFn(ctx, userID, projectID, patch)
	}
	return &projectResponse{}, nil
}

func (m *mockProjectService) DeleteProject(ctx context.Context, userID, projectID string) error {
	if m.deleteProjectFn != nil {
		return m.deleteProjectFn(ctx, userID, projectID)
	}
	return nil
}

// mockTaskService はTaskServiceInterfaceのモック実装。
type mockTaskService struct {
	listTasksFn         func(ctx context.Context, userID, projectID string) ([]taskResponse, error)
	createTaskFn        func(ctx context.Context, userID, projectID, title string, description *string, finishDate *time.Time) (*taskResponse, error)
	editTaskFn          func(ctx context.Context, userID, projectID, taskID string, patch model.TaskPatch) (*taskResponse, error)
	setTaskCompletionFn func(ctx context.Context, userID, projectID, taskID string, isCompleted bool) (*taskResponse, error)
	deleteTaskFn        func(ctx context.Context, userID, projectID, taskID string) error
}

func (m *mockTaskService) ListTasks(ctx context.Context, userID, projectID string) ([]taskResponse, error) {
	if m.listTasksFn != nil {
		return m.listTasksFn(ctx, userID, projectID)
	}
	return []taskResponse{}, nil
}

func (m *mockTaskService) CreateTask(ctx context.Context, userID, projectID, title string, description *string, finishDate *time.Time) (*taskResponse, error) {
	if m.createTaskFn != nil {
		return m.createTaskFn(ctx, userID, projectID, title, description, finishDate)
	}
	return &taskResponse{}, nil
}

func (m *mockTaskService) EditTask(ctx context.Context, userID, projectID, taskID string, patch model.TaskPatch) (*taskResponse, error) {
	if m.editTaskFn != nil {
		return m.editTaskFn(ctx, userID, projectID, taskID, patch)
	}
	return &taskResponse{}, nil
}

func (m *mockTaskService) SetTaskCompletion(ctx context.Context, userID, projectID, taskID string, isCompleted bool) (*taskResponse, error) {
	if m.setTaskCompletionFn != nil {
		return m.setTaskCompletionFn(ctx, userID, projectID, taskID, isCompleted)
	}
	return &taskResponse{}, nil
}

func (m *mockTaskService) DeleteTask(ctx context.Context, userID, projectID, taskID string) error {
	if m.deleteTaskFn != nil {
		return m.deleteTaskFn(ctx, userID, projectID, taskID)
	}
	return nil
}

// passthroughSanitizer は入力をそのまま返すサニタイザー。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(raw string) string { return raw }

// --- テストヘルパー ---

const (
	testProjectID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	testTaskID    = "a3bb189e-8bf9-3888-9912-ace4e6543002"
)

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParams はテスト用にchiのURLパラメータを注入するヘルパー。kvはキーと値の組。
func withChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// jsonRequest はJSONボディ付きのリクエストを生成する。
func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// parseErrorBody はレスポンスボディから {"error": {...}} をパースするヘルパー。
func parseErrorBody(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var env middleware.ErrorEnvelope
	if err := json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&env); err != nil {
		t.Fatalf("failed to decode error response: %v\nraw: %s", err, w.Body.String())
	}
	return env.Error
}

// parseData はレスポンスボディの data をdstにパースするヘルパー。
func parseData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	env := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v\nraw: %s", err, w.Body.String())
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("failed to decode data: %v\nraw: %s", err, string(env.Data))
	}
}

func strPtr(s string) *string { return &s }
