package handler

import (
	"context"
	"time"

	"github.com/hitoshi/taskboard/internal/auth"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/project"
)

// AuthServiceAdapter は auth.Service を AuthServiceInterface に適合させるアダプタ。
type AuthServiceAdapter struct {
	svc *auth.Service
}

// NewAuthServiceAdapter はAuthServiceAdapterを生成する。
func NewAuthServiceAdapter(svc *auth.Service) *AuthServiceAdapter {
	return &AuthServiceAdapter{svc: svc}
}

// Register はユーザーを登録しhandlerレスポンス型で返す。
func (a *AuthServiceAdapter) Register(ctx context.Context, email, password, name string) (*authResponse, error) {
	res, err := a.svc.Register(ctx, auth.RegisterInput{Email: email, Password: password, Name: name})
	if err != nil {
		return nil, err
	}
	return toAuthResponse(res), nil
}

// Login は認証しhandlerレスポンス型で返す。
func (a *AuthServiceAdapter) Login(ctx context.Context, email, password string) (*authResponse, error) {
	res, err := a.svc.Login(ctx, auth.LoginInput{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return toAuthResponse(res), nil
}

// CurrentUser はユーザー情報をhandlerレスポンス型で返す。
func (a *AuthServiceAdapter) CurrentUser(ctx context.Context, userID string) (*userResponse, error) {
	user, err := a.svc.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(*user)
	return &resp, nil
}

func toAuthResponse(res *auth.Result) *authResponse {
	return &authResponse{
		User:  toUserResponse(res.User),
		Token: res.Token,
	}
}

// ProjectServiceAdapter は project.Service を ProjectServiceInterface と
// TaskServiceInterface に適合させるアダプタ。
type ProjectServiceAdapter struct {
	svc *project.Service
}

// NewProjectServiceAdapter はProjectServiceAdapterを生成する。
func NewProjectServiceAdapter(svc *project.Service) *ProjectServiceAdapter {
	return &ProjectServiceAdapter{svc: svc}
}

// ListProjects はプロジェクト一覧をhandlerレスポンス型で返す。
func (a *ProjectServiceAdapter) ListProjects(ctx context.Context, userID string) ([]projectResponse, error) {
	projects, err := a.svc.ListProjectsWithTasks(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]projectResponse, len(projects))
	for i, p := range projects {
		results[i] = toProjectResponse(p)
	}
	return results, nil
}

// CreateProject はプロジェクトを作成しhandlerレスポンス型で返す。
func (a *ProjectServiceAdapter) CreateProject(ctx context.Context, userID, name string, description *string) (*projectResponse, error) {
	p, err := a.svc.CreateProject(ctx, userID, name, description)
	if err != nil {
		return nil, err
	}
	resp := toProjectResponse(*p)
	return &resp, nil
}

// UpdateProject はプロジェクトを更新しhandlerレスポンス型で返す。
func (a *ProjectServiceAdapter) UpdateProject(ctx context.Context, userID, projectID string, patch model.ProjectPatch) (*projectResponse, error) {
	p, err := a.svc.UpdateProject(ctx, userID, projectID, patch)
	if err != nil {
		return nil, err
	}
	resp := toProjectResponse(*p)
	return &resp, nil
}

// DeleteProject はプロジェクトを削除する。
func (a *ProjectServiceAdapter) DeleteProject(ctx context.Context, userID, projectID string) error {
	return a.svc.DeleteProject(ctx, userID, projectID)
}

// ListTasks はタスク一覧をhandlerレスポンス型で返す。
func (a *ProjectServiceAdapter) ListTasks(ctx context.Context, userID, projectID string) ([]taskResponse, error) {
	tasks, err := a.svc.ListOwnedTasks(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	return toTaskResponses(tasks), nil
}

// CreateTask はタスクを作成しhandlerレスポンス型で返す。
func (a *ProjectServiceAdapter) CreateTask(ctx context.Context, userID, projectID, title string, description *string, finishDate *time.Time) (*taskResponse, error) {
	task, err := a.svc.CreateOwnedTask(ctx, userID, projectID, project.TaskInput{
		Title:       title,
		Description: description,
		FinishDate:  finishDate,
	})
	if err != nil {
		return nil, err
	}
	resp := toTaskResponse(*task)
	return &resp, nil
}

// EditTask はタスクを更新しhandlerレスポンス型で返す。
func (a *ProjectServiceAdapter) EditTask(ctx context.Context, userID, projectID, taskID string, patch model.TaskPatch) (*taskResponse, error) {
	task, err := a.svc.EditOwnedTask(ctx, userID, projectID, taskID, patch)
	if err != nil {
		return nil, err
	}
	resp := toTaskResponse(*task)
	return &resp, nil
}

// SetTaskCompletion は完了状態を設定しhandlerレスポンス型で返す。
func (a *ProjectServiceAdapter) SetTaskCompletion(ctx context.Context, userID, projectID, taskID string, isCompleted bool) (*taskResponse, error) {
	task, err := a.svc.SetOwnedTaskCompletion(ctx, userID, projectID, taskID, isCompleted)
	if err != nil {
		return nil, err
	}
	resp := toTaskResponse(*task)
	return &resp, nil
}

// DeleteTask はタスクを削除する。
func (a *ProjectServiceAdapter) DeleteTask(ctx context.Context, userID, projectID, taskID string) error {
	return a.svc.DeleteOwnedTask(ctx, userID, projectID, taskID)
}

var (
	_ AuthServiceInterface    = (*AuthServiceAdapter)(nil)
	_ ProjectServiceInterface = (*ProjectServiceAdapter)(nil)
	_ TaskServiceInterface    = (*ProjectServiceAdapter)(nil)
)
