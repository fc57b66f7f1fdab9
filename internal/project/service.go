// Package project はプロジェクトとタスクの所有者確認とライフサイクル管理を提供する。
package project

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskboard/internal/metrics"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/repository"
)

// タスク変更操作の種別（メトリクスのopラベル）
const (
	OpCreate = "create"
	OpEdit   = "edit"
	OpToggle = "toggle"
	OpDelete = "delete"
)

// TaskInput はタスク作成時の入力値。検証済みの値を受け取る。
type TaskInput struct {
	Title       string
	Description *string
	FinishDate  *time.Time
}

// Service はプロジェクトとタスクのサービス層。
// すべての操作は認証済みのuserIDを前提とする。
type Service struct {
	projects repository.ProjectRepository
	tasks    repository.TaskRepository
	metrics  metrics.MetricsCollector
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewService(
	projects repository.ProjectRepository,
	tasks repository.TaskRepository,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		projects: projects,
		tasks:    tasks,
		metrics:  collector,
		now:      time.Now,
	}
}

// timestamp は保存用の現在時刻を返す。PostgreSQLの精度に合わせてマイクロ秒で切り捨てる。
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// IsFinished はタスクが期限切れ（読み取り専用）かを現在時刻で判定する。
func (s *Service) IsFinished(finishDate *time.Time) bool {
	return model.IsTaskFinished(finishDate, s.now())
}

// ListProjectsWithTasks はユーザーが所有する全プロジェクトを、それぞれのタスク付きで返す。
func (s *Service) ListProjectsWithTasks(ctx context.Context, userID string) ([]model.ProjectWithTasks, error) {
	projects, err := s.projects.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	tasks, err := s.tasks.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	byProject := make(map[string][]model.Task, len(projects))
	for _, task := range tasks {
		byProject[task.ProjectID] = append(byProject[task.ProjectID], task)
	}

	results := make([]model.ProjectWithTasks, len(projects))
	for i, p := range projects {
		projectTasks := byProject[p.ID]
		if projectTasks == nil {
			projectTasks = []model.Task{}
		}
		results[i] = model.ProjectWithTasks{Project: p, Tasks: projectTasks}
	}

	return results, nil
}

// CreateProject はuserIDを所有者とするプロジェクトを作成し、空のタスク一覧付きで返す。
func (s *Service) CreateProject(ctx context.Context, userID, name string, description *string) (*model.ProjectWithTasks, error) {
	now := s.timestamp()
	p := &model.Project{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.projects.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	slog.Info("プロジェクトを作成しました",
		slog.String("user_id", userID),
		slog.String("project_id", p.ID),
	)

	return &model.ProjectWithTasks{Project: *p, Tasks: []model.Task{}}, nil
}

// UpdateProject はプロジェクトを部分更新し、現在のタスク一覧付きで返す。
// 存在しない場合と他ユーザーの所有の場合は同じNotFoundを返す。
func (s *Service) UpdateProject(ctx context.Context, userID, projectID string, patch model.ProjectPatch) (*model.ProjectWithTasks, error) {
	p, err := s.projects.Update(ctx, projectID, userID, patch, s.timestamp())
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	if p == nil {
		return nil, model.NewProjectNotFoundError()
	}

	tasks, err := s.tasks.ListByProjectID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return &model.ProjectWithTasks{Project: *p, Tasks: tasks}, nil
}

// DeleteProject はプロジェクトと配下の全タスクを削除する。
// 期限切れタスクも一緒に削除される。
func (s *Service) DeleteProject(ctx context.Context, userID, projectID string) error {
	deleted, err := s.projects.Delete(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if !deleted {
		return model.NewProjectNotFoundError()
	}

	slog.Info("プロジェクトを削除しました",
		slog.String("user_id", userID),
		slog.String("project_id", projectID),
	)

	return nil
}

// VerifyProjectOwnership はuserIDがプロジェクトを所有しているかを返す。副作用はない。
func (s *Service) VerifyProjectOwnership(ctx context.Context, projectID, userID string) (bool, error) {
	ok, err := s.projects.ExistsOwned(ctx, projectID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to verify project ownership: %w", err)
	}
	return ok, nil
}

// ListTasks はプロジェクトの全タスクを返す。所有者確認は行わない。
func (s *Service) ListTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	tasks, err := s.tasks.ListByProjectID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// CreateTask は未完了のタスクを作成する。所有者確認は行わない。
func (s *Service) CreateTask(ctx context.Context, projectID string, input TaskInput) (*model.Task, error) {
	now := s.timestamp()
	task := &model.Task{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Title:       input.Title,
		Description: input.Description,
		FinishDate:  utcPtr(input.FinishDate),
		IsCompleted: false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// VerifyTaskOwnership はタスクと親プロジェクトを取得する。
// タスクが存在しない場合、他ユーザーの所有の場合はTaskNotFoundを返す。
func (s *Service) VerifyTaskOwnership(ctx context.Context, taskID, userID string) (*model.TaskOwnership, error) {
	own, err := s.tasks.FindOwned(ctx, taskID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify task ownership: %w", err)
	}
	if own == nil {
		return nil, model.NewTaskNotFoundError()
	}
	return own, nil
}

// UpdateTask はタスクを部分更新する。期限切れの確認は呼び出し側の責務。
func (s *Service) UpdateTask(ctx context.Context, taskID string, patch model.TaskPatch) (*model.Task, error) {
	patch.FinishDate = utcPtr(patch.FinishDate)
	task, err := s.tasks.Update(ctx, taskID, patch, s.timestamp())
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError()
	}
	return task, nil
}

// ToggleCompletion はタスクの完了フラグを設定する。期限切れの確認は呼び出し側の責務。
func (s *Service) ToggleCompletion(ctx context.Context, taskID string, isCompleted bool) (*model.Task, error) {
	task, err := s.tasks.SetCompletion(ctx, taskID, isCompleted, s.timestamp())
	if err != nil {
		return nil, fmt.Errorf("failed to set task completion: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError()
	}
	return task, nil
}

// DeleteTask はタスクを削除する。期限切れの確認は呼び出し側の責務。
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	deleted, err := s.tasks.Delete(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !deleted {
		return model.NewTaskNotFoundError()
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
