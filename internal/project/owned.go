package project

import (
	"context"
	"log/slog"

	"github.com/hitoshi/taskboard/internal/metrics"
	"github.com/hitoshi/taskboard/internal/model"
)

// 以下はHTTPのタスク系ルートが使う操作。
// 所有者確認、期限切れ確認、本体の順に実行する。

// ListOwnedTasks はuserIDが所有するプロジェクトのタスク一覧を返す。
func (s *Service) ListOwnedTasks(ctx context.Context, userID, projectID string) ([]model.Task, error) {
	if err := s.requireProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.ListTasks(ctx, projectID)
}

// CreateOwnedTask はuserIDが所有するプロジェクトにタスクを作成する。
func (s *Service) CreateOwnedTask(ctx context.Context, userID, projectID string, input TaskInput) (*model.Task, error) {
	if err := s.requireProject(ctx, userID, projectID); err != nil {
		s.record(OpCreate, err)
		return nil, err
	}

	task, err := s.CreateTask(ctx, projectID, input)
	s.record(OpCreate, err)
	return task, err
}

// EditOwnedTask は期限切れでない所有タスクを部分更新する。
func (s *Service) EditOwnedTask(ctx context.Context, userID, projectID, taskID string, patch model.TaskPatch) (*model.Task, error) {
	if _, err := s.mutableTask(ctx, userID, projectID, taskID, model.NewFinishedTaskEditError); err != nil {
		s.record(OpEdit, err)
		return nil, err
	}

	task, err := s.UpdateTask(ctx, taskID, patch)
	s.record(OpEdit, err)
	return task, err
}

// SetOwnedTaskCompletion は期限切れでない所有タスクの完了フラグを設定する。
func (s *Service) SetOwnedTaskCompletion(ctx context.Context, userID, projectID, taskID string, isCompleted bool) (*model.Task, error) {
	if _, err := s.mutableTask(ctx, userID, projectID, taskID, model.NewFinishedTaskToggleError); err != nil {
		s.record(OpToggle, err)
		return nil, err
	}

	task, err := s.ToggleCompletion(ctx, taskID, isCompleted)
	s.record(OpToggle, err)
	return task, err
}

// DeleteOwnedTask は期限切れでない所有タスクを削除する。
func (s *Service) DeleteOwnedTask(ctx context.Context, userID, projectID, taskID string) error {
	if _, err := s.mutableTask(ctx, userID, projectID, taskID, model.NewFinishedTaskDeleteError); err != nil {
		s.record(OpDelete, err)
		return err
	}

	err := s.DeleteTask(ctx, taskID)
	s.record(OpDelete, err)
	if err == nil {
		slog.Info("タスクを削除しました",
			slog.String("user_id", userID),
			slog.String("project_id", projectID),
			slog.String("task_id", taskID),
		)
	}
	return err
}

// requireProject はプロジェクトを所有していない場合にProjectNotFoundを返す。
func (s *Service) requireProject(ctx context.Context, userID, projectID string) error {
	ok, err := s.VerifyProjectOwnership(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewProjectNotFoundError()
	}
	return nil
}

// mutableTask は所有者確認と期限切れ確認を行う。
// タスクがprojectIDに属していない場合もTaskNotFoundとする。
func (s *Service) mutableTask(
	ctx context.Context,
	userID, projectID, taskID string,
	finishedErr func() *model.APIError,
) (*model.TaskOwnership, error) {
	own, err := s.VerifyTaskOwnership(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if own.Task.ProjectID != projectID {
		return nil, model.NewTaskNotFoundError()
	}
	if s.IsFinished(own.Task.FinishDate) {
		return nil, finishedErr()
	}
	return own, nil
}

// record はタスク変更操作の結果をメトリクスに記録する。
func (s *Service) record(op string, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case model.KindOf(err) != "":
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeError
	}
	s.metrics.RecordTaskMutation(op, outcome)
}
