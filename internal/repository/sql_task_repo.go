package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/taskboard/internal/database"
	"github.com/hitoshi/taskboard/internal/model"
)

const taskColumns = `t.id, t.project_id, t.title, t.description, t.finish_date, t.is_completed, t.created_at, t.updated_at`

// SQLTaskRepo はdatabase/sqlを使用したタスクリポジトリ。
type SQLTaskRepo struct {
	db *database.DB
}

// NewSQLTaskRepo はSQLTaskRepoを生成する。
func NewSQLTaskRepo(db *database.DB) *SQLTaskRepo {
	return &SQLTaskRepo{db: db}
}

// ListByProjectID はプロジェクトのタスクを作成順に返す。
func (r *SQLTaskRepo) ListByProjectID(ctx context.Context, projectID string) ([]model.Task, error) {
	return r.list(ctx,
		`SELECT `+taskColumns+` FROM tasks t
		 WHERE t.project_id = $1
		 ORDER BY t.created_at ASC, t.id ASC`,
		projectID,
	)
}

// ListByUserID はユーザーが所有する全プロジェクトのタスクを作成順に返す。
func (r *SQLTaskRepo) ListByUserID(ctx context.Context, userID string) ([]model.Task, error) {
	return r.list(ctx,
		`SELECT `+taskColumns+` FROM tasks t
		 INNER JOIN projects p ON p.id = t.project_id
		 WHERE p.user_id = $1
		 ORDER BY t.created_at ASC, t.id ASC`,
		userID,
	)
}

func (r *SQLTaskRepo) list(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// FindOwned はタスクと親プロジェクトを結合して取得する。
// タスクが存在しない場合、親プロジェクトが他ユーザーの所有の場合はnilを返す。
func (r *SQLTaskRepo) FindOwned(ctx context.Context, taskID, userID string) (*model.TaskOwnership, error) {
	var (
		own         model.TaskOwnership
		taskDesc    sql.NullString
		finishDate  sql.NullTime
		projectDesc sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+`,
		        p.id, p.user_id, p.name, p.description, p.created_at, p.updated_at
		 FROM tasks t
		 INNER JOIN projects p ON p.id = t.project_id
		 WHERE t.id = $1 AND p.user_id = $2`,
		taskID, userID,
	).Scan(
		&own.Task.ID, &own.Task.ProjectID, &own.Task.Title, &taskDesc, &finishDate,
		&own.Task.IsCompleted, &own.Task.CreatedAt, &own.Task.UpdatedAt,
		&own.Project.ID, &own.Project.UserID, &own.Project.Name, &projectDesc,
		&own.Project.CreatedAt, &own.Project.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task with project: %w", err)
	}

	own.Task.Description = stringPtr(taskDesc)
	own.Task.FinishDate = timePtr(finishDate)
	own.Task.CreatedAt = own.Task.CreatedAt.UTC()
	own.Task.UpdatedAt = own.Task.UpdatedAt.UTC()
	own.Project.Description = stringPtr(projectDesc)
	own.Project.CreatedAt = own.Project.CreatedAt.UTC()
	own.Project.UpdatedAt = own.Project.UpdatedAt.UTC()

	return &own, nil
}

// Create はタスクを作成する。
func (r *SQLTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, project_id, title, description, finish_date, is_completed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		task.ID, task.ProjectID, task.Title, nullString(task.Description), nullTime(task.FinishDate),
		task.IsCompleted, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// Update はタスクを部分更新し、更新後の値を返す。見つからない場合はnilを返す。
func (r *SQLTaskRepo) Update(ctx context.Context, taskID string, patch model.TaskPatch, updatedAt time.Time) (*model.Task, error) {
	args := []any{taskID, updatedAt}
	sets := []string{"updated_at = $2"}

	if patch.Title != nil {
		args = append(args, *patch.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.Description != nil {
		args = append(args, *patch.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if patch.FinishDate != nil {
		args = append(args, nullTime(patch.FinishDate))
		sets = append(sets, fmt.Sprintf("finish_date = $%d", len(args)))
	}

	return r.updateAndFetch(ctx, taskID,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = $1`,
		args...,
	)
}

// SetCompletion はタスクの完了フラグを設定し、更新後の値を返す。見つからない場合はnilを返す。
func (r *SQLTaskRepo) SetCompletion(ctx context.Context, taskID string, completed bool, updatedAt time.Time) (*model.Task, error) {
	return r.updateAndFetch(ctx, taskID,
		`UPDATE tasks SET is_completed = $2, updated_at = $3 WHERE id = $1`,
		taskID, completed, updatedAt,
	)
}

func (r *SQLTaskRepo) updateAndFetch(ctx context.Context, taskID, query string, args ...any) (*model.Task, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	task, err := scanTask(r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks t WHERE t.id = $1`,
		taskID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}

	return task, nil
}

// Delete はタスクを削除する。見つからない場合はfalseを返す。
func (r *SQLTaskRepo) Delete(ctx context.Context, taskID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func scanTask(row rowScanner) (*model.Task, error) {
	task := &model.Task{}
	var (
		description sql.NullString
		finishDate  sql.NullTime
	)
	err := row.Scan(
		&task.ID, &task.ProjectID, &task.Title, &description, &finishDate,
		&task.IsCompleted, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.Description = stringPtr(description)
	task.FinishDate = timePtr(finishDate)
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	return task, nil
}

// compile-time interface check
var _ TaskRepository = (*SQLTaskRepo)(nil)
