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

const projectColumns = `id, user_id, name, description, created_at, updated_at`

// SQLProjectRepo はdatabase/sqlを使用したプロジェクトリポジトリ。
type SQLProjectRepo struct {
	db *database.DB
}

// NewSQLProjectRepo はSQLProjectRepoを生成する。
func NewSQLProjectRepo(db *database.DB) *SQLProjectRepo {
	return &SQLProjectRepo{db: db}
}

// ListByUserID はユーザーが所有するプロジェクトを作成順に返す。
func (r *SQLProjectRepo) ListByUserID(ctx context.Context, userID string) ([]model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE user_id = $1
		 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

// FindOwned は指定ユーザーが所有するプロジェクトを取得する。見つからない場合はnilを返す。
func (r *SQLProjectRepo) FindOwned(ctx context.Context, projectID, userID string) (*model.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND user_id = $2`,
		projectID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	return p, nil
}

// ExistsOwned は指定ユーザーがプロジェクトを所有しているかを返す。
func (r *SQLProjectRepo) ExistsOwned(ctx context.Context, projectID, userID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM projects WHERE id = $1 AND user_id = $2`,
		projectID, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check project ownership: %w", err)
	}

	return count > 0, nil
}

// Create はプロジェクトを作成する。
func (r *SQLProjectRepo) Create(ctx context.Context, project *model.Project) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, user_id, name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		project.ID, project.UserID, project.Name, nullString(project.Description),
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	return nil
}

// Update はプロジェクトを部分更新し、更新後の値を返す。
// 所有するプロジェクトが見つからない場合はnilを返す。
func (r *SQLProjectRepo) Update(
	ctx context.Context,
	projectID, userID string,
	patch model.ProjectPatch,
	updatedAt time.Time,
) (*model.Project, error) {
	args := []any{projectID, userID, updatedAt}
	sets := []string{"updated_at = $3"}

	if patch.Name != nil {
		args = append(args, *patch.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if patch.Description != nil {
		args = append(args, *patch.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = $1 AND user_id = $2`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	return r.FindOwned(ctx, projectID, userID)
}

// Delete はプロジェクトと配下のタスクを同一トランザクションで削除する。
// 外部キーのCASCADEとは別に、配下のタスクも明示的に削除する。
// 所有するプロジェクトが見つからない場合はfalseを返す。
func (r *SQLProjectRepo) Delete(ctx context.Context, projectID, userID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM tasks
		 WHERE project_id IN (SELECT id FROM projects WHERE id = $1 AND user_id = $2)`,
		projectID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete tasks of project: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM projects WHERE id = $1 AND user_id = $2`,
		projectID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

func scanProject(row rowScanner) (*model.Project, error) {
	p := &model.Project{}
	var description sql.NullString
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = stringPtr(description)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

// compile-time interface check
var _ ProjectRepository = (*SQLProjectRepo)(nil)
