// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/taskboard/internal/model"
)

// ErrDuplicateEmail はメールアドレスの一意制約に違反した場合に返される。
var ErrDuplicateEmail = errors.New("repository: duplicate email")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーをパスワードダイジェスト付きで取得する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.UserCredential, error)

	// Create はユーザーを作成する。
	// メールアドレスが既に存在する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.UserCredential) error
}

// ProjectRepository はプロジェクトデータの永続化インターフェース。
// 所有者の条件はすべてのクエリのWHERE句に含める。
type ProjectRepository interface {
	// ListByUserID はユーザーが所有するプロジェクトを作成順に返す。
	ListByUserID(ctx context.Context, userID string) ([]model.Project, error)

	// FindOwned は指定ユーザーが所有するプロジェクトを取得する。
	// 存在しない場合、他ユーザーの所有の場合はnilを返す。
	FindOwned(ctx context.Context, projectID, userID string) (*model.Project, error)

	// ExistsOwned は指定ユーザーがプロジェクトを所有しているかを返す。
	ExistsOwned(ctx context.Context, projectID, userID string) (bool, error)

	// Create はプロジェクトを作成する。
	Create(ctx context.Context, project *model.Project) error

	// Update はプロジェクトを部分更新し、更新後の値を返す。
	// 所有するプロジェクトが見つからない場合はnilを返す。
	Update(ctx context.Context, projectID, userID string, patch model.ProjectPatch, updatedAt time.Time) (*model.Project, error)

	// Delete はプロジェクトと配下のタスクを同一トランザクションで削除する。
	// 所有するプロジェクトが見つからない場合はfalseを返す。
	Delete(ctx context.Context, projectID, userID string) (bool, error)
}

// TaskRepository はタスクデータの永続化インターフェース。
// 所有者の確認は呼び出し側の責務とし、FindOwned以外は所有者を見ない。
type TaskRepository interface {
	// ListByProjectID はプロジェクトのタスクを作成順に返す。
	ListByProjectID(ctx context.Context, projectID string) ([]model.Task, error)

	// ListByUserID はユーザーが所有する全プロジェクトのタスクを作成順に返す。
	ListByUserID(ctx context.Context, userID string) ([]model.Task, error)

	// FindOwned はタスクと親プロジェクトを結合して取得する。
	// タスクが存在しない場合、親プロジェクトが他ユーザーの所有の場合はnilを返す。
	FindOwned(ctx context.Context, taskID, userID string) (*model.TaskOwnership, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// Update はタスクを部分更新し、更新後の値を返す。見つからない場合はnilを返す。
	Update(ctx context.Context, taskID string, patch model.TaskPatch, updatedAt time.Time) (*model.Task, error)

	// SetCompletion はタスクの完了フラグを設定し、更新後の値を返す。見つからない場合はnilを返す。
	SetCompletion(ctx context.Context, taskID string, completed bool, updatedAt time.Time) (*model.Task, error)

	// Delete はタスクを削除する。見つからない場合はfalseを返す。
	Delete(ctx context.Context, taskID string) (bool, error)
}
