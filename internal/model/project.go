package model

import "time"

// Project はユーザーが所有するプロジェクトを表す。
type Project struct {
	ID          string
	UserID      string
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectWithTasks はプロジェクトとその全タスクを表す。
type ProjectWithTasks struct {
	Project
	Tasks []Task
}

// Task はプロジェクトに属するタスクを表す。
// FinishDate を過ぎたタスクは完了フラグに関係なく読み取り専用になる。
type Task struct {
	ID          string
	ProjectID   string
	Title       string
	Description *string
	FinishDate  *time.Time
	IsCompleted bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskOwnership はタスクと、そのタスクを所有するプロジェクトの組。
// タスク変更前の所有者確認の結果として返す。
type TaskOwnership struct {
	Task    Task
	Project Project
}

// IsTaskFinished はタスクが終了済み（期限切れ）かを判定する。
// 期限が設定されていて、かつ now より前の場合のみ true。
func IsTaskFinished(finishDate *time.Time, now time.Time) bool {
	if finishDate == nil {
		return false
	}
	return finishDate.Before(now)
}

// ProjectPatch はプロジェクトの部分更新内容。nilのフィールドは変更しない。
type ProjectPatch struct {
	Name        *string
	Description *string
}

// TaskPatch はタスクの部分更新内容。nilのフィールドは変更しない。
type TaskPatch struct {
	Title       *string
	Description *string
	FinishDate  *time.Time
}
