// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind はクライアント起因エラーの種別を表す。
// 境界層（handler）はこの種別だけを見てHTTPステータスを決める。
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindDuplicateEmail     ErrorKind = "duplicate_email"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindInvalidToken       ErrorKind = "invalid_token"
	KindMissingToken       ErrorKind = "missing_token"
	KindNotFound           ErrorKind = "not_found"
	KindImmutableState     ErrorKind = "immutable_state"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Kind     ErrorKind // エラー種別
	Code     string    // エラーコード
	Message  string    // エラーメッセージ
	Category string    // カテゴリ: auth, validation, project, task, system
	Action   string    // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeMissingToken       = "MISSING_TOKEN"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeProjectNotFound    = "PROJECT_NOT_FOUND"
	ErrCodeTaskNotFound       = "TASK_NOT_FOUND"
	ErrCodeFinishedTaskEdit   = "FINISHED_TASK_EDIT"
	ErrCodeFinishedTaskToggle = "FINISHED_TASK_TOGGLE"
	ErrCodeFinishedTaskDelete = "FINISHED_TASK_DELETE"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeRouteNotFound      = "ROUTE_NOT_FOUND"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
)

// KindOf はエラーチェーンからAPIErrorの種別を取り出す。
// APIErrorを含まない場合は空文字を返す。
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsKind はエラーが指定種別のAPIErrorを含むかを返す。
func IsKind(err error, kind ErrorKind) bool {
	return kind != "" && KindOf(err) == kind
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("Invalid input data: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Kind:     KindDuplicateEmail,
		Code:     ErrCodeDuplicateEmail,
		Message:  "User with this email already exists",
		Category: "auth",
		Action:   "別のメールアドレスで登録するか、ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不正エラーを生成する。
// メールアドレス不明とパスワード不一致で同一の内容を返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Kind:     KindInvalidCredentials,
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password",
		Category: "auth",
		Action:   "メールアドレスとパスワードを確認してください。",
	}
}

// NewInvalidTokenError はトークン不正エラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Kind:     KindInvalidToken,
		Code:     ErrCodeInvalidToken,
		Message:  "Unauthorized",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewMissingTokenError はトークン未指定エラーを生成する。
func NewMissingTokenError() *APIError {
	return &APIError{
		Kind:     KindMissingToken,
		Code:     ErrCodeMissingToken,
		Message:  "Unauthorized",
		Category: "auth",
		Action:   "Authorization: Bearer ヘッダーを付けてリクエストしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewProjectNotFoundError はプロジェクトが見つからない場合のエラーを生成する。
// 他ユーザーのプロジェクトも同じエラーにする（存在を漏らさない）。
func NewProjectNotFoundError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeProjectNotFound,
		Message:  "Project not found",
		Category: "project",
		Action:   "プロジェクトIDを確認してください。",
	}
}

// NewTaskNotFoundError はタスクが見つからない場合のエラーを生成する。
func NewTaskNotFoundError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeTaskNotFound,
		Message:  "Task not found",
		Category: "task",
		Action:   "タスクIDを確認してください。",
	}
}

// NewFinishedTaskEditError は期限切れタスクの編集エラーを生成する。
func NewFinishedTaskEditError() *APIError {
	return newFinishedTaskError(ErrCodeFinishedTaskEdit, "Cannot edit finished tasks")
}

// NewFinishedTaskToggleError は期限切れタスクの完了切替エラーを生成する。
func NewFinishedTaskToggleError() *APIError {
	return newFinishedTaskError(ErrCodeFinishedTaskToggle, "Cannot toggle finished tasks")
}

// NewFinishedTaskDeleteError は期限切れタスクの削除エラーを生成する。
func NewFinishedTaskDeleteError() *APIError {
	return newFinishedTaskError(ErrCodeFinishedTaskDelete, "Cannot delete finished tasks")
}

func newFinishedTaskError(code, message string) *APIError {
	return &APIError{
		Kind:     KindImmutableState,
		Code:     code,
		Message:  message,
		Category: "task",
		Action:   "期限を過ぎたタスクは閲覧のみ可能です。",
	}
}
