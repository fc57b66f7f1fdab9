package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/security"
)

// maxBodyBytes はリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// 入力値の長さ制限（文字数）
const (
	minPasswordLength = 6
	maxNameLength     = 255
	maxTitleLength    = 255
)

// maxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
const maxPasswordBytes = 72

// dateOnlyLayout は finishDate に受け付ける日付のみの形式。
const dateOnlyLayout = "2006-01-02"

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// projectRequest はプロジェクト作成・更新リクエストのボディ。
type projectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// taskRequest はタスク作成・更新リクエストのボディ。
type taskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	FinishDate  *string `json:"finishDate"`
}

// toggleRequest は完了状態切替リクエストのボディ。
type toggleRequest struct {
	IsCompleted *bool `json:"isCompleted"`
}

// decodeJSON はリクエストボディをdstにデコードする。
// 空ボディ、不正なJSON、型の不一致はValidationErrorにする。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewValidationError("request body is empty")
		}
		return model.NewValidationError("malformed JSON body")
	}
	return nil
}

// validateEmail はメールアドレスの形式を検証する。表示名付きの形式は受け付けない。
// 前後の空白は無視する（正規化はauthサービスで行う）。
func validateEmail(email string) error {
	trimmed := strings.TrimSpace(email)
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return model.NewValidationError("email must be a valid address")
	}
	return nil
}

func (req registerRequest) validate() error {
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return model.NewValidationError("password must be at least 6 characters")
	}
	if len(req.Password) > maxPasswordBytes {
		return model.NewValidationError("password must be at most 72 bytes")
	}
	if req.Name == "" {
		return model.NewValidationError("name is required")
	}
	return nil
}

func (req loginRequest) validate() error {
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if req.Password == "" {
		return model.NewValidationError("password is required")
	}
	return nil
}

// normalize はテキスト項目の前後の空白を除き、マークアップを含む場合はValidationErrorを返す。
// nilのフィールドはそのまま。
func (req *projectRequest) normalize(s security.TextSanitizerService) error {
	var err error
	if req.Name, err = plainText(s, "name", req.Name); err != nil {
		return err
	}
	req.Description, err = plainText(s, "description", req.Description)
	return err
}

// validateCreate は作成時の検証。nameは必須。
func (req projectRequest) validateCreate() error {
	if req.Name == nil {
		return model.NewValidationError("name is required")
	}
	return req.validateUpdate()
}

// validateUpdate は更新時の検証。指定されたフィールドのみ検証する。
func (req projectRequest) validateUpdate() error {
	if req.Name != nil {
		if err := validateLength("name", *req.Name, maxNameLength); err != nil {
			return err
		}
	}
	return nil
}

func (req projectRequest) patch() model.ProjectPatch {
	return model.ProjectPatch{Name: req.Name, Description: req.Description}
}

func (req *taskRequest) normalize(s security.TextSanitizerService) error {
	var err error
	if req.Title, err = plainText(s, "title", req.Title); err != nil {
		return err
	}
	req.Description, err = plainText(s, "description", req.Description)
	return err
}

// validateCreate は作成時の検証。titleは必須。
func (req taskRequest) validateCreate() (*time.Time, error) {
	if req.Title == nil {
		return nil, model.NewValidationError("title is required")
	}
	return req.validateUpdate()
}

// validateUpdate は指定されたフィールドを検証し、解析済みの期限を返す。
func (req taskRequest) validateUpdate() (*time.Time, error) {
	if req.Title != nil {
		if err := validateLength("title", *req.Title, maxTitleLength); err != nil {
			return nil, err
		}
	}
	if req.Description != nil && *req.Description == "" {
		return nil, model.NewValidationError("description must not be empty")
	}
	if req.FinishDate == nil {
		return nil, nil
	}
	finish, err := parseFinishDate(*req.FinishDate)
	if err != nil {
		return nil, err
	}
	return &finish, nil
}

func (req toggleRequest) validate() error {
	if req.IsCompleted == nil {
		return model.NewValidationError("isCompleted is required")
	}
	return nil
}

// parseFinishDate は YYYY-MM-DD（UTCの0時）またはRFC 3339形式の期限を解析する。
func parseFinishDate(value string) (time.Time, error) {
	if t, err := time.ParseInLocation(dateOnlyLayout, value, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, model.NewValidationError("finishDate must be a date in YYYY-MM-DD format")
}

func validateLength(field, value string, max int) error {
	n := utf8.RuneCountInString(value)
	if n == 0 {
		return model.NewValidationError(field + " is required")
	}
	if n > max {
		return model.NewValidationError(fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return nil
}

// plainText は入力を書き換えずに保存できるかを確認する。
// タグとして解釈される部分を含む入力は切り詰めずに拒否する。
func plainText(s security.TextSanitizerService, field string, v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	if !security.IsPlainText(s, *v) {
		return nil, model.NewValidationError(field + " must not contain HTML markup")
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed, nil
}

// isValidID はパスパラメータがUUID形式かを返す。
// 形式が不正なIDは存在しないリソースとして扱う。
func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
