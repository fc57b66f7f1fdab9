package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/taskboard/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// ErrorEnvelope はエラーレスポンスの外側のオブジェクト。
type ErrorEnvelope struct {
	Error ErrorResponseBody `json:"error"`
}

// StatusForKind はエラー種別に対応するHTTPステータスを返す。
// 未知の種別は500とする。
func StatusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation, model.KindDuplicateEmail, model.KindImmutableState:
		return http.StatusBadRequest
	case model.KindInvalidCredentials, model.KindInvalidToken, model.KindMissingToken:
		return http.StatusUnauthorized
	case model.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorEnvelope{
		Error: ErrorResponseBody{
			Code:     apiErr.Code,
			Message:  apiErr.Message,
			Category: apiErr.Category,
			Action:   apiErr.Action,
		},
	})
}

// WriteError はエラーチェーンにAPIErrorがあればその種別に応じたステータスで書き込む。
// それ以外のエラーはログに記録し、詳細を伏せた500を返す。
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Kind != "" {
		WriteErrorResponse(w, StatusForKind(apiErr.Kind), apiErr)
		return
	}

	slog.Error("リクエスト処理中に内部エラーが発生",
		slog.String("error", err.Error()),
	)
	WriteInternalServerError(w)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     model.ErrCodeInternal,
		Message:  "Internal server error",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// WriteRouteNotFound は未定義ルートへのリクエストに404を返す。
func WriteRouteNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
		Code:     model.ErrCodeRouteNotFound,
		Message:  "Route " + r.Method + " " + r.URL.Path + " not found",
		Category: "system",
		Action:   "リクエストのパスを確認してください。",
	})
}

// WriteMethodNotAllowed は許可されていないメソッドに405を返す。
func WriteMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, http.StatusMethodNotAllowed, &model.APIError{
		Code:     model.ErrCodeMethodNotAllowed,
		Message:  "Method " + r.Method + " not allowed",
		Category: "system",
		Action:   "リクエストのメソッドを確認してください。",
	})
}
