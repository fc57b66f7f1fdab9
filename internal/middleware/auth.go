// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/token"
)

const authorizationHeader = "Authorization"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに検証済みidentityを格納するためのキー。
var identityContextKey = contextKey("identity")

// TokenVerifier はトークン検証に必要なインターフェース。
// token.Serviceの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) (token.Identity, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証するミドルウェアを返す。
// 検証済みidentityをリクエストコンテキストに注入する。
// ヘッダーが無い場合はMISSING_TOKEN、検証に失敗した場合はINVALID_TOKENで401を返す。
func NewAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. ヘッダーからトークンを取り出す
			raw, err := token.ExtractFromCarrier(r.Header.Get(authorizationHeader))
			if err != nil {
				WriteError(w, model.NewMissingTokenError())
				return
			}

			// 2. 署名と有効期限を検証
			identity, err := verifier.Verify(raw)
			if err != nil {
				if !errors.Is(err, token.ErrInvalidToken) {
					slog.Warn("トークン検証で想定外のエラー",
						slog.String("error", err.Error()),
					)
				}
				WriteError(w, model.NewInvalidTokenError())
				return
			}

			// 3. 検証済みidentityをコンテキストに注入
			annotateUserID(r.Context(), identity.UserID)
			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから検証済みidentityを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (token.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(token.Identity)
	if !ok || identity.UserID == "" {
		return token.Identity{}, false
	}
	return identity, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return "", model.NewMissingTokenError()
	}
	return identity.UserID, nil
}

// ContextWithIdentity はコンテキストにidentityを注入する。
func ContextWithIdentity(ctx context.Context, identity token.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// ContextWithUserID はコンテキストにユーザーIDだけを持つidentityを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return ContextWithIdentity(ctx, token.Identity{UserID: userID})
}
