// Package token はステートレスな署名付きセッショントークン（JWT）の発行と検証を提供する。
// サーバー側に失効リストは持たない。ログアウトはクライアント側でトークンを破棄するだけ。
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL はトークンの既定の有効期間。
const DefaultTTL = 7 * 24 * time.Hour

const bearerPrefix = "Bearer "

var (
	// ErrInvalidToken は署名不正・形式不正・期限切れなど、検証に失敗したことを表す。
	// 失敗理由は区別しない。
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingToken はAuthorizationヘッダーが無いか形式が不正であることを表す。
	ErrMissingToken = errors.New("no token provided")
)

// Identity はトークンに埋め込むユーザー識別情報。
type Identity struct {
	UserID string
	Email  string
}

// claims はJWTのペイロード。
type claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Config はトークンサービスの設定。
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	// Now は現在時刻を返す。nilの場合はtime.Now。
	Now func() time.Time
}

// Service はHS256署名のトークンを発行・検証する。
type Service struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewService はServiceを生成する。
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		secret: cfg.Secret,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    cfg.Now,
	}, nil
}

// Issue はidentityを埋め込んだ署名付きトークンを発行する。
// 有効期限は発行時刻からTTL後。jtiを毎回生成するため、同一秒内の発行でもトークンは異なる。
func (s *Service) Issue(identity Identity) (string, error) {
	if identity.UserID == "" {
		return "", fmt.Errorf("user ID is required to issue a token")
	}

	now := s.now()
	c := claims{
		UserID: identity.UserID,
		Email:  identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、埋め込まれたidentityを返す。
// どの理由で失敗してもErrInvalidTokenを返す。
func (s *Service) Verify(tokenString string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if c.UserID == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: c.UserID, Email: c.Email}, nil
}

// ExtractFromCarrier は "Bearer <token>" 形式の値からトークン文字列を取り出す。
// 値が空、プレフィックスが無い、トークン部分が空のいずれかの場合はErrMissingTokenを返す。
func ExtractFromCarrier(value string) (string, error) {
	if !strings.HasPrefix(value, bearerPrefix) {
		return "", ErrMissingToken
	}
	raw := strings.TrimSpace(value[len(bearerPrefix):])
	if raw == "" {
		return "", ErrMissingToken
	}
	return raw, nil
}
