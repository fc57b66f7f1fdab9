// Package auth はメールアドレスとパスワードによる登録・ログインを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskboard/internal/metrics"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/repository"
	"github.com/hitoshi/taskboard/internal/token"
)

// 認証イベントの種別（メトリクスのeventラベル）
const (
	EventRegister = "register"
	EventLogin    = "login"
)

// dummyPassword は未登録メールアドレスでのログイン時に照合するダミーの平文。
const dummyPassword = "taskboard-dummy-password"

// PasswordHasher はパスワードのハッシュ化と照合のインターフェース。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenIssuer はセッショントークン発行のインターフェース。
type TokenIssuer interface {
	Issue(identity token.Identity) (string, error)
}

// RegisterInput はユーザー登録の入力値。検証済みの値を受け取る。
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// LoginInput はログインの入力値。
type LoginInput struct {
	Email    string
	Password string
}

// Result は登録・ログイン成功時の結果。Userにパスワードダイジェストは含まない。
type Result struct {
	User  model.User
	Token string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	metrics  metrics.MetricsCollector
	now      func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

// NewService はServiceを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewService(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		metrics:  collector,
		now:      time.Now,
	}
}

// NormalizeEmail はメールアドレスを保存・検索用の形式に揃える。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register はユーザーを登録し、セッショントークンを発行する。
// メールアドレスが登録済みの場合はDuplicateEmailを返す。
// 事前確認をすり抜けた同時登録はストアの一意制約で検出する。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Result, error) {
	result, err := s.register(ctx, input)
	s.record(EventRegister, err)
	return result, err
}

func (s *Service) register(ctx context.Context, input RegisterInput) (*Result, error) {
	email := NormalizeEmail(input.Email)

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateEmailError()
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	cred := &model.UserCredential{
		User: model.User{
			ID:        uuid.New().String(),
			Email:     email,
			Name:      input.Name,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: digest,
	}

	// トークンは挿入前に発行する。発行に失敗してもユーザー行を残さない。
	tok, err := s.issue(cred.User)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, cred); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewDuplicateEmailError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("ユーザーを登録しました", slog.String("user_id", cred.ID))

	return &Result{User: cred.User, Token: tok}, nil
}

// Login はメールアドレスとパスワードを照合し、セッショントークンを発行する。
// メールアドレス不明とパスワード不一致は同一のInvalidCredentialsを返す。
func (s *Service) Login(ctx context.Context, input LoginInput) (*Result, error) {
	result, err := s.login(ctx, input)
	s.record(EventLogin, err)
	return result, err
}

func (s *Service) login(ctx context.Context, input LoginInput) (*Result, error) {
	cred, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(input.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if cred == nil {
		// 未登録でも照合処理を1回行い、応答時間の差を小さくする
		s.hasher.Verify(input.Password, s.dummy())
		return nil, model.NewInvalidCredentialsError()
	}
	if !s.hasher.Verify(input.Password, cred.PasswordHash) {
		return nil, model.NewInvalidCredentialsError()
	}

	tok, err := s.issue(cred.User)
	if err != nil {
		return nil, err
	}

	slog.Info("ユーザーがログインしました", slog.String("user_id", cred.ID))

	return &Result{User: cred.User, Token: tok}, nil
}

// CurrentUser は認証済みユーザーの情報を返す。
// トークン発行後にユーザーが存在しなくなった場合はUserNotFoundを返す。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

func (s *Service) issue(user model.User) (string, error) {
	tok, err := s.tokens.Issue(token.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return tok, nil
}

// dummy は未登録ユーザー用の照合対象ダイジェストを返す。初回のみ生成する。
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			slog.Warn("ダミーダイジェストの生成に失敗しました", "error", err)
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

func (s *Service) record(event string, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case model.KindOf(err) != "":
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeError
	}
	s.metrics.RecordAuthEvent(event, outcome)
}
