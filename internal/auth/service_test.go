package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/taskboard/internal/credential"
	"github.com/hitoshi/taskboard/internal/database"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/repository"
	"github.com/hitoshi/taskboard/internal/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.UserCredential, error)
	createFn      func(ctx context.Context, user *model.UserCredential) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.UserCredential, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.UserCredential) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

type countingHasher struct {
	PasswordHasher
	verifyCalls int
}

func (h *countingHasher) Verify(plaintext, digest string) bool {
	h.verifyCalls++
	return h.PasswordHasher.Verify(plaintext, digest)
}

type recordingCollector struct {
	events map[string]int
}

func (c *recordingCollector) RecordAuthEvent(event, outcome string) {
	if c.events == nil {
		c.events = make(map[string]int)
	}
	c.events[event+"/"+outcome]++
}

func (c *recordingCollector) RecordTaskMutation(string, string) {}
func (c *recordingCollector) RecordHTTPStatus(int)              {}
func (c *recordingCollector) RecordHTTPLatency(time.Duration)   {}

func newTokenService(t *testing.T) *token.Service {
	t.Helper()
	svc, err := token.NewService(token.Config{Secret: []byte(testSecret)})
	require.NoError(t, err)
	return svc
}

// newSQLiteService はインメモリSQLiteを使ったServiceを生成する。
func newSQLiteService(t *testing.T) (*Service, *token.Service) {
	t.Helper()

	db, err := database.Open("sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	tokens := newTokenService(t)
	svc := NewService(repository.NewSQLUserRepo(db), credential.NewHasher(bcrypt.MinCost), tokens, nil)
	return svc, tokens
}

// TestRegisterThenLogin は登録・誤パスワード・正パスワードの一連の流れを検証する。
func TestRegisterThenLogin(t *testing.T) {
	svc, tokens := newSQLiteService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1", Name: "A"})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.User.ID)
	assert.Equal(t, "a@x.com", reg.User.Email)
	assert.Equal(t, "A", reg.User.Name)
	assert.NotEmpty(t, reg.Token)

	identity, err := tokens.Verify(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, token.Identity{UserID: reg.User.ID, Email: "a@x.com"}, identity)

	_, err = svc.Login(ctx, LoginInput{Email: "a@x.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindInvalidCredentials))

	login, err := svc.Login(ctx, LoginInput{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)
	assert.NotEqual(t, reg.Token, login.Token)

	identity, err = tokens.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, identity.UserID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "dup@example.com", Password: "secret1", Name: "First"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "dup@example.com", Password: "another", Name: "Second"})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindDuplicateEmail))

	// 大文字小文字と前後の空白の違いも同一のメールアドレスとして扱う
	_, err = svc.Register(ctx, RegisterInput{Email: "  DUP@Example.com ", Password: "another", Name: "Third"})
	assert.True(t, model.IsKind(err, model.KindDuplicateEmail))

	login, err := svc.Login(ctx, LoginInput{Email: "dup@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "First", login.User.Name)
}

// TestLogin_UnknownEmailAndWrongPasswordAreIdentical は列挙を防ぐため
// 2つの失敗が同じ種別とメッセージになることを検証する。
func TestLogin_UnknownEmailAndWrongPasswordAreIdentical(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "known@example.com", Password: "secret1", Name: "K"})
	require.NoError(t, err)

	_, errUnknown := svc.Login(ctx, LoginInput{Email: "unknown@example.com", Password: "secret1"})
	_, errWrong := svc.Login(ctx, LoginInput{Email: "known@example.com", Password: "nope"})

	var apiUnknown, apiWrong *model.APIError
	require.True(t, errors.As(errUnknown, &apiUnknown))
	require.True(t, errors.As(errWrong, &apiWrong))
	assert.Equal(t, apiWrong, apiUnknown)
}

func TestLogin_UnknownEmailStillVerifies(t *testing.T) {
	hasher := &countingHasher{PasswordHasher: credential.NewHasher(bcrypt.MinCost)}
	svc := NewService(&mockUserRepo{}, hasher, newTokenService(t), nil)

	_, err := svc.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "pw"})
	assert.True(t, model.IsKind(err, model.KindInvalidCredentials))
	assert.Equal(t, 1, hasher.verifyCalls)
}

// TestRegister_StoreUniqueViolation は事前確認をすり抜けた重複を
// ストアの一意制約違反からDuplicateEmailとして返すことを検証する。
func TestRegister_StoreUniqueViolation(t *testing.T) {
	rec := &recordingCollector{}
	svc := NewService(&mockUserRepo{
		createFn: func(ctx context.Context, user *model.UserCredential) error {
			return repository.ErrDuplicateEmail
		},
	}, credential.NewHasher(bcrypt.MinCost), newTokenService(t), rec)

	result, err := svc.Register(context.Background(), RegisterInput{Email: "race@example.com", Password: "secret1", Name: "R"})
	assert.Nil(t, result)
	assert.True(t, model.IsKind(err, model.KindDuplicateEmail))
	assert.Equal(t, 1, rec.events["register/rejected"])
}

func TestRegister_StoresDigestNotPlaintext(t *testing.T) {
	var stored *model.UserCredential
	hasher := credential.NewHasher(bcrypt.MinCost)
	svc := NewService(&mockUserRepo{
		createFn: func(ctx context.Context, user *model.UserCredential) error {
			stored = user
			return nil
		},
	}, hasher, newTokenService(t), nil)
	fixed := time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	_, err := svc.Register(context.Background(), RegisterInput{Email: "A@Example.com", Password: "secret1", Name: "A"})
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, "a@example.com", stored.Email)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.True(t, hasher.Verify("secret1", stored.PasswordHash))
	assert.True(t, stored.CreatedAt.Equal(fixed))
}

func TestRegister_StoreFailureIsInternal(t *testing.T) {
	errStore := errors.New("disk full")
	rec := &recordingCollector{}
	svc := NewService(&mockUserRepo{
		createFn: func(ctx context.Context, user *model.UserCredential) error {
			return errStore
		},
	}, credential.NewHasher(bcrypt.MinCost), newTokenService(t), rec)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "secret1", Name: "A"})
	require.ErrorIs(t, err, errStore)
	assert.Equal(t, model.ErrorKind(""), model.KindOf(err))
	assert.Equal(t, 1, rec.events["register/error"])
}

func TestLogin_RecordsOutcomes(t *testing.T) {
	rec := &recordingCollector{}
	hasher := credential.NewHasher(bcrypt.MinCost)
	digest, err := hasher.Hash("secret1")
	require.NoError(t, err)

	svc := NewService(&mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.UserCredential, error) {
			return &model.UserCredential{
				User:         model.User{ID: "u1", Email: email, Name: "U"},
				PasswordHash: digest,
			}, nil
		},
	}, hasher, newTokenService(t), rec)
	ctx := context.Background()

	_, err = svc.Login(ctx, LoginInput{Email: "u@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginInput{Email: "u@example.com", Password: "bad"})
	require.Error(t, err)

	assert.Equal(t, 1, rec.events["login/success"])
	assert.Equal(t, 1, rec.events["login/rejected"])
}

func TestCurrentUser(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Email: "me@example.com", Password: "secret1", Name: "Me"})
	require.NoError(t, err)

	user, err := svc.CurrentUser(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", user.Email)

	_, err = svc.CurrentUser(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, model.IsKind(err, model.KindNotFound))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com\t"))
}

type failingIssuer struct{}

func (failingIssuer) Issue(token.Identity) (string, error) {
	return "", errors.New("signing failed")
}

// TestRegister_TokenFailureLeavesNoUser はトークン発行に失敗した場合に
// ユーザー行を作成しないことを検証する。再試行が重複エラーにならない。
func TestRegister_TokenFailureLeavesNoUser(t *testing.T) {
	created := 0
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.UserCredential) error {
			created++
			return nil
		},
	}
	svc := NewService(repo, credential.NewHasher(bcrypt.MinCost), failingIssuer{}, nil)

	res, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "secret1", Name: "A"})
	assert.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 0, created)
	assert.Empty(t, model.KindOf(err))
}
