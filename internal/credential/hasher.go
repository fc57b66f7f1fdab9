// Package credential はパスワードのハッシュ化と照合を提供する。
package credential

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher はbcryptでパスワードダイジェストを生成・照合する。
// 呼び出しごとにソルトが変わるため、同じ平文でもダイジェストは一致しない。
// 照合には必ずVerifyを使うこと。
type Hasher struct {
	cost int
}

// NewHasher はHasherを生成する。
// costがbcryptの許容範囲外の場合はbcrypt.DefaultCostを使う。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash は平文パスワードからダイジェストを生成する。
// 72バイトを超えるパスワードなど、bcryptが受け付けない入力はエラーを返す。
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify は平文パスワードとダイジェストが一致するかを返す。
// ダイジェストが壊れている場合もエラーにせずfalseを返す。
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
