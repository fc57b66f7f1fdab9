package model

import "time"

// User はサービス利用ユーザーを表す。
// パスワードダイジェストは含まない。外部に返してよい形。
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserCredential はユーザーとパスワードダイジェストの組を表す。
// 認証処理の内部でのみ扱い、レスポンスには載せない。
type UserCredential struct {
	User
	PasswordHash string
}
