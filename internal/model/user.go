// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限を表す。
type Role string

const (
	// RoleUser は一般利用者。
	RoleUser Role = "user"
	// RoleAdmin は管理者。車両・ユーザー・予約の管理画面を利用できる。
	RoleAdmin Role = "admin"
)

// User はサービス利用ユーザーを表す。
type User struct {
	ID           string
	Email        string
	FullName     string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin は管理者かどうかを返す。
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Session はユーザーのログインセッションを表す。
// UserNameとRoleは検索時にusersテーブルから結合して埋める。
type Session struct {
	ID        string
	UserID    string
	UserName  string
	Role      Role
	ExpiresAt time.Time
	CreatedAt time.Time
}
