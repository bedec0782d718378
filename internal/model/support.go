package model

import "time"

// MessageSender はサポートメッセージの送信者種別。
type MessageSender string

const (
	// SenderUser は利用者からのメッセージ。
	SenderUser MessageSender = "user"
	// SenderSupport はサポート（自動応答・管理者返信）からのメッセージ。
	SenderSupport MessageSender = "support"
)

// SupportMessage は利用者ごとのサポートスレッドに属するメッセージ。
type SupportMessage struct {
	ID        string
	UserID    string
	Sender    MessageSender
	Body      string
	CreatedAt time.Time
}

// SupportThread は管理画面のスレッド一覧の1行。
type SupportThread struct {
	UserID        string
	UserName      string
	UserEmail     string
	LastMessage   string
	LastSender    MessageSender
	LastMessageAt time.Time
	MessageCount  int
}
