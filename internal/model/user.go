// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// IDはIdPのsubクレームに対応し、作成後は不変。
// Emailは小文字に正規化して保存する（ユニーク制約）。
type User struct {
	ID          string
	Email       string
	Name        string
	Picture     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt time.Time
}

// Session はユーザーのログインセッションを表す。
// Tokenは暗号的に安全な乱数から生成される推測不可能な値。
// 有効期限の判定は保存層ではなくセッションガード側で行う。
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired はセッションが指定時刻時点で期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Project はユーザーが作成したコンテンツプロジェクトを表す。
type Project struct {
	ID          string
	UserID      string
	Title       string
	Description string
	CoverURL    string
	ContentURL  string
	CreatedAt   time.Time
}
