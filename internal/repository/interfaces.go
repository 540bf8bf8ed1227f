// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/creatorflow/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// UpsertOnLogin はIDトークンのsubをキーとしてユーザーを冪等にUPSERTする。
	// 既存ユーザーの場合はname/picture/last_login_atのみを更新する。
	// 単一のアトミックなUPSERT文で実行されるため、同一subの同時初回ログインが
	// 競合しても作成されるレコードは1件になる。
	UpsertOnLogin(ctx context.Context, user *model.User) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は小文字正規化済みemailでユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、social_credentials、projectsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByToken は指定トークンのセッションを取得する。見つからない場合はnilを返す。
	// 期限切れの行もそのまま返す。有効期限の判定はセッションガードの責務。
	FindByToken(ctx context.Context, token string) (*model.Session, error)

	// DeleteByToken は指定トークンのセッションを削除する。
	// 存在しないトークンの削除はエラーにならない（冪等）。
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error

	// DeleteExpired は指定時刻より前に期限切れとなったセッションを削除し、
	// 削除件数を返す。ワーカーのreaperから定期的に呼ばれる。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SocialCredentialRepository はソーシャル認可情報の永続化インターフェース。
type SocialCredentialRepository interface {
	// Upsert は(user_id, platform)をキーに認可情報を冪等にUPSERTする。
	// 既存レコードは複製ではなく上書きされる。
	Upsert(ctx context.Context, cred *model.SocialCredential) (*model.SocialCredential, error)

	// FindByUserAndPlatform はユーザーとプラットフォームで認可情報を検索する。
	// 見つからない場合はnilを返す。
	FindByUserAndPlatform(ctx context.Context, userID string, platform model.Platform) (*model.SocialCredential, error)

	// ListByUserID はユーザーの全認可情報をプラットフォーム名順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.SocialCredential, error)
}

// ProjectRepository はプロジェクトデータの永続化インターフェース。
type ProjectRepository interface {
	// Create はプロジェクトを作成する。
	Create(ctx context.Context, project *model.Project) error

	// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Project, error)

	// ListByUserID はユーザーのプロジェクト一覧を作成日時降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Project, error)

	// DeleteByID は指定IDのプロジェクトを削除する。
	DeleteByID(ctx context.Context, id string) error
}
