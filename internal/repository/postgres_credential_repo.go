package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/creatorflow/internal/model"
)

// PostgresSocialCredentialRepo はPostgreSQLを使用したソーシャル認可情報リポジトリ。
type PostgresSocialCredentialRepo struct {
	db *sql.DB
}

// NewPostgresSocialCredentialRepo はPostgresSocialCredentialRepoを生成する。
func NewPostgresSocialCredentialRepo(db *sql.DB) *PostgresSocialCredentialRepo {
	return &PostgresSocialCredentialRepo{db: db}
}

// Upsert は(user_id, platform)をキーに認可情報を冪等にUPSERTする。
// 既存レコードは複製ではなく上書きされる。created_atは初回作成時の値を維持する。
func (r *PostgresSocialCredentialRepo) Upsert(ctx context.Context, cred *model.SocialCredential) (*model.SocialCredential, error) {
	result := &model.SocialCredential{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO social_credentials (user_id, platform, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (user_id, platform) DO UPDATE SET
		   data = EXCLUDED.data,
		   updated_at = EXCLUDED.updated_at
		 RETURNING user_id, platform, data, created_at, updated_at`,
		cred.UserID, cred.Platform, []byte(cred.Data), cred.UpdatedAt,
	).Scan(&result.UserID, &result.Platform, (*[]byte)(&result.Data),
		&result.CreatedAt, &result.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert social credential: %w", err)
	}

	return result, nil
}

// FindByUserAndPlatform はユーザーとプラットフォームで認可情報を検索する。
// 見つからない場合はnilを返す。
func (r *PostgresSocialCredentialRepo) FindByUserAndPlatform(ctx context.Context, userID string, platform model.Platform) (*model.SocialCredential, error) {
	cred := &model.SocialCredential{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, platform, data, created_at, updated_at
		 FROM social_credentials
		 WHERE user_id = $1 AND platform = $2`,
		userID, platform,
	).Scan(&cred.UserID, &cred.Platform, (*[]byte)(&cred.Data),
		&cred.CreatedAt, &cred.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find social credential: %w", err)
	}

	return cred, nil
}

// ListByUserID はユーザーの全認可情報をプラットフォーム名順で返す。
func (r *PostgresSocialCredentialRepo) ListByUserID(ctx context.Context, userID string) ([]*model.SocialCredential, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, platform, data, created_at, updated_at
		 FROM social_credentials
		 WHERE user_id = $1
		 ORDER BY platform`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list social credentials: %w", err)
	}
	defer rows.Close()

	var creds []*model.SocialCredential
	for rows.Next() {
		cred := &model.SocialCredential{}
		if err := rows.Scan(&cred.UserID, &cred.Platform, (*[]byte)(&cred.Data),
			&cred.CreatedAt, &cred.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan social credential: %w", err)
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate social credentials: %w", err)
	}

	return creds, nil
}

// compile-time interface check
var _ SocialCredentialRepository = (*PostgresSocialCredentialRepo)(nil)
