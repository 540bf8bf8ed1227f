// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, publish, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidLoginState     = "INVALID_LOGIN_STATE"
	ErrCodeMissingAuthCode       = "MISSING_AUTHORIZATION_CODE"
	ErrCodeStateMismatch         = "STATE_MISMATCH"
	ErrCodeIdentityProvider      = "IDENTITY_PROVIDER_ERROR"
	ErrCodeClaims                = "CLAIMS_ERROR"
	ErrCodeUpstreamTimeout       = "UPSTREAM_TIMEOUT"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeInvalidPlatform       = "INVALID_PLATFORM"
	ErrCodeInvalidCredentialData = "INVALID_CREDENTIAL_DATA"
	ErrCodeProjectNotFound       = "PROJECT_NOT_FOUND"
	ErrCodePublishFailed         = "PUBLISH_FAILED"
	ErrCodeValidation            = "VALIDATION_ERROR"
)

// NewInvalidLoginStateError はログイン試行状態（nonceクッキー）が
// 欠落または破損している場合のエラーを生成する。
func NewInvalidLoginStateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLoginState,
		Message:  "Login state is missing or invalid.",
		Category: "auth",
		Action:   "Start the login flow again.",
	}
}

// NewMissingAuthCodeError は認可コードまたはstateが欠落している場合のエラーを生成する。
func NewMissingAuthCodeError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingAuthCode,
		Message:  "Missing authorization code or state.",
		Category: "auth",
		Action:   "Start the login flow again.",
	}
}

// NewStateMismatchError はstate検証失敗（CSRFの可能性）のエラーを生成する。
func NewStateMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeStateMismatch,
		Message:  "State parameter does not match the login attempt.",
		Category: "auth",
		Action:   "Start the login flow again.",
	}
}

// NewIdentityProviderError はIdPのディスカバリまたはトークン交換失敗のエラーを生成する。
func NewIdentityProviderError() *APIError {
	return &APIError{
		Code:     ErrCodeIdentityProvider,
		Message:  "The identity provider rejected the request.",
		Category: "auth",
		Action:   "Start the login flow again. The authorization code cannot be reused.",
	}
}

// NewClaimsError はIDトークンに必須クレームが欠落している場合のエラーを生成する。
func NewClaimsError(claim string) *APIError {
	return &APIError{
		Code:     ErrCodeClaims,
		Message:  fmt.Sprintf("Required claim is missing from the ID token: %s", claim),
		Category: "auth",
		Action:   "Contact the administrator of your identity provider.",
	}
}

// NewUpstreamTimeoutError は外部サービス呼び出しのタイムアウトエラーを生成する。
func NewUpstreamTimeoutError(upstream string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamTimeout,
		Message:  fmt.Sprintf("Request to %s timed out.", upstream),
		Category: "system",
		Action:   "Please wait and try again.",
	}
}

// NewUnauthorizedError は認証失敗の統一エラーを生成する。
// 期限切れ・欠落・不正トークンの区別は呼び出し側に漏らさない。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Unauthorized",
		Category: "auth",
		Action:   "Log in and try again.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found.",
		Category: "auth",
		Action:   "Log in again.",
	}
}

// NewInvalidPlatformError はサポート外のプラットフォーム指定エラーを生成する。
func NewInvalidPlatformError(platform string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPlatform,
		Message:  fmt.Sprintf("Unsupported platform: %s", platform),
		Category: "validation",
		Action:   "Use one of: cognito, google, linkedin, x, instagram, youtube, tiktok.",
	}
}

// NewInvalidCredentialDataError は認可情報の形状検証失敗エラーを生成する。
func NewInvalidCredentialDataError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentialData,
		Message:  fmt.Sprintf("Credential data is invalid: %s", reason),
		Category: "validation",
		Action:   "Check the required fields for the platform and try again.",
	}
}

// NewProjectNotFoundError はプロジェクトが見つからない場合のエラーを生成する。
func NewProjectNotFoundError(projectID string) *APIError {
	return &APIError{
		Code:     ErrCodeProjectNotFound,
		Message:  fmt.Sprintf("Project not found: %s", projectID),
		Category: "validation",
		Action:   "Check the project ID.",
	}
}

// NewPublishFailedError はプラットフォームへの投稿失敗エラーを生成する。
func NewPublishFailedError(platform Platform, reason string) *APIError {
	return &APIError{
		Code:     ErrCodePublishFailed,
		Message:  fmt.Sprintf("Publishing to %s failed: %s", platform, reason),
		Category: "publish",
		Action:   "Check the stored credentials for the platform and try again.",
	}
}

// NewValidationError はリクエストボディの検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  reason,
		Category: "validation",
		Action:   "Fix the request body and try again.",
	}
}
