package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Platform はソーシャル連携先プラットフォームを表す。
type Platform string

// サポートするプラットフォーム。
const (
	PlatformCognito   Platform = "cognito"
	PlatformGoogle    Platform = "google"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformX         Platform = "x"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
)

// ParsePlatform は入力文字列をPlatformに正規化する。
// 大文字小文字を区別せず、歴史的経緯により"twitter"は"x"として扱う。
// サポート外の値の場合はfalseを返す。
func ParsePlatform(s string) (Platform, bool) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case "twitter", PlatformX:
		return PlatformX, true
	case PlatformCognito:
		return PlatformCognito, true
	case PlatformGoogle:
		return PlatformGoogle, true
	case PlatformLinkedIn:
		return PlatformLinkedIn, true
	case PlatformInstagram:
		return PlatformInstagram, true
	case PlatformYouTube:
		return PlatformYouTube, true
	case PlatformTikTok:
		return PlatformTikTok, true
	default:
		return "", false
	}
}

// SocialCredential はユーザーとプラットフォームの認可情報の紐付けを表す。
// (UserID, Platform) ごとに高々1件。Dataはプラットフォームごとの
// クローズドな型（XCredentials等）に保存時に検証済みのJSON。
type SocialCredential struct {
	UserID    string
	Platform  Platform
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// XCredentials はX(旧Twitter)のOAuth 1.0aユーザーコンテキスト認可情報。
type XCredentials struct {
	AppKey       string `json:"app_key"`
	AppSecret    string `json:"app_secret"`
	AccessToken  string `json:"access_token"`
	AccessSecret string `json:"access_secret"`
}

// LinkedInCredentials はLinkedInの投稿用認可情報。
// MemberURNは "urn:li:person:XXXX" 形式。
type LinkedInCredentials struct {
	AccessToken string `json:"access_token"`
	MemberURN   string `json:"member_urn"`
}

// CognitoCredentials はIdPログイン時に記録するフェデレーション情報。
type CognitoCredentials struct {
	Sub            string `json:"sub"`
	Email          string `json:"email"`
	Name           string `json:"name,omitempty"`
	Picture        string `json:"picture,omitempty"`
	ProviderName   string `json:"provider_name,omitempty"`
	ProviderUserID string `json:"provider_user_id,omitempty"`
}

// GoogleCredentials はGoogleフェデレーションログインの連携情報。
type GoogleCredentials struct {
	Sub          string `json:"sub"`
	Email        string `json:"email"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// InstagramCredentials はInstagram Graph APIの認可情報。
type InstagramCredentials struct {
	AccessToken       string `json:"access_token"`
	BusinessAccountID string `json:"business_account_id"`
}

// YouTubeCredentials はYouTube Data APIの認可情報。
type YouTubeCredentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ChannelID    string `json:"channel_id"`
}

// TikTokCredentials はTikTokのOpen APIの認可情報。
type TikTokCredentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	OpenID       string `json:"open_id"`
}

// ValidateCredentialData はプラットフォームに対応するクローズドな型へ
// 厳格にデコードできるかを保存時に検証する。未知のフィールドや
// 必須フィールドの欠落はエラーを返す（公開時ではなく保存時に形状エラーを検出する）。
func ValidateCredentialData(p Platform, raw json.RawMessage) error {
	switch p {
	case PlatformX:
		var c XCredentials
		if err := strictUnmarshal(raw, &c); err != nil {
			return err
		}
		if c.AppKey == "" || c.AppSecret == "" || c.AccessToken == "" || c.AccessSecret == "" {
			return fmt.Errorf("x credentials require app_key, app_secret, access_token, access_secret")
		}
	case PlatformLinkedIn:
		var c LinkedInCredentials
		if err := strictUnmarshal(raw, &c); err != nil {
			return err
		}
		if c.AccessToken == "" || c.MemberURN == "" {
			return fmt.Errorf("linkedin credentials require access_token and member_urn")
		}
	case PlatformCognito:
		var c CognitoCredentials
		if err := strictUnmarshal(raw, &c); err != nil {
			return err
		}
		if c.Sub == "" {
			return fmt.Errorf("cognito credentials require sub")
		}
	case PlatformGoogle:
		var c GoogleCredentials
		if err := strictUnmarshal(raw, &c); err != nil {
			return err
		}
		if c.Sub == "" {
			return fmt.Errorf("google credentials require sub")
		}
	case PlatformInstagram:
		var c InstagramCredentials
		if err := strictUnmarshal(raw, &c); err != nil {
			return err
		}
		if c.AccessToken == "" || c.BusinessAccountID == "" {
			return fmt.Errorf("instagram credentials require access_token and business_account_id")
		}
	case PlatformYouTube:
		var c YouTubeCredentials
		if err := strictUnmarshal(raw, &c); err != nil {
			return err
		}
		if c.AccessToken == "" || c.ChannelID == "" {
			return fmt.Errorf("youtube credentials require access_token and channel_id")
		}
	case PlatformTikTok:
		var c TikTokCredentials
		if err := strictUnmarshal(raw, &c); err != nil {
			return err
		}
		if c.AccessToken == "" || c.OpenID == "" {
			return fmt.Errorf("tiktok credentials require access_token and open_id")
		}
	default:
		return fmt.Errorf("unsupported platform: %s", p)
	}
	return nil
}

// strictUnmarshal は未知のフィールドを拒否するJSONデコードを行う。
func strictUnmarshal(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid credential data: %w", err)
	}
	return nil
}
