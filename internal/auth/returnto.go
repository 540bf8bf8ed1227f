package auth

import "strings"

// SanitizeReturnTo はログイン後のリダイレクト先としてreturnToを検証し、
// 同一オリジンの相対パスのみを許可する。オープンリダイレクト対策として
// 絶対URL・スキーム相対URL（"//"）・バックスラッシュを含む値は拒否し、
// fallbackを返す。
func SanitizeReturnTo(returnTo, fallback string) string {
	if returnTo == "" {
		return fallback
	}
	if !strings.HasPrefix(returnTo, "/") {
		return fallback
	}
	// "//evil.example" や "/\evil.example" はブラウザにより外部遷移と解釈され得る
	if strings.HasPrefix(returnTo, "//") || strings.Contains(returnTo, "\\") {
		return fallback
	}
	if strings.ContainsAny(returnTo, "\r\n") {
		return fallback
	}
	return returnTo
}
