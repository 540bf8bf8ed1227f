package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// sessionTokenBytes はセッショントークンのエントロピー（384ビット）。
const sessionTokenBytes = 48

// randomURLToken は暗号的に安全な乱数からURLセーフな文字列を生成する。
func randomURLToken(numBytes int) (string, error) {
	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// generateSessionToken は推測不可能なセッショントークンを生成する。
// 衝突確率は実用上無視できるため、一意性の明示的な確認は行わない。
func generateSessionToken() (string, error) {
	return randomURLToken(sessionTokenBytes)
}
