package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// LoginNonce はログインリダイレクトからコールバックまでの間だけ
// ブラウザのクッキーに保持される一時状態。サーバー側には永続化されない。
// 単回使用: コールバックで読み取った時点でクッキーは失効させる。
type LoginNonce struct {
	State        string `json:"state"`
	CodeVerifier string `json:"code_verifier"`
	Nonce        string `json:"nonce"`
	ReturnTo     string `json:"return_to,omitempty"`
}

// NonceCodec はLoginNonceとクッキー値の相互変換を行う。
// ペイロードはbase64url化したJSONで、HMAC-SHA256による完全性タグを付与する。
// 値に秘匿すべき情報は含まれないため暗号化はしない。
type NonceCodec struct {
	secret []byte
}

// NewNonceCodec はNonceCodecを生成する。secretはSESSION_SECRETを想定。
func NewNonceCodec(secret string) *NonceCodec {
	return &NonceCodec{secret: []byte(secret)}
}

// Serialize はLoginNonceを "payload.mac" 形式のクッキー値に変換する。
func (c *NonceCodec) Serialize(n *LoginNonce) (string, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + c.sign(payload), nil
}

// Parse はクッキー値をLoginNonceに復元する。
// 形式不正・タグ不一致・JSON破損のいずれでもnilを返し、エラーは投げない。
// 呼び出し側はnilを「ログイン試行状態なし」として400系で扱う。
func (c *NonceCodec) Parse(value string) *LoginNonce {
	if value == "" {
		return nil
	}

	payload, mac, ok := strings.Cut(value, ".")
	if !ok {
		return nil
	}
	if !hmac.Equal([]byte(c.sign(payload)), []byte(mac)) {
		return nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}

	n := &LoginNonce{}
	if err := json.Unmarshal(raw, n); err != nil {
		return nil
	}
	if n.State == "" || n.CodeVerifier == "" || n.Nonce == "" {
		return nil
	}
	return n
}

// sign はpayloadのHMAC-SHA256タグをbase64urlで返す。
func (c *NonceCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
