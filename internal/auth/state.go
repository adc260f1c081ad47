package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StateCookie はOAuth stateのnonceを保持するCookie名。
const StateCookie = "cm_oauth_state"

// stateTTL はログイン開始からコールバックまでの許容時間。
const stateTTL = 10 * time.Minute

// ErrInvalidState はOAuth stateの検証に失敗したことを表す。
var ErrInvalidState = errors.New("auth: invalid oauth state")

// stateClaims はOAuth stateに埋め込む内容。
type stateClaims struct {
	jwt.RegisteredClaims
	Next  string `json:"next"`
	Nonce string `json:"nonce"`
}

// StateSigner はOAuth stateをHS256で署名・検証する。
// stateにはログイン後の戻り先とnonceを含め、nonceはCookieと突き合わせる。
type StateSigner struct {
	secret []byte
	now    func() time.Time
}

// NewStateSigner はStateSignerを生成する。
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret), now: time.Now}
}

// Issue は戻り先nextを埋め込んだ署名済みstateとnonceを生成する。
func (s *StateSigner) Issue(next string) (state, nonce string, err error) {
	nonce, err = generateNonce()
	if err != nil {
		return "", "", err
	}

	now := s.now()
	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
		Next:  SafeNext(next),
		Nonce: nonce,
	}
	state, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign oauth state: %w", err)
	}
	return state, nonce, nil
}

// Verify はstateの署名と有効期限、Cookieのnonceとの一致を検証し、戻り先を返す。
func (s *StateSigner) Verify(state, nonce string) (string, error) {
	if state == "" || nonce == "" {
		return "", ErrInvalidState
	}

	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if subtle.ConstantTimeCompare([]byte(claims.Nonce), []byte(nonce)) != 1 {
		return "", fmt.Errorf("%w: nonce mismatch", ErrInvalidState)
	}
	return SafeNext(claims.Next), nil
}

// SafeNext は戻り先がサイト内の絶対パスであればそのまま返し、そうでなければ"/"を返す。
func SafeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// generateNonce はランダムなnonceを生成する。
func generateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}
