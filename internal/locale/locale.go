// Package locale はサポート対象ロケールの判定とリクエストからのロケール検出を提供する。
// サポート集合とデフォルトは起動時に1回だけ構築し、以降は変更しない。
package locale

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	// CookieName はロケール設定を保持するCookie名。
	CookieName = "CARMART_LOCALE"
	// CookieMaxAge はロケールCookieの有効期間（約1年）。
	CookieMaxAge = 365 * 24 * time.Hour
)

// Resolver はサポート対象ロケールの集合とデフォルトロケールを保持する。
type Resolver struct {
	supported []string
	def       string
	matcher   language.Matcher
}

// NewResolver はResolverを生成する。
// supportedの各タグはBCP 47として解釈できなければならず、defはsupportedに含まれなければならない。
func NewResolver(supported []string, def string) (*Resolver, error) {
	if len(supported) == 0 {
		return nil, fmt.Errorf("supported locales must not be empty")
	}

	tags := make([]language.Tag, 0, len(supported))
	for _, s := range supported {
		tag, err := language.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", s, err)
		}
		tags = append(tags, tag)
	}
	if !slices.Contains(supported, def) {
		return nil, fmt.Errorf("default locale %q is not supported", def)
	}

	return &Resolver{
		supported: slices.Clone(supported),
		def:       def,
		matcher:   language.NewMatcher(tags),
	}, nil
}

// Resolve はcandidateがサポート対象であればそのまま返し、そうでなければデフォルトを返す。
// 完全一致で判定する。
func (r *Resolver) Resolve(candidate string) string {
	if r.IsSupported(candidate) {
		return candidate
	}
	return r.def
}

// IsSupported はcandidateがサポート対象ロケールかを返す。
func (r *Resolver) IsSupported(candidate string) bool {
	return candidate != "" && slices.Contains(r.supported, candidate)
}

// FromPath はパスの先頭セグメントがサポート対象ロケールであればそれを返す。
func (r *Resolver) FromPath(path string) (string, bool) {
	first := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(first, '/'); i >= 0 {
		first = first[:i]
	}
	if r.IsSupported(first) {
		return first, true
	}
	return "", false
}

// Detect はAccept-Languageヘッダーからサポート対象の中で最も適したロケールを返す。
// ヘッダーが空、解析不能、または一致するものがない場合はデフォルトを返す。
func (r *Resolver) Detect(acceptLanguage string) string {
	if strings.TrimSpace(acceptLanguage) == "" {
		return r.def
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return r.def
	}
	_, index, confidence := r.matcher.Match(tags...)
	if confidence == language.No {
		return r.def
	}
	return r.supported[index]
}

// Supported はサポート対象ロケールのコピーを返す。
func (r *Resolver) Supported() []string {
	return slices.Clone(r.supported)
}

// Default はデフォルトロケールを返す。
func (r *Resolver) Default() string {
	return r.def
}
