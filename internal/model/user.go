// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 外部IdPのユーザーIDごとに1件だけ存在する。
type User struct {
	ID         string
	ExternalID string
	Email      string
	Name       *string
	AvatarURL  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName は表示名を返す。名前が未設定の場合はメールアドレスを返す。
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}

// Identity はIdPが報告する認証済みユーザー情報を表す。
// Name, AvatarURL はIdPが返さなかった場合nilとなる。
type Identity struct {
	ExternalID string
	Email      string
	Name       *string
	AvatarURL  *string
}
