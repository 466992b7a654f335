package model

import "github.com/google/uuid"

// NewID はストアが払い出す新しい識別子を生成する。
func NewID() string {
	return uuid.NewString()
}

// ParseID は識別子がUUID形式であることを検証し、正規化した文字列を返す。
// 形式が不正な場合はINVALID_IDのAPIErrorを返す。
func ParseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", NewInvalidIDError(id)
	}
	return u.String(), nil
}
