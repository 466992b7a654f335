// Package model はドメインモデルを定義する。
package model

import "time"

// Service はプロバイダーが掲載するサービスを表す。
// TotalBookings は予約台帳によってのみ増減し、クライアントから直接更新されない。
type Service struct {
	ID            string
	ServiceName   string
	ServiceImage  string
	Price         float64
	ServiceArea   string
	Description   string
	ProviderEmail string
	ProviderName  string
	ProviderImage string
	TotalBookings int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ServicePatch はサービスのマージパッチを表す。
// nilフィールドは変更せず、既存の値を維持する。
type ServicePatch struct {
	ServiceName   *string  `json:"serviceName"`
	ServiceImage  *string  `json:"serviceImage"`
	Price         *float64 `json:"price"`
	ServiceArea   *string  `json:"serviceArea"`
	Description   *string  `json:"description"`
	ProviderName  *string  `json:"providerName"`
	ProviderImage *string  `json:"providerImage"`
}

// IsEmpty はパッチに変更対象のフィールドが1つもない場合にtrueを返す。
func (p ServicePatch) IsEmpty() bool {
	return p.ServiceName == nil && p.ServiceImage == nil && p.Price == nil &&
		p.ServiceArea == nil && p.Description == nil &&
		p.ProviderName == nil && p.ProviderImage == nil
}

// Apply はパッチの非nilフィールドをサービスに反映する。
func (p ServicePatch) Apply(s *Service) {
	if p.ServiceName != nil {
		s.ServiceName = *p.ServiceName
	}
	if p.ServiceImage != nil {
		s.ServiceImage = *p.ServiceImage
	}
	if p.Price != nil {
		s.Price = *p.Price
	}
	if p.ServiceArea != nil {
		s.ServiceArea = *p.ServiceArea
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.ProviderName != nil {
		s.ProviderName = *p.ProviderName
	}
	if p.ProviderImage != nil {
		s.ProviderImage = *p.ProviderImage
	}
}

// SortOrder はサービス名によるページネーション時の並び順を表す。
type SortOrder string

const (
	// SortNone は並び替えを行わない（作成順）。
	SortNone SortOrder = ""
	// SortAsc はサービス名の昇順。
	SortAsc SortOrder = "asc"
	// SortDesc はサービス名の降順。
	SortDesc SortOrder = "desc"
)
