// Package model はドメインモデルを定義する。
package model

import "time"

// Booking は顧客によるサービス予約を表す。
// プロバイダー情報・サービス名・価格は予約時点のサービスからコピーされる。
type Booking struct {
	ID                 string
	ServiceID          string
	ServiceName        string
	ServiceImage       string
	Price              float64
	ProviderEmail      string
	ProviderName       string
	CustomerEmail      string
	CustomerName       string
	ServiceTakingDate  string
	SpecialInstruction string
	ServiceStatus      BookingStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BookingStatus は予約の進行状態を表す。
type BookingStatus string

const (
	// BookingStatusPending は受付直後の状態。
	BookingStatusPending BookingStatus = "pending"
	// BookingStatusWorking はプロバイダーが対応中の状態。
	BookingStatusWorking BookingStatus = "working"
	// BookingStatusCompleted は対応完了の状態。
	BookingStatusCompleted BookingStatus = "completed"
)

// Valid は定義済みの状態かどうかを返す。
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusWorking, BookingStatusCompleted:
		return true
	default:
		return false
	}
}

// BookingPatch は予約のマージパッチを表す。
// 顧客が変更できるフィールドのみを持つ。状態は専用のエンドポイントで更新する。
type BookingPatch struct {
	CustomerName       *string `json:"customerName"`
	ServiceTakingDate  *string `json:"serviceTakingDate"`
	SpecialInstruction *string `json:"specialInstruction"`
}

// IsEmpty はパッチに変更対象のフィールドが1つもない場合にtrueを返す。
func (p BookingPatch) IsEmpty() bool {
	return p.CustomerName == nil && p.ServiceTakingDate == nil && p.SpecialInstruction == nil
}

// Apply はパッチの非nilフィールドを予約に反映する。
func (p BookingPatch) Apply(b *Booking) {
	if p.CustomerName != nil {
		b.CustomerName = *p.CustomerName
	}
	if p.ServiceTakingDate != nil {
		b.ServiceTakingDate = *p.ServiceTakingDate
	}
	if p.SpecialInstruction != nil {
		b.SpecialInstruction = *p.SpecialInstruction
	}
}
