// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/glamspot/internal/model"
)

// ServiceRepository はサービスデータの永続化インターフェース。
type ServiceRepository interface {
	// Create はサービスを作成する。IDと作成日時は呼び出し側で設定する。
	Create(ctx context.Context, svc *model.Service) error

	// FindByID は指定IDのサービスを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Service, error)

	// List は全サービスを作成順に返す。
	List(ctx context.Context) ([]*model.Service, error)

	// ListByProvider は指定プロバイダーのサービスを作成順に返す。
	ListByProvider(ctx context.Context, providerEmail string) ([]*model.Service, error)

	// Search はサービス名に部分一致（大文字小文字を区別しない）するサービスを返す。
	Search(ctx context.Context, term string) ([]*model.Service, error)

	// ListPage はoffset件をスキップし、最大limit件のサービスを返す。
	// sortが指定された場合はサービス名で並び替える。
	ListPage(ctx context.Context, offset, limit int, sort model.SortOrder) ([]*model.Service, error)

	// Count は全サービス数を返す。
	Count(ctx context.Context) (int, error)

	// Update はサービスの更新可能フィールドを保存する。
	// 対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, svc *model.Service) (bool, error)

	// Delete は指定IDのサービスを削除する。
	// 対象が存在しない場合はfalseを返す。予約は削除しない。
	Delete(ctx context.Context, id string) (bool, error)
}

// BookingRepository は予約データの永続化インターフェース。
// 予約の作成・削除は参照先サービスのtotal_bookingsと同一トランザクションで行う。
type BookingRepository interface {
	// CreateWithLedger は予約を挿入し、参照先サービスの予約数を1増やす。
	// 参照先サービスが存在しない場合はErrServiceNotFoundを返し、何も保存しない。
	CreateWithLedger(ctx context.Context, booking *model.Booking) error

	// DeleteWithLedger は予約を取得して参照先サービスの予約数を1減らし、予約を削除する。
	// 予約が存在しない場合は予約数に触れずnilを返す。
	DeleteWithLedger(ctx context.Context, id string) (*model.Booking, error)

	// FindByID は指定IDの予約を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Booking, error)

	// ListByCustomer は指定顧客の予約を作成順に返す。
	ListByCustomer(ctx context.Context, customerEmail string) ([]*model.Booking, error)

	// ListByProvider は指定プロバイダーが受けた予約を作成順に返す。
	ListByProvider(ctx context.Context, providerEmail string) ([]*model.Booking, error)

	// Update は予約の顧客が変更できるフィールドを保存する。
	// 対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, booking *model.Booking) (bool, error)

	// UpdateStatus は予約の状態を更新する。
	// 対象が存在しない場合はfalseを返す。
	UpdateStatus(ctx context.Context, id string, status model.BookingStatus) (bool, error)
}

// DBTX はトランザクション内外で共通して使うクエリ実行インターフェース。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
