package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/glamspot/internal/model"
)

const bookingColumns = `id, service_id, service_name, service_image, price, provider_email, provider_name,
	customer_email, customer_name, service_taking_date, special_instruction, service_status,
	created_at, updated_at`

// PostgresBookingRepo はPostgreSQLを使用した予約リポジトリ。
// 予約の作成・削除とサービスの予約数の増減を同一トランザクションで実行する。
type PostgresBookingRepo struct {
	db *sql.DB
}

// NewPostgresBookingRepo はPostgresBookingRepoを生成する。
func NewPostgresBookingRepo(db *sql.DB) *PostgresBookingRepo {
	return &PostgresBookingRepo{db: db}
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	b := &model.Booking{}
	var status string
	err := row.Scan(
		&b.ID, &b.ServiceID, &b.ServiceName, &b.ServiceImage, &b.Price, &b.ProviderEmail, &b.ProviderName,
		&b.CustomerEmail, &b.CustomerName, &b.ServiceTakingDate, &b.SpecialInstruction, &status,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.ServiceStatus = model.BookingStatus(status)
	return b, nil
}

// CreateWithLedger は予約を挿入し、続けて参照先サービスの予約数を1増やす。
// 2つの書き込みは同一トランザクションで実行され、どちらかが失敗した場合は両方ロールバックされる。
func (r *PostgresBookingRepo) CreateWithLedger(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// 1. 予約を挿入
	_, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (id, service_id, service_name, service_image, price, provider_email, provider_name,
			customer_email, customer_name, service_taking_date, special_instruction, service_status,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		b.ID, b.ServiceID, b.ServiceName, b.ServiceImage, b.Price, b.ProviderEmail, b.ProviderName,
		b.CustomerEmail, b.CustomerName, b.ServiceTakingDate, b.SpecialInstruction, string(b.ServiceStatus),
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("予約の作成に失敗しました: %w", err)
	}

	// 2. 参照先サービスの予約数を増やす
	n, err := adjustTotalBookings(ctx, tx, b.ServiceID, 1)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrServiceNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// DeleteWithLedger は予約を行ロックして取得し、参照先サービスの予約数を1減らしてから予約を削除する。
// 予約が存在しない場合は予約数を変更せずnil, nilを返す。
// 参照先サービスが既に削除されている場合、予約数の更新は0行となり予約のみ削除される。
func (r *PostgresBookingRepo) DeleteWithLedger(ctx context.Context, id string) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// 1. 予約を取得（同時削除による二重減算を防ぐため行ロック）
	b, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`,
		id,
	))
	if err == sql.ErrNoRows || isInvalidTextRepresentation(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("予約のロック取得に失敗しました: %w", err)
	}

	// 2. 参照先サービスの予約数を減らす
	if _, err := adjustTotalBookings(ctx, tx, b.ServiceID, -1); err != nil {
		return nil, err
	}

	// 3. 予約を削除
	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("予約の削除に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return b, nil
}

// FindByID は指定IDの予約を取得する。見つからない場合はnilを返す。
func (r *PostgresBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows || isInvalidTextRepresentation(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("予約の取得に失敗しました: %w", err)
	}
	return b, nil
}

// ListByCustomer は指定顧客の予約を作成順に返す。
func (r *PostgresBookingRepo) ListByCustomer(ctx context.Context, customerEmail string) ([]*model.Booking, error) {
	return r.query(ctx, "顧客別予約一覧",
		`SELECT `+bookingColumns+` FROM bookings WHERE customer_email = $1 ORDER BY created_at ASC, id ASC`,
		customerEmail,
	)
}

// ListByProvider は指定プロバイダーが受けた予約を作成順に返す。
func (r *PostgresBookingRepo) ListByProvider(ctx context.Context, providerEmail string) ([]*model.Booking, error) {
	return r.query(ctx, "プロバイダー別予約一覧",
		`SELECT `+bookingColumns+` FROM bookings WHERE provider_email = $1 ORDER BY created_at ASC, id ASC`,
		providerEmail,
	)
}

// Update は予約の顧客が変更できるフィールドを保存する。
func (r *PostgresBookingRepo) Update(ctx context.Context, b *model.Booking) (bool, error) {
	err := r.db.QueryRowContext(ctx,
		`UPDATE bookings SET
			customer_name = $2, service_taking_date = $3, special_instruction = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		b.ID, b.CustomerName, b.ServiceTakingDate, b.SpecialInstruction,
	).Scan(&b.UpdatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("予約の更新に失敗しました: %w", err)
	}
	return true, nil
}

// UpdateStatus は予約の状態を更新する。
func (r *PostgresBookingRepo) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET service_status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return false, fmt.Errorf("予約状態の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *PostgresBookingRepo) query(ctx context.Context, what, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%sの取得に失敗しました: %w", what, err)
	}
	defer rows.Close()

	bookings := make([]*model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("予約行の読み取りに失敗しました: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%sの走査に失敗しました: %w", what, err)
	}
	return bookings, nil
}

// compile-time interface check
var _ BookingRepository = (*PostgresBookingRepo)(nil)
