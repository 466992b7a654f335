package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/glamspot/internal/model"
)

const serviceColumns = `id, service_name, service_image, price, service_area, description,
	provider_email, provider_name, provider_image, total_bookings, created_at, updated_at`

// PostgresServiceRepo はPostgreSQLを使用したサービスリポジトリ。
type PostgresServiceRepo struct {
	db *sql.DB
}

// NewPostgresServiceRepo はPostgresServiceRepoを生成する。
func NewPostgresServiceRepo(db *sql.DB) *PostgresServiceRepo {
	return &PostgresServiceRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(row rowScanner) (*model.Service, error) {
	svc := &model.Service{}
	err := row.Scan(
		&svc.ID, &svc.ServiceName, &svc.ServiceImage, &svc.Price, &svc.ServiceArea, &svc.Description,
		&svc.ProviderEmail, &svc.ProviderName, &svc.ProviderImage, &svc.TotalBookings,
		&svc.CreatedAt, &svc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// Create はサービスを作成する。total_bookingsは常に0で作成される。
func (r *PostgresServiceRepo) Create(ctx context.Context, svc *model.Service) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO services (id, service_name, service_image, price, service_area, description,
			provider_email, provider_name, provider_image, total_bookings, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11)`,
		svc.ID, svc.ServiceName, svc.ServiceImage, svc.Price, svc.ServiceArea, svc.Description,
		svc.ProviderEmail, svc.ProviderName, svc.ProviderImage, svc.CreatedAt, svc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("サービスの作成に失敗しました: %w", err)
	}
	svc.TotalBookings = 0
	return nil
}

// FindByID は指定IDのサービスを取得する。見つからない場合はnilを返す。
func (r *PostgresServiceRepo) FindByID(ctx context.Context, id string) (*model.Service, error) {
	svc, err := scanService(r.db.QueryRowContext(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows || isInvalidTextRepresentation(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("サービスの取得に失敗しました: %w", err)
	}
	return svc, nil
}

// List は全サービスを作成順に返す。
func (r *PostgresServiceRepo) List(ctx context.Context) ([]*model.Service, error) {
	return r.query(ctx, "サービス一覧",
		`SELECT `+serviceColumns+` FROM services ORDER BY created_at ASC, id ASC`,
	)
}

// ListByProvider は指定プロバイダーのサービスを作成順に返す。
func (r *PostgresServiceRepo) ListByProvider(ctx context.Context, providerEmail string) ([]*model.Service, error) {
	return r.query(ctx, "プロバイダー別サービス一覧",
		`SELECT `+serviceColumns+` FROM services WHERE provider_email = $1 ORDER BY created_at ASC, id ASC`,
		providerEmail,
	)
}

// Search はサービス名に部分一致（大文字小文字を区別しない）するサービスを返す。
// 検索語中のワイルドカード文字はリテラルとして扱う。
func (r *PostgresServiceRepo) Search(ctx context.Context, term string) ([]*model.Service, error) {
	return r.query(ctx, "サービス検索",
		`SELECT `+serviceColumns+` FROM services
		 WHERE service_name ILIKE $1 ESCAPE '\'
		 ORDER BY created_at ASC, id ASC`,
		"%"+escapeLike(term)+"%",
	)
}

// ListPage はoffset件をスキップし、最大limit件のサービスを返す。
func (r *PostgresServiceRepo) ListPage(ctx context.Context, offset, limit int, sort model.SortOrder) ([]*model.Service, error) {
	return r.query(ctx, "サービスのページ取得",
		`SELECT `+serviceColumns+` FROM services ORDER BY `+orderByClause(sort)+` OFFSET $1 LIMIT $2`,
		offset, limit,
	)
}

// Count は全サービス数を返す。
func (r *PostgresServiceRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM services`).Scan(&count); err != nil {
		return 0, fmt.Errorf("サービス数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// Update はサービスの更新可能フィールドを保存する。
// provider_emailとtotal_bookingsは更新しない。
func (r *PostgresServiceRepo) Update(ctx context.Context, svc *model.Service) (bool, error) {
	err := r.db.QueryRowContext(ctx,
		`UPDATE services SET
			service_name = $2, service_image = $3, price = $4, service_area = $5,
			description = $6, provider_name = $7, provider_image = $8, updated_at = NOW()
		 WHERE id = $1
		 RETURNING total_bookings, updated_at`,
		svc.ID, svc.ServiceName, svc.ServiceImage, svc.Price, svc.ServiceArea,
		svc.Description, svc.ProviderName, svc.ProviderImage,
	).Scan(&svc.TotalBookings, &svc.UpdatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("サービスの更新に失敗しました: %w", err)
	}
	return true, nil
}

// Delete は指定IDのサービスを削除する。
func (r *PostgresServiceRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("サービスの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *PostgresServiceRepo) query(ctx context.Context, what, query string, args ...any) ([]*model.Service, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%sの取得に失敗しました: %w", what, err)
	}
	defer rows.Close()

	services := make([]*model.Service, 0)
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("サービス行の読み取りに失敗しました: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%sの走査に失敗しました: %w", what, err)
	}
	return services, nil
}

// adjustTotalBookings は指定サービスの予約数をdeltaだけ増減する。下限は設けない。
// 更新された行数を返す。
func adjustTotalBookings(ctx context.Context, q DBTX, serviceID string, delta int) (int64, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE services SET total_bookings = total_bookings + $2 WHERE id = $1`,
		serviceID, delta,
	)
	if err != nil {
		return 0, fmt.Errorf("予約数の更新に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	return n, nil
}

// orderByClause は並び順に対応するORDER BY句を返す。
// 同名サービスの順序を安定させるためidを第2キーにする。
func orderByClause(sort model.SortOrder) string {
	switch sort {
	case model.SortAsc:
		return "service_name ASC, id ASC"
	case model.SortDesc:
		return "service_name DESC, id ASC"
	default:
		return "created_at ASC, id ASC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike はLIKEパターンのメタ文字をエスケープする。
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// compile-time interface check
var _ ServiceRepository = (*PostgresServiceRepo)(nil)
