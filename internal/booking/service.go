// Package booking は予約のドメインロジックを提供する。
//
// 予約の作成と取消は参照先サービスの予約数と対になって永続化される。
// 取消対象の予約が存在しない場合は、予約数に触れる前に404を返す。
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/glamspot/internal/model"
	"github.com/hitoshi/glamspot/internal/repository"
)

// ServiceFinder は予約時に参照先サービスを取得するためのインターフェース。
// repository.ServiceRepositoryの部分集合として定義する。
type ServiceFinder interface {
	FindByID(ctx context.Context, id string) (*model.Service, error)
}

// LedgerRecorder は予約の作成・取消をメトリクスに記録するインターフェース。
type LedgerRecorder interface {
	RecordBookingCreated()
	RecordBookingCancelled()
}

type noopRecorder struct{}

func (noopRecorder) RecordBookingCreated()   {}
func (noopRecorder) RecordBookingCancelled() {}

// BookInput は予約作成時の入力。
// CustomerEmailはアクセスガードで検証済みのメールアドレスを設定する。
type BookInput struct {
	ServiceID          string
	CustomerEmail      string
	CustomerName       string
	ServiceTakingDate  string
	SpecialInstruction string
}

// Service は予約のサービス層。
type Service struct {
	bookings repository.BookingRepository
	services ServiceFinder
	recorder LedgerRecorder
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderがnilの場合はメトリクスを記録しない。
func NewService(
	bookings repository.BookingRepository,
	services ServiceFinder,
	recorder LedgerRecorder,
) *Service {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Service{
		bookings: bookings,
		services: services,
		recorder: recorder,
		now:      time.Now,
	}
}

// Book は予約を作成し、参照先サービスの予約数を1増やす。
// プロバイダー情報・サービス名・画像・価格は予約時点のサービスからコピーする。
func (s *Service) Book(ctx context.Context, in BookInput) (*model.Booking, error) {
	serviceID, err := model.ParseID(in.ServiceID)
	if err != nil {
		return nil, err
	}

	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("予約対象サービスの取得に失敗しました: %w", err)
	}
	if svc == nil {
		return nil, model.NewServiceNotFoundError(serviceID)
	}

	now := s.now().UTC()
	b := &model.Booking{
		ID:                 model.NewID(),
		ServiceID:          svc.ID,
		ServiceName:        svc.ServiceName,
		ServiceImage:       svc.ServiceImage,
		Price:              svc.Price,
		ProviderEmail:      svc.ProviderEmail,
		ProviderName:       svc.ProviderName,
		CustomerEmail:      in.CustomerEmail,
		CustomerName:       in.CustomerName,
		ServiceTakingDate:  in.ServiceTakingDate,
		SpecialInstruction: in.SpecialInstruction,
		ServiceStatus:      model.BookingStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.bookings.CreateWithLedger(ctx, b); err != nil {
		// 検索後にサービスが削除された場合
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, model.NewServiceNotFoundError(serviceID)
		}
		return nil, fmt.Errorf("予約の作成に失敗しました: %w", err)
	}

	s.recorder.RecordBookingCreated()
	slog.Info("booking created",
		slog.String("booking_id", b.ID),
		slog.String("service_id", b.ServiceID),
	)
	return b, nil
}

// ListByCustomer は顧客の予約一覧を返す。
func (s *Service) ListByCustomer(ctx context.Context, customerEmail string) ([]*model.Booking, error) {
	bookings, err := s.bookings.ListByCustomer(ctx, customerEmail)
	if err != nil {
		return nil, fmt.Errorf("顧客別予約一覧の取得に失敗しました: %w", err)
	}
	return bookings, nil
}

// ListByProvider はプロバイダーが対応すべき予約一覧を返す。
func (s *Service) ListByProvider(ctx context.Context, providerEmail string) ([]*model.Booking, error) {
	bookings, err := s.bookings.ListByProvider(ctx, providerEmail)
	if err != nil {
		return nil, fmt.Errorf("プロバイダー別予約一覧の取得に失敗しました: %w", err)
	}
	return bookings, nil
}

// Get は予約を返す。予約の顧客またはプロバイダーのみ参照できる。
func (s *Service) Get(ctx context.Context, id, email string) (*model.Booking, error) {
	b, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.CustomerEmail != email && b.ProviderEmail != email {
		return nil, model.NewForbiddenError()
	}
	return b, nil
}

// Update は予約にマージパッチを適用する。予約した顧客のみ更新できる。
func (s *Service) Update(ctx context.Context, id, email string, patch model.BookingPatch) (*model.Booking, error) {
	if _, err := model.ParseID(id); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, model.NewEmptyPatchError()
	}

	b, err := s.findAsCustomer(ctx, id, email)
	if err != nil {
		return nil, err
	}

	patch.Apply(b)

	ok, err := s.bookings.Update(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("予約の更新に失敗しました: %w", err)
	}
	if !ok {
		return nil, model.NewBookingNotFoundError(b.ID)
	}
	return b, nil
}

// Cancel は予約を削除し、参照先サービスの予約数を1減らす。予約した顧客のみ取り消せる。
// 予約が存在しない場合は予約数に触れずに404を返す。
func (s *Service) Cancel(ctx context.Context, id, email string) error {
	b, err := s.findAsCustomer(ctx, id, email)
	if err != nil {
		return err
	}

	deleted, err := s.bookings.DeleteWithLedger(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("予約の取消に失敗しました: %w", err)
	}
	// 確認後に別リクエストで削除された場合
	if deleted == nil {
		return model.NewBookingNotFoundError(b.ID)
	}

	s.recorder.RecordBookingCancelled()
	slog.Info("booking cancelled",
		slog.String("booking_id", deleted.ID),
		slog.String("service_id", deleted.ServiceID),
	)
	return nil
}

// UpdateStatus は予約の状態を更新する。予約を受けたプロバイダーのみ更新できる。
func (s *Service) UpdateStatus(ctx context.Context, id, email string, status model.BookingStatus) (*model.Booking, error) {
	if _, err := model.ParseID(id); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, model.NewInvalidStatusError(string(status))
	}

	b, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.ProviderEmail != email {
		return nil, model.NewForbiddenError()
	}

	ok, err := s.bookings.UpdateStatus(ctx, b.ID, status)
	if err != nil {
		return nil, fmt.Errorf("予約状態の更新に失敗しました: %w", err)
	}
	if !ok {
		return nil, model.NewBookingNotFoundError(b.ID)
	}
	b.ServiceStatus = status
	return b, nil
}

func (s *Service) find(ctx context.Context, id string) (*model.Booking, error) {
	id, err := model.ParseID(id)
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("予約の取得に失敗しました: %w", err)
	}
	if b == nil {
		return nil, model.NewBookingNotFoundError(id)
	}
	return b, nil
}

func (s *Service) findAsCustomer(ctx context.Context, id, email string) (*model.Booking, error) {
	b, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.CustomerEmail != email {
		return nil, model.NewForbiddenError()
	}
	return b, nil
}
