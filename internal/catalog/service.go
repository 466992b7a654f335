// Package catalog はサービス掲載のドメインロジックを提供する。
package catalog

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/glamspot/internal/model"
	"github.com/hitoshi/glamspot/internal/repository"
	"github.com/hitoshi/glamspot/internal/security"
)

// ページネーションの既定値と上限。
const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 100
)

// CreateInput はサービス作成時の入力。
// ProviderEmailはアクセスガードで検証済みのメールアドレスを設定する。
type CreateInput struct {
	ServiceName   string
	ServiceImage  string
	Price         float64
	ServiceArea   string
	Description   string
	ProviderEmail string
	ProviderName  string
	ProviderImage string
}

// PageRequest は検証済みのページ指定。
type PageRequest struct {
	Page int
	Size int
	Sort model.SortOrder
}

// Offset は読み飛ばす件数を返す。
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Size
}

// ParsePageRequest はクエリ文字列のpage, size, sortを検証する。
// 未指定のpage, sizeには既定値を用いる。
func ParsePageRequest(page, size, sort string) (PageRequest, error) {
	req := PageRequest{Page: DefaultPage, Size: DefaultSize}

	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return PageRequest{}, model.NewInvalidPaginationError("page=" + page)
		}
		req.Page = n
	}
	if size != "" {
		n, err := strconv.Atoi(size)
		if err != nil || n < 1 || n > MaxSize {
			return PageRequest{}, model.NewInvalidPaginationError("size=" + size)
		}
		req.Size = n
	}
	// Offsetがintに収まらないページは存在しない
	if req.Page-1 > math.MaxInt/req.Size {
		return PageRequest{}, model.NewInvalidPaginationError("page=" + page)
	}

	switch s := model.SortOrder(strings.ToLower(sort)); s {
	case model.SortNone, model.SortAsc, model.SortDesc:
		req.Sort = s
	default:
		return PageRequest{}, model.NewInvalidSortError(sort)
	}
	return req, nil
}

// Service はサービス掲載のサービス層。
// 更新と削除はサービスを掲載したプロバイダー本人にのみ許可する。
type Service struct {
	repo      repository.ServiceRepository
	sanitizer security.Sanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ServiceRepository, sanitizer security.Sanitizer) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Create はサービスを作成する。予約数は0から始まる。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Service, error) {
	now := s.now().UTC()
	svc := &model.Service{
		ID:            model.NewID(),
		ServiceName:   in.ServiceName,
		ServiceImage:  s.sanitizer.URL(in.ServiceImage),
		Price:         in.Price,
		ServiceArea:   in.ServiceArea,
		Description:   s.sanitizer.RichText(in.Description),
		ProviderEmail: in.ProviderEmail,
		ProviderName:  in.ProviderName,
		ProviderImage: s.sanitizer.URL(in.ProviderImage),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("サービスの作成に失敗しました: %w", err)
	}
	return svc, nil
}

// List は全サービスを返す。
func (s *Service) List(ctx context.Context) ([]*model.Service, error) {
	services, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("サービス一覧の取得に失敗しました: %w", err)
	}
	return services, nil
}

// Get は指定IDのサービスを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Service, error) {
	id, err := model.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

// ListByProvider は指定プロバイダーが掲載したサービスを返す。
func (s *Service) ListByProvider(ctx context.Context, providerEmail string) ([]*model.Service, error) {
	services, err := s.repo.ListByProvider(ctx, providerEmail)
	if err != nil {
		return nil, fmt.Errorf("プロバイダー別サービス一覧の取得に失敗しました: %w", err)
	}
	return services, nil
}

// Search はサービス名に検索語を含むサービスを返す。
// 検索語が空の場合は全サービスを返す。
func (s *Service) Search(ctx context.Context, term string) ([]*model.Service, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.List(ctx)
	}
	services, err := s.repo.Search(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("サービス検索に失敗しました: %w", err)
	}
	return services, nil
}

// Paginate は指定ページのサービスを返す。
func (s *Service) Paginate(ctx context.Context, req PageRequest) ([]*model.Service, error) {
	services, err := s.repo.ListPage(ctx, req.Offset(), req.Size, req.Sort)
	if err != nil {
		return nil, fmt.Errorf("サービスのページ取得に失敗しました: %w", err)
	}
	return services, nil
}

// Count は全サービス数を返す。
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("サービス数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// Update はサービスにマージパッチを適用する。
// サービスが存在しない場合は404、掲載者以外の場合は403のAPIErrorを返す。
func (s *Service) Update(ctx context.Context, id, email string, patch model.ServicePatch) (*model.Service, error) {
	id, err := model.ParseID(id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, model.NewEmptyPatchError()
	}

	svc, err := s.findOwned(ctx, id, email)
	if err != nil {
		return nil, err
	}

	s.sanitizePatch(&patch)
	patch.Apply(svc)

	ok, err := s.repo.Update(ctx, svc)
	if err != nil {
		return nil, fmt.Errorf("サービスの更新に失敗しました: %w", err)
	}
	if !ok {
		return nil, model.NewServiceNotFoundError(id)
	}
	return svc, nil
}

// Delete はサービスを削除する。予約と予約数は変更しない。
// サービスが存在しない場合は404、掲載者以外の場合は403のAPIErrorを返す。
func (s *Service) Delete(ctx context.Context, id, email string) error {
	id, err := model.ParseID(id)
	if err != nil {
		return err
	}
	if _, err := s.findOwned(ctx, id, email); err != nil {
		return err
	}

	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("サービスの削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewServiceNotFoundError(id)
	}
	return nil
}

func (s *Service) find(ctx context.Context, id string) (*model.Service, error) {
	svc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("サービスの取得に失敗しました: %w", err)
	}
	if svc == nil {
		return nil, model.NewServiceNotFoundError(id)
	}
	return svc, nil
}

func (s *Service) findOwned(ctx context.Context, id, email string) (*model.Service, error) {
	svc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if svc.ProviderEmail != email {
		return nil, model.NewForbiddenError()
	}
	return svc, nil
}

func (s *Service) sanitizePatch(p *model.ServicePatch) {
	text := func(v *string, fn func(string) string) {
		if v != nil {
			*v = fn(*v)
		}
	}
	text(p.ServiceImage, s.sanitizer.URL)
	text(p.Description, s.sanitizer.RichText)
	text(p.ProviderImage, s.sanitizer.URL)
}
