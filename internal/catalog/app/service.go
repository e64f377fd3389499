package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/dwikikusuma/codshop/internal/catalog/domain"
	"github.com/dwikikusuma/codshop/pkg/apperr"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput = fmt.Errorf("%w: invalid product input", apperr.ErrValidation)
	ErrNotFound     = fmt.Errorf("product %w", apperr.ErrNotFound)
)

type Service struct {
	repo ProductRepo
}

func NewService(repo ProductRepo) *Service {
	return &Service{
		repo: repo,
	}
}

type CreateProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Images      []string
	CategoryID  string
}

func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (domain.Product, error) {
	name := strings.TrimSpace(in.Name)

	if name == "" || in.Price.IsNegative() || in.Stock < 0 {
		return domain.Product{}, ErrInvalidInput
	}

	images := make([]string, 0, len(in.Images))
	for _, img := range in.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}

	p := domain.Product{
		Name:        name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Images:      images,
		CategoryID:  strings.TrimSpace(in.CategoryID),
	}

	product, err := s.repo.Create(ctx, p)
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, ErrInvalidInput
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, query string, limit int, cursor string) ([]domain.Product, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, query, limit, cursor)
}

func (s *Service) CountProducts(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
