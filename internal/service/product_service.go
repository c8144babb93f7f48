package service

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// ProductService инкапсулирует бизнес-логику вокруг меню
type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

var ErrInvalidInput = errors.New("invalid input")

func validProduct(p domain.Product) bool {
	return strings.TrimSpace(p.Name) != "" && domain.IsCategory(p.Category) && p.Price >= 0
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if !validProduct(p) {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID <= 0 || !validProduct(p) {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.repo.Update(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	if f.Category != "" && !domain.IsCategory(f.Category) {
		return nil, ErrInvalidInput
	}
	return s.repo.List(ctx, f)
}
