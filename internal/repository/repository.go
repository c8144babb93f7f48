package repository

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain"
)

// ErrNotFound возвращается, когда сущность или ключ не найдены
var ErrNotFound = errors.New("not found")

// ProductFilter параметры фильтрации меню
type ProductFilter struct {
	NameSubstring string
	Category      string
	AvailableOnly bool
	MinPrice      *float64
	MaxPrice      *float64
}

// OrderFilter параметры выборки заказов; пустые поля не фильтруют
type OrderFilter struct {
	Status domain.OrderStatus
	UserID string
}

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	List(ctx context.Context, f OrderFilter) ([]domain.Order, error)
}

// TxManager абстракция транзакции. Для in-memory — глобальная блокировка записи.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// KV сессионное key-value хранилище для сериализованных корзин
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
