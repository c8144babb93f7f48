// Package cart хранит корзину одной сессии и синхронизирует её с KV-хранилищем.
//
// Ни одна операция не возвращает ошибку: сбои чтения и записи логируются,
// корзина в памяти остаётся источником истины до конца сессии.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sync"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// Store корзина одной сессии
type Store struct {
	mu    sync.Mutex
	kv    repository.KV
	key   string
	log   *slog.Logger
	lines []domain.CartLine
}

// Summary снимок корзины с производными значениями
type Summary struct {
	Items []domain.CartLine `json:"items"`
	Total float64           `json:"total"`
	Count int64             `json:"count"`
}

func NewStore(kv repository.KV, key string, log *slog.Logger) *Store {
	return &Store{
		kv:    kv,
		key:   key,
		log:   log.With("cart_key", key),
		lines: []domain.CartLine{},
	}
}

// Initialize загружает сохранённую корзину. Отсутствующий ключ, не-массив или
// битый JSON дают пустую корзину; невалидные позиции отбрасываются.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = s.load(ctx)
}

func (s *Store) load(ctx context.Context) []domain.CartLine {
	b, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error("cart load failed", slog.Any("err", err))
		}
		return []domain.CartLine{}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		s.log.Error("cart payload unparsable", slog.Any("err", err))
		return []domain.CartLine{}
	}
	if raw == nil {
		s.log.Error("cart payload is not a sequence")
		return []domain.CartLine{}
	}

	lines := make([]domain.CartLine, 0, len(raw))
	for i, r := range raw {
		var l domain.CartLine
		if err := json.Unmarshal(r, &l); err != nil {
			s.log.Warn("cart line dropped", slog.Int("index", i), slog.Any("err", err))
			continue
		}
		if !validLine(l) {
			s.log.Warn("cart line dropped", slog.Int("index", i), slog.Int64("product_id", l.Product.ID))
			continue
		}
		lines = merge(lines, l.Product, l.Quantity)
	}
	return lines
}

// validLine проверка на границе загрузки; в памяти хранятся только валидные позиции
func validLine(l domain.CartLine) bool {
	p := l.Product.Price
	return l.Product.ID != 0 &&
		l.Quantity >= 1 &&
		!math.IsNaN(p) && !math.IsInf(p, 0) && p >= 0
}

func merge(lines []domain.CartLine, p domain.Product, qty int64) []domain.CartLine {
	for i := range lines {
		if lines[i].Product.ID == p.ID {
			lines[i].Quantity += qty
			return lines
		}
	}
	return append(lines, domain.CartLine{Product: p, Quantity: qty})
}

// Add добавляет товар или увеличивает количество существующей позиции
func (s *Store) Add(ctx context.Context, p *domain.Product, qty int64) {
	if p == nil || p.ID == 0 {
		s.log.Error("add to cart: invalid product")
		return
	}
	if qty < 1 {
		s.log.Error("add to cart: invalid quantity", slog.Int64("product_id", p.ID), slog.Int64("quantity", qty))
		return
	}
	if !validLine(domain.CartLine{Product: *p, Quantity: qty}) {
		s.log.Error("add to cart: invalid price", slog.Int64("product_id", p.ID))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = merge(s.lines, *p, qty)
	s.persist(ctx)
}

// Remove удаляет позицию; отсутствие позиции не ошибка
func (s *Store) Remove(ctx context.Context, productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(productID)
	s.persist(ctx)
}

func (s *Store) remove(productID int64) {
	out := s.lines[:0]
	for _, l := range s.lines {
		if l.Product.ID != productID {
			out = append(out, l)
		}
	}
	s.lines = out
}

// UpdateQuantity выставляет количество; qty <= 0 удаляет позицию
func (s *Store) UpdateQuantity(ctx context.Context, productID int64, qty int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if qty <= 0 {
		s.remove(productID)
	} else {
		for i := range s.lines {
			if s.lines[i].Product.ID == productID {
				s.lines[i].Quantity = qty
			}
		}
	}
	s.persist(ctx)
}

// Deduct снимает с корзины оформленные количества; позиции, добавленные
// после снимка, остаются
func (s *Store) Deduct(ctx context.Context, items []domain.OrderItemInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		for i := range s.lines {
			if s.lines[i].Product.ID == it.ProductID {
				s.lines[i].Quantity -= it.Quantity
				break
			}
		}
	}
	out := s.lines[:0]
	for _, l := range s.lines {
		if l.Quantity > 0 {
			out = append(out, l)
		}
	}
	s.lines = out
	s.persist(ctx)
}

func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = []domain.CartLine{}
	s.persist(ctx)
}

// persist вызывается под s.mu; ошибка записи только логируется
func (s *Store) persist(ctx context.Context) {
	b, err := json.Marshal(s.lines)
	if err != nil {
		s.log.Error("cart encode failed", slog.Any("err", err))
		return
	}
	if err := s.kv.Set(ctx, s.key, b); err != nil {
		s.log.Error("cart save failed", slog.Any("err", err))
	}
}

// Lines копия позиций в порядке добавления
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Total сумма price × quantity, округлённая до двух знаков
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return total(s.lines)
}

// Count сумма количеств
func (s *Store) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return count(s.lines)
}

func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]domain.CartLine, len(s.lines))
	copy(items, s.lines)
	return Summary{Items: items, Total: total(s.lines), Count: count(s.lines)}
}

// OrderItems позиции для запроса на создание заказа
func (s *Store) OrderItems() []domain.OrderItemInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OrderItemInput, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, domain.OrderItemInput{ProductID: l.Product.ID, Quantity: l.Quantity})
	}
	return out
}

func total(lines []domain.CartLine) float64 {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(decimal.NewFromFloat(l.Product.Price).Mul(decimal.NewFromInt(l.Quantity)))
	}
	return sum.Round(2).InexactFloat64()
}

func count(lines []domain.CartLine) int64 {
	var n int64
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
