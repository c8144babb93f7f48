package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/orderstatus"
	"storefront/internal/repository"
)

// OrderService реализует логику заказов: создание, продвижение статуса, отмена, отчёты
type OrderService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	tx       repository.TxManager
	events   events.Publisher
	log      *slog.Logger
}

func NewOrderService(products repository.ProductRepository, orders repository.OrderRepository, tx repository.TxManager, pub events.Publisher, log *slog.Logger) *OrderService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &OrderService{products: products, orders: orders, tx: tx, events: pub, log: log}
}

var (
	ErrInvalidState    = errors.New("invalid state")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("authentication required")
	ErrUnavailable     = errors.New("product unavailable")
)

func validAddress(a domain.DeliveryAddress) bool {
	for _, f := range []string{a.Street, a.City, a.Postcode, a.Phone} {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

// CreateOrder фиксирует цены товаров и создаёт заказ в статусе pending
func (s *OrderService) CreateOrder(ctx context.Context, user domain.User, in domain.PlaceOrderInput) (*domain.Order, error) {
	if user.ID == "" {
		return nil, ErrUnauthenticated
	}
	if len(in.Items) == 0 || !validAddress(in.DeliveryAddress) {
		return nil, ErrInvalidInput
	}
	if in.PaymentMethod != domain.PaymentCash && in.PaymentMethod != domain.PaymentCard {
		return nil, ErrInvalidInput
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return nil, ErrInvalidInput
		}
	}

	var created *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		items := make([]domain.OrderItem, 0, len(in.Items))
		sum := decimal.Zero
		for _, it := range in.Items {
			p, err := s.products.GetByID(ctx, it.ProductID)
			if err != nil {
				return fmt.Errorf("product %d: %w", it.ProductID, err)
			}
			if !p.Available {
				return fmt.Errorf("product %d: %w", it.ProductID, ErrUnavailable)
			}
			items = append(items, domain.OrderItem{
				ProductID: p.ID,
				Name:      p.Name,
				Price:     p.Price,
				Quantity:  it.Quantity,
			})
			sum = sum.Add(decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(it.Quantity)))
		}

		payment := domain.PaymentStatusPending
		if in.PaymentMethod == domain.PaymentCard {
			payment = domain.PaymentStatusPaid
		}
		o := domain.Order{
			UserID:          user.ID,
			Items:           items,
			TotalAmount:     sum.Round(2).InexactFloat64(),
			PaymentMethod:   in.PaymentMethod,
			PaymentStatus:   payment,
			DeliveryAddress: in.DeliveryAddress,
			Notes:           strings.TrimSpace(in.Notes),
			Status:          domain.OrderStatusPending,
		}
		if err := s.orders.Create(ctx, &o); err != nil {
			return err
		}
		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("order created",
		slog.Int64("order_id", created.ID),
		slog.String("user_id", user.ID),
		slog.Float64("total", created.TotalAmount))
	return created, nil
}

// GetOrder возвращает заказ; покупатель видит только свои заказы
func (s *OrderService) GetOrder(ctx context.Context, id int64, actor domain.User) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Privileged() && (actor.ID == "" || o.UserID != actor.ID) {
		return nil, repository.ErrNotFound
	}
	return o, nil
}

// ListOrders очередь заказов для персонала
func (s *OrderService) ListOrders(ctx context.Context, actor domain.User, status string) ([]domain.Order, error) {
	if !actor.Privileged() {
		return nil, ErrForbidden
	}
	var f repository.OrderFilter
	if status != "" {
		st, err := orderstatus.Parse(status)
		if err != nil {
			return nil, ErrInvalidInput
		}
		f.Status = st
	}
	return s.orders.List(ctx, f)
}

func (s *OrderService) ListMyOrders(ctx context.Context, actor domain.User) ([]domain.Order, error) {
	if actor.ID == "" {
		return nil, ErrUnauthenticated
	}
	return s.orders.List(ctx, repository.OrderFilter{UserID: actor.ID})
}

// UpdateStatus переводит заказ в статус to, если политика разрешает переход
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, to domain.OrderStatus, actor domain.User) (*domain.Order, error) {
	if _, err := orderstatus.Parse(string(to)); err != nil {
		return nil, ErrInvalidInput
	}
	return s.transition(ctx, id, actor, func(domain.OrderStatus) (domain.OrderStatus, bool) {
		return to, true
	})
}

// AdvanceStatus переводит заказ на следующий шаг
func (s *OrderService) AdvanceStatus(ctx context.Context, id int64, actor domain.User) (*domain.Order, error) {
	return s.transition(ctx, id, actor, orderstatus.Next)
}

// CancelOrder отмена из любого нетерминального статуса
func (s *OrderService) CancelOrder(ctx context.Context, id int64, actor domain.User) (*domain.Order, error) {
	return s.transition(ctx, id, actor, func(domain.OrderStatus) (domain.OrderStatus, bool) {
		return domain.OrderStatusCancelled, true
	})
}

func (s *OrderService) transition(ctx context.Context, id int64, actor domain.User, target func(domain.OrderStatus) (domain.OrderStatus, bool)) (*domain.Order, error) {
	if !actor.Privileged() {
		return nil, ErrForbidden
	}
	if id <= 0 {
		return nil, ErrInvalidInput
	}

	var (
		updated *domain.Order
		from    domain.OrderStatus
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		to, ok := target(o.Status)
		if !ok || !orderstatus.CanTransition(o.Status, to) {
			return fmt.Errorf("%s -> %s: %w", o.Status, to, ErrInvalidState)
		}
		from = o.Status
		o.Status = to
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order status changed",
		slog.Int64("order_id", updated.ID),
		slog.String("from", string(from)),
		slog.String("to", string(updated.Status)),
		slog.String("by", actor.ID))

	// событие best-effort: брокер не является источником истины
	ev := events.StatusChanged{
		OrderID:   updated.ID,
		UserID:    updated.UserID,
		From:      from,
		To:        updated.Status,
		ChangedBy: actor.ID,
		At:        updated.UpdatedAt,
	}
	if err := s.events.PublishStatusChanged(ctx, ev); err != nil {
		s.log.Warn("publish status event failed", slog.Int64("order_id", updated.ID), slog.Any("err", err))
	}
	return updated, nil
}

// Stats отчёт продаж; отменённые заказы в выручку не входят
func (s *OrderService) Stats(ctx context.Context, actor domain.User) (*domain.OrderStats, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	all, err := s.orders.List(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, err
	}

	byStatus := make(map[domain.OrderStatus]int64)
	type bucket struct {
		sum   decimal.Decimal
		count int64
	}
	months := make(map[string]*bucket)
	total := decimal.Zero
	var count int64

	for _, o := range all {
		byStatus[o.Status]++
		if o.Status == domain.OrderStatusCancelled {
			continue
		}
		amount := decimal.NewFromFloat(o.TotalAmount)
		total = total.Add(amount)
		count++
		key := o.CreatedAt.Format("2006-01")
		b, ok := months[key]
		if !ok {
			b = &bucket{sum: decimal.Zero}
			months[key] = b
		}
		b.sum = b.sum.Add(amount)
		b.count++
	}

	stats := &domain.OrderStats{
		TotalSales:     domain.SalesTotal{Total: total.Round(2).InexactFloat64(), Count: count},
		OrdersByStatus: make([]domain.StatusCount, 0),
		MonthlySales:   make([]domain.MonthlySales, 0, len(months)),
	}
	for _, st := range append(orderstatus.Sequence(), domain.OrderStatusCancelled) {
		if n := byStatus[st]; n > 0 {
			stats.OrdersByStatus = append(stats.OrdersByStatus, domain.StatusCount{Status: st, Count: n})
		}
	}
	for m, b := range months {
		stats.MonthlySales = append(stats.MonthlySales, domain.MonthlySales{
			Month: m,
			Total: b.sum.Round(2).InexactFloat64(),
			Count: b.count,
		})
	}
	sort.Slice(stats.MonthlySales, func(i, j int) bool {
		return stats.MonthlySales[i].Month < stats.MonthlySales[j].Month
	})
	return stats, nil
}
