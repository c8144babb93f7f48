package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/repository"
)

var ErrEmptyCart = errors.New("cart is empty")

// CheckoutInput данные формы оформления; позиции берутся из корзины
type CheckoutInput struct {
	PaymentMethod   domain.PaymentMethod   `json:"paymentMethod"`
	DeliveryAddress domain.DeliveryAddress `json:"deliveryAddress"`
	Notes           string                 `json:"notes"`
}

// maxSweepInterval как часто Open проверяет простаивающие корзины
const maxSweepInterval = time.Minute

type cartEntry struct {
	store *cart.Store
	// checkout сериализует оформление заказов одной сессии
	checkout sync.Mutex
	seen     time.Time
}

// CartService владеет корзинами сессий: одна cart.Store на сессию.
// Корзина, к которой не обращались дольше idle, выгружается из памяти;
// следующий запрос загрузит её из хранилища заново.
type CartService struct {
	kv       repository.KV
	products repository.ProductRepository
	orders   *OrderService
	log      *slog.Logger
	idle     time.Duration
	now      func() time.Time

	mu        sync.Mutex
	stores    map[string]*cartEntry
	lastSweep time.Time
}

// NewCartService idle <= 0 отключает выгрузку
func NewCartService(kv repository.KV, products repository.ProductRepository, orders *OrderService, idle time.Duration, log *slog.Logger) *CartService {
	return &CartService{
		kv:       kv,
		products: products,
		orders:   orders,
		log:      log,
		idle:     idle,
		now:      time.Now,
		stores:   make(map[string]*cartEntry),
	}
}

func cartKey(session string) string { return "cart:" + session }

// Open возвращает корзину сессии, загружая её из хранилища при первом обращении
func (s *CartService) Open(ctx context.Context, session string) *cart.Store {
	return s.entry(ctx, session).store
}

func (s *CartService) entry(ctx context.Context, session string) *cartEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	e, ok := s.stores[session]
	if !ok {
		st := cart.NewStore(s.kv, cartKey(session), s.log)
		st.Initialize(ctx)
		e = &cartEntry{store: st}
		s.stores[session] = e
	}
	e.seen = now
	return e
}

// sweep вызывается под s.mu
func (s *CartService) sweep(now time.Time) {
	if s.idle <= 0 {
		return
	}
	interval := s.idle
	if interval > maxSweepInterval {
		interval = maxSweepInterval
	}
	if now.Sub(s.lastSweep) < interval {
		return
	}
	s.lastSweep = now
	evicted := 0
	for id, e := range s.stores {
		if now.Sub(e.seen) >= s.idle {
			delete(s.stores, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.log.Debug("idle carts evicted", slog.Int("count", evicted), slog.Int("active", len(s.stores)))
	}
}

// Get читает корзину, не регистрируя сессию: чтение без изменений
// не должно занимать память
func (s *CartService) Get(ctx context.Context, session string) cart.Summary {
	s.mu.Lock()
	e, ok := s.stores[session]
	if ok {
		e.seen = s.now()
	}
	s.mu.Unlock()
	if ok {
		return e.store.Summary()
	}
	st := cart.NewStore(s.kv, cartKey(session), s.log)
	st.Initialize(ctx)
	return st.Summary()
}

// AddItem копирует товар из каталога в корзину
func (s *CartService) AddItem(ctx context.Context, session string, productID, qty int64) (cart.Summary, error) {
	if productID <= 0 || qty <= 0 {
		return cart.Summary{}, ErrInvalidInput
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return cart.Summary{}, err
	}
	if !p.Available {
		return cart.Summary{}, ErrUnavailable
	}
	st := s.Open(ctx, session)
	st.Add(ctx, p, qty)
	return st.Summary(), nil
}

func (s *CartService) UpdateItem(ctx context.Context, session string, productID, qty int64) cart.Summary {
	st := s.Open(ctx, session)
	st.UpdateQuantity(ctx, productID, qty)
	return st.Summary()
}

func (s *CartService) RemoveItem(ctx context.Context, session string, productID int64) cart.Summary {
	st := s.Open(ctx, session)
	st.Remove(ctx, productID)
	return st.Summary()
}

func (s *CartService) Clear(ctx context.Context, session string) cart.Summary {
	st := s.Open(ctx, session)
	st.Clear(ctx)
	return st.Summary()
}

// Checkout создаёт заказ из корзины. При успехе из корзины снимаются только
// оформленные количества; при ошибке корзина не меняется.
func (s *CartService) Checkout(ctx context.Context, session string, user domain.User, in CheckoutInput) (*domain.Order, error) {
	e := s.entry(ctx, session)
	e.checkout.Lock()
	defer e.checkout.Unlock()

	items := e.store.OrderItems()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	o, err := s.orders.CreateOrder(ctx, user, domain.PlaceOrderInput{
		Items:           items,
		PaymentMethod:   in.PaymentMethod,
		DeliveryAddress: in.DeliveryAddress,
		Notes:           in.Notes,
	})
	if err != nil {
		s.log.Warn("checkout failed", slog.String("session", session), slog.Any("err", err))
		return nil, err
	}
	e.store.Deduct(ctx, items)
	return o, nil
}

