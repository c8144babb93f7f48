// Package events публикует изменения статусов заказов для внешних подписчиков
// (кухонный экран, уведомления). Доставка best-effort.
package events

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain"
)

// StatusChanged событие смены статуса заказа
type StatusChanged struct {
	OrderID   int64              `json:"order_id"`
	UserID    string             `json:"user_id"`
	From      domain.OrderStatus `json:"from"`
	To        domain.OrderStatus `json:"to"`
	ChangedBy string             `json:"changed_by"`
	At        time.Time          `json:"at"`
}

// RoutingKey order.status.<to>
func (e StatusChanged) RoutingKey() string {
	return fmt.Sprintf("order.status.%s", e.To)
}

type Publisher interface {
	PublishStatusChanged(ctx context.Context, e StatusChanged) error
}

// Nop используется, когда брокер не настроен
type Nop struct{}

func (Nop) PublishStatusChanged(context.Context, StatusChanged) error { return nil }
