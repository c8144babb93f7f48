package events

import (
	"context"
	"testing"

	"storefront/internal/domain"
)

func TestRoutingKey(t *testing.T) {
	e := StatusChanged{OrderID: 7, From: domain.OrderStatusReady, To: domain.OrderStatusDelivered}
	if got := e.RoutingKey(); got != "order.status.delivered" {
		t.Fatalf("routing key %q", got)
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.PublishStatusChanged(context.Background(), StatusChanged{}); err != nil {
		t.Fatalf("nop publisher returned %v", err)
	}
}
