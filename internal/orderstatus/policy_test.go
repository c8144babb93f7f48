package orderstatus

import (
	"testing"

	"storefront/internal/domain"
)

func TestNext(t *testing.T) {
	cases := []struct {
		in   domain.OrderStatus
		want domain.OrderStatus
		ok   bool
	}{
		{domain.OrderStatusPending, domain.OrderStatusPreparing, true},
		{domain.OrderStatusPreparing, domain.OrderStatusReady, true},
		{domain.OrderStatusReady, domain.OrderStatusDelivered, true},
		{domain.OrderStatusDelivered, "", false},
		{domain.OrderStatusCancelled, "", false},
		{"shipped", "", false},
	}
	for _, c := range cases {
		got, ok := Next(c.in)
		if got != c.want || ok != c.ok {
			t.Fatalf("Next(%q) = %q,%v; want %q,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestStepIndex(t *testing.T) {
	for i, s := range Sequence() {
		if got := StepIndex(s); got != i {
			t.Fatalf("StepIndex(%q) = %d, want %d", s, got, i)
		}
	}
	if StepIndex(domain.OrderStatusCancelled) != NotApplicable {
		t.Fatalf("cancelled must be not applicable")
	}
}

func TestCanAdvance(t *testing.T) {
	if !CanAdvance(domain.OrderStatusReady) {
		t.Fatalf("ready should advance")
	}
	if CanAdvance(domain.OrderStatusDelivered) || CanAdvance(domain.OrderStatusCancelled) {
		t.Fatalf("terminal states must not advance")
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(domain.OrderStatusPending, domain.OrderStatusPreparing) {
		t.Fatalf("pending -> preparing expected")
	}
	if CanTransition(domain.OrderStatusPending, domain.OrderStatusReady) {
		t.Fatalf("skipping a step must be rejected")
	}
	if CanTransition(domain.OrderStatusReady, domain.OrderStatusPreparing) {
		t.Fatalf("backward transition must be rejected")
	}
	if !CanTransition(domain.OrderStatusReady, domain.OrderStatusCancelled) {
		t.Fatalf("cancel from non-terminal expected")
	}
	if CanTransition(domain.OrderStatusDelivered, domain.OrderStatusCancelled) {
		t.Fatalf("cancel from delivered must be rejected")
	}
	if CanTransition(domain.OrderStatusCancelled, domain.OrderStatusCancelled) {
		t.Fatalf("cancel twice must be rejected")
	}
}

func TestDisplayDefinedForAllStatuses(t *testing.T) {
	all := append(Sequence(), domain.OrderStatusCancelled)
	for _, s := range all {
		d := DisplayFor(s)
		if d.Color == "" || d.Label == "" {
			t.Fatalf("missing display for %q", s)
		}
	}
	if DisplayFor(domain.OrderStatusCancelled).Color != "bg-red-500" {
		t.Fatalf("cancelled color")
	}
}

func TestParse(t *testing.T) {
	if _, err := Parse("ready"); err != nil {
		t.Fatalf("parse ready: %v", err)
	}
	if _, err := Parse("Ready"); err == nil {
		t.Fatalf("expected unknown status")
	}
}

func TestActions_StaffReadyOrder(t *testing.T) {
	acts := Actions(domain.RoleStaff, domain.OrderStatusReady)
	if len(acts) == 0 || acts[0] != ActionAdvance {
		t.Fatalf("staff should be offered advance, got %v", acts)
	}
	next, _ := Next(domain.OrderStatusReady)
	if next != domain.OrderStatusDelivered {
		t.Fatalf("next after ready = %q", next)
	}
	if CanAdvance(next) {
		t.Fatalf("delivered must not advance")
	}
	if len(Actions(domain.RoleStaff, next)) != 0 {
		t.Fatalf("no actions after delivered")
	}
}

func TestActions_Customer(t *testing.T) {
	if len(Actions(domain.RoleCustomer, domain.OrderStatusPending)) != 0 {
		t.Fatalf("customer gets no actions")
	}
	v := ViewFor(domain.RoleCustomer, domain.OrderStatusPending)
	if v.Actions == nil || v.Next != domain.OrderStatusPreparing || v.Label != "Pending" {
		t.Fatalf("unexpected view %+v", v)
	}
}
