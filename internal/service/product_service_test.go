package service

import (
	"context"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

func setupPS(t *testing.T) *ProductService {
	t.Helper()
	store := repository.NewMemoryStore()
	return NewProductService(store)
}

func TestProduct_Create_Valid(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	p, err := ps.Create(ctx, domain.Product{Name: "Margherita", Category: "pizza", Price: 9.99, Available: true})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.ID == 0 {
		t.Fatalf("expected id assigned")
	}
}

func TestProduct_Create_Invalid(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	if _, err := ps.Create(ctx, domain.Product{Name: " ", Category: "pizza", Price: 1}); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := ps.Create(ctx, domain.Product{Name: "N", Category: "soup", Price: 1}); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := ps.Create(ctx, domain.Product{Name: "N", Category: "pizza", Price: -1}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestProduct_Update_Get_Delete(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	p, _ := ps.Create(ctx, domain.Product{Name: "A", Category: "burger", Price: 10, Available: true})

	got, err := ps.GetByID(ctx, p.ID)
	if err != nil || got.ID != p.ID {
		t.Fatalf("get failed: %v", err)
	}

	p.Name = "A+"
	p.Price = 12
	p.Available = false
	up, err := ps.Update(ctx, *p)
	if err != nil {
		t.Fatalf("update err: %v", err)
	}
	if up.Name != "A+" || up.Price != 12 || up.Available {
		t.Fatalf("not updated")
	}

	if err := ps.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete err: %v", err)
	}
	if _, err := ps.GetByID(ctx, p.ID); err == nil {
		t.Fatalf("expected not found after delete")
	}
}

func TestProduct_List_Filtering(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	must := func(p *domain.Product, err error) *domain.Product {
		if err != nil {
			t.Fatal(err)
		}
		return p
	}
	_ = must(ps.Create(ctx, domain.Product{Name: "Margherita", Category: "pizza", Price: 9.99, Available: true}))
	_ = must(ps.Create(ctx, domain.Product{Name: "Hawaiian", Category: "pizza", Price: 11, Available: false}))
	_ = must(ps.Create(ctx, domain.Product{Name: "Brownie", Category: "dessert", Price: 4, Available: true}))

	list, err := ps.List(ctx, repository.ProductFilter{Category: "pizza"})
	if err != nil || len(list) != 2 {
		t.Fatalf("category filter: %v %v", list, err)
	}

	list, err = ps.List(ctx, repository.ProductFilter{AvailableOnly: true})
	if err != nil || len(list) != 2 {
		t.Fatalf("available filter: %v %v", list, err)
	}

	if _, err := ps.List(ctx, repository.ProductFilter{Category: "soup"}); err != ErrInvalidInput {
		t.Fatalf("unknown category must be rejected, got %v", err)
	}
}
