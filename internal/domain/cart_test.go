package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestNewCartSnapshot(t *testing.T) {
	items := []domain.LineItem{
		{ProductID: "1", Price: decimal.RequireFromString("9.99"), Quantity: 3},
		{ProductID: "2", Price: decimal.RequireFromString("0.01"), Quantity: 1},
	}

	snap := domain.NewCartSnapshot(items)
	if snap.Count != 4 {
		t.Fatalf("expected count 4, got %d", snap.Count)
	}
	if !snap.Total.Equal(decimal.RequireFromString("29.98")) {
		t.Fatalf("expected total 29.98, got %s", snap.Total)
	}

	items[0].Quantity = 100
	if snap.Items[0].Quantity != 3 {
		t.Fatal("snapshot must not share the backing array")
	}
}

func TestNewLineItem(t *testing.T) {
	p := domain.Product{ID: 42, Title: "Lamp", Brand: "Acme", Price: decimal.NewFromInt(15), Stock: 7, Thumbnail: "t.png"}
	li := domain.NewLineItem(p, 2)

	if li.ProductID != "42" || li.Title != "Lamp" || li.Stock != 7 || li.Quantity != 2 {
		t.Fatalf("unexpected line item %+v", li)
	}
	if !li.Subtotal().Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected subtotal 30, got %s", li.Subtotal())
	}
}

func TestSessionNameParts(t *testing.T) {
	s := domain.Session{Name: "John Doe"}
	if s.FirstName() != "John" || s.LastName() != "Doe" {
		t.Fatalf("unexpected split %q / %q", s.FirstName(), s.LastName())
	}
	if (domain.Session{Name: "Cher"}).LastName() != "" {
		t.Fatal("single name has no last name")
	}
}

func TestCheckoutDraftMergeShipping(t *testing.T) {
	draft := domain.NewCheckoutDraft()
	draft.MergeShipping(domain.ShippingInfo{FirstName: "Ann", City: "Oslo"})
	draft.MergeShipping(domain.ShippingInfo{City: "Bergen"})

	if draft.Shipping.FirstName != "Ann" || draft.Shipping.City != "Bergen" {
		t.Fatalf("unexpected merge result %+v", draft.Shipping)
	}
	if draft.PaymentMethod != domain.PaymentMethodCreditCard {
		t.Fatalf("default payment method should be creditCard, got %s", draft.PaymentMethod)
	}
}

func TestCardDetailsMasked(t *testing.T) {
	card := domain.CardDetails{Number: "4111111111111111", HolderName: "A B", Expiry: "12/30", CVV: "123"}
	masked := card.Masked()
	if masked.Number != "****1111" || masked.CVV != "***" || masked.HolderName != "A B" {
		t.Fatalf("unexpected mask %+v", masked)
	}
}
