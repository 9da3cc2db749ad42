package orderbook

import (
	"testing"

	"matchbook/domain/num"
)

func testOrder(id string, qty string) *Order {
	return &Order{
		ID:       id,
		Symbol:   "BTC-USDT",
		Side:     SideBuy,
		Type:     TypeLimit,
		Quantity: num.MustParse(qty),
		Price:    num.MustParse("100"),
		Status:   StatusPending,
	}
}

func TestLevelFIFO(t *testing.T) {
	lvl := &PriceLevel{Price: num.MustParse("100")}
	a := testOrder("a", "1")
	b := testOrder("b", "2")
	lvl.Enqueue(a)
	lvl.Enqueue(b)

	if lvl.Head() != a {
		t.Error("head should be the oldest order")
	}
	if got := lvl.PopHead(); got != a {
		t.Error("pop should return the oldest order")
	}
	if lvl.Head() != b {
		t.Error("head should advance to the next order")
	}
}

func TestLevelTotalQty(t *testing.T) {
	lvl := &PriceLevel{Price: num.MustParse("100")}
	lvl.Enqueue(testOrder("a", "1.5"))
	lvl.Enqueue(testOrder("b", "2.5"))

	if !lvl.TotalQty.Equal(num.MustParse("4")) {
		t.Errorf("expected total 4, got %s", lvl.TotalQty)
	}
	lvl.reduce(num.MustParse("0.5"))
	if !lvl.TotalQty.Equal(num.MustParse("3.5")) {
		t.Errorf("expected total 3.5 after fill, got %s", lvl.TotalQty)
	}
}

func TestLevelRemoveMiddle(t *testing.T) {
	lvl := &PriceLevel{Price: num.MustParse("100")}
	a := testOrder("a", "1")
	b := testOrder("b", "1")
	c := testOrder("c", "1")
	lvl.Enqueue(a)
	lvl.Enqueue(b)
	lvl.Enqueue(c)

	lvl.Remove(b)
	if lvl.OrderCount != 2 {
		t.Errorf("expected 2 orders, got %d", lvl.OrderCount)
	}
	if lvl.Head() != a || lvl.Head().Next() != c {
		t.Error("removal should splice the chain around b")
	}
	if !lvl.TotalQty.Equal(num.MustParse("2")) {
		t.Errorf("expected total 2, got %s", lvl.TotalQty)
	}
}

func TestLevelEmpty(t *testing.T) {
	lvl := &PriceLevel{Price: num.MustParse("100")}
	if !lvl.Empty() {
		t.Error("new level should be empty")
	}
	a := testOrder("a", "1")
	lvl.Enqueue(a)
	lvl.Remove(a)
	if !lvl.Empty() {
		t.Error("level should be empty after removing its only order")
	}
	if !lvl.TotalQty.IsZero() {
		t.Errorf("expected zero total, got %s", lvl.TotalQty)
	}
}
