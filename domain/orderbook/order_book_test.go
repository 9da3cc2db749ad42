package orderbook

import (
	"fmt"
	"testing"
	"time"

	"matchbook/domain/num"
)

type fixture struct {
	book *Book
	seq  uint64
}

func newFixture() *fixture {
	n := 0
	book := NewBook("BTC-USDT",
		func() string { n++; return fmt.Sprintf("t%d", n) },
		func() time.Time { return time.Unix(1700000000, 0).UTC() })
	return &fixture{book: book}
}

func (f *fixture) newOrder(id string, side Side, typ OrderType, price, qty string) *Order {
	f.seq++
	o := &Order{
		ID:       id,
		Symbol:   "BTC-USDT",
		Side:     side,
		Type:     typ,
		Quantity: num.MustParse(qty),
		Sequence: f.seq,
		Status:   StatusPending,
	}
	if price != "" {
		o.Price = num.MustParse(price)
	}
	return o
}

func (f *fixture) limit(id string, side Side, price, qty string) ([]Trade, *Order) {
	o := f.newOrder(id, side, TypeLimit, price, qty)
	return f.book.AddLimit(o), o
}

func (f *fixture) market(id string, side Side, qty string) ([]Trade, *Order) {
	o := f.newOrder(id, side, TypeMarket, "", qty)
	return f.book.MatchMarket(o), o
}

func (f *fixture) ioc(id string, side Side, price, qty string) ([]Trade, *Order) {
	o := f.newOrder(id, side, TypeIOC, price, qty)
	return f.book.MatchIOC(o), o
}

func (f *fixture) fok(id string, side Side, price, qty string) ([]Trade, *Order) {
	o := f.newOrder(id, side, TypeFOK, price, qty)
	return f.book.MatchFOK(o), o
}

func expectTrade(t *testing.T, tr Trade, price, qty string) {
	t.Helper()
	if !tr.Price.Equal(num.MustParse(price)) {
		t.Errorf("trade price: expected %s, got %s", price, tr.Price)
	}
	if !tr.Quantity.Equal(num.MustParse(qty)) {
		t.Errorf("trade quantity: expected %s, got %s", qty, tr.Quantity)
	}
}

func TestRestingThenCrossing(t *testing.T) {
	f := newFixture()
	f.limit("s1", SideSell, "50010", "1.0")
	f.limit("s2", SideSell, "50020", "2.0")
	trades, o := f.limit("b1", SideBuy, "50020", "2.5")

	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	expectTrade(t, trades[0], "50010", "1.0")
	expectTrade(t, trades[1], "50020", "1.5")
	if o.Status != StatusFilled {
		t.Errorf("taker should be filled, got %s", o.Status)
	}

	bid, ask := f.book.BBO()
	if bid != nil {
		t.Errorf("expected no best bid, got %s", bid)
	}
	if ask == nil || !ask.Equal(num.MustParse("50020")) {
		t.Errorf("expected best ask 50020, got %v", ask)
	}
	depth := f.book.Depth(10)
	if len(depth.Asks) != 1 || !depth.Asks[0].Quantity.Equal(num.MustParse("0.5")) {
		t.Errorf("expected 0.5 resting at 50020, got %+v", depth.Asks)
	}
}

func TestTimePriorityWithinLevel(t *testing.T) {
	f := newFixture()
	f.limit("A", SideBuy, "50000", "1.0")
	f.limit("B", SideBuy, "50000", "1.0")
	trades, _ := f.limit("s", SideSell, "50000", "1.5")

	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].MakerOrderID != "A" {
		t.Errorf("first fill should hit A, got %s", trades[0].MakerOrderID)
	}
	expectTrade(t, trades[0], "50000", "1.0")
	if trades[1].MakerOrderID != "B" {
		t.Errorf("second fill should hit B, got %s", trades[1].MakerOrderID)
	}
	expectTrade(t, trades[1], "50000", "0.5")

	rest, ok := f.book.Order("B")
	if !ok {
		t.Fatal("B should still rest")
	}
	if !rest.Remaining().Equal(num.MustParse("0.5")) {
		t.Errorf("B remaining: expected 0.5, got %s", rest.Remaining())
	}
}

func TestFOKUnfillable(t *testing.T) {
	f := newFixture()
	f.limit("b1", SideBuy, "100", "1.0")
	f.limit("b2", SideBuy, "99", "0.5")
	before := f.book.Depth(10)

	trades, o := f.fok("k", SideSell, "99", "2.0")
	if len(trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(trades))
	}
	if o.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", o.Status)
	}
	if !o.Filled.IsZero() {
		t.Errorf("expected zero fills, got %s", o.Filled)
	}

	after := f.book.Depth(10)
	if len(after.Bids) != len(before.Bids) {
		t.Fatal("book should be unchanged")
	}
	for i := range before.Bids {
		if !after.Bids[i].Quantity.Equal(before.Bids[i].Quantity) {
			t.Error("book should be unchanged")
		}
	}
}

func TestFOKExactFill(t *testing.T) {
	f := newFixture()
	f.limit("b1", SideBuy, "100", "1.0")
	f.limit("b2", SideBuy, "99", "0.5")

	trades, o := f.fok("k", SideSell, "99", "1.5")
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	expectTrade(t, trades[0], "100", "1.0")
	expectTrade(t, trades[1], "99", "0.5")
	if o.Status != StatusFilled {
		t.Errorf("expected filled, got %s", o.Status)
	}

	bid, _ := f.book.BBO()
	if bid != nil {
		t.Errorf("both bid levels should be gone, got %s", bid)
	}
}

func TestIOCPartial(t *testing.T) {
	f := newFixture()
	f.limit("s1", SideSell, "101", "0.4")

	trades, o := f.ioc("i", SideBuy, "101", "1.0")
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	expectTrade(t, trades[0], "101", "0.4")
	if o.Status != StatusCancelled {
		t.Errorf("IOC residual should cancel, got %s", o.Status)
	}
	if f.book.HasOrder("i") {
		t.Error("IOC residual must not rest")
	}
	_, ask := f.book.BBO()
	if ask != nil {
		t.Errorf("expected no ask, got %s", ask)
	}
}

func TestCancelDuringLife(t *testing.T) {
	f := newFixture()
	f.limit("X", SideBuy, "100", "1.0")
	f.limit("Y", SideBuy, "100", "2.0")

	if _, err := f.book.Cancel("X"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	trades, _ := f.limit("s", SideSell, "100", "1.5")
	if len(trades) != 1 {
		t.Fatalf("expected single trade, got %d", len(trades))
	}
	expectTrade(t, trades[0], "100", "1.5")
	if trades[0].MakerOrderID != "Y" {
		t.Errorf("maker should be Y, got %s", trades[0].MakerOrderID)
	}
	rest, _ := f.book.Order("Y")
	if !rest.Remaining().Equal(num.MustParse("0.5")) {
		t.Errorf("Y remaining: expected 0.5, got %s", rest.Remaining())
	}
}

func TestMarketOrderEmptyBook(t *testing.T) {
	f := newFixture()
	trades, o := f.market("m", SideBuy, "1.0")
	if len(trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(trades))
	}
	if o.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", o.Status)
	}
}

func TestMarketOrderPartialLiquidity(t *testing.T) {
	f := newFixture()
	f.limit("s1", SideSell, "101", "0.7")
	trades, o := f.market("m", SideBuy, "2.0")

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	expectTrade(t, trades[0], "101", "0.7")
	if o.Status != StatusCancelled {
		t.Errorf("partially filled market order should cancel, got %s", o.Status)
	}
	if f.book.HasOrder("m") {
		t.Error("market residual must not rest")
	}
}

func TestMakerPriceRule(t *testing.T) {
	f := newFixture()
	f.limit("s1", SideSell, "100", "1.0")
	trades, _ := f.limit("b1", SideBuy, "105", "1.0")

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	expectTrade(t, trades[0], "100", "1.0")
	if trades[0].AggressorSide != SideBuy {
		t.Errorf("aggressor should be buy, got %s", trades[0].AggressorSide)
	}
}

func TestLimitCrossesMultipleLevels(t *testing.T) {
	f := newFixture()
	f.limit("s1", SideSell, "102", "1.0")
	f.limit("s2", SideSell, "101", "1.0")
	f.limit("s3", SideSell, "103", "1.0")
	trades, o := f.limit("b", SideBuy, "103", "3.0")

	if len(trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(trades))
	}
	expectTrade(t, trades[0], "101", "1.0")
	expectTrade(t, trades[1], "102", "1.0")
	expectTrade(t, trades[2], "103", "1.0")
	if o.Status != StatusFilled {
		t.Errorf("expected filled, got %s", o.Status)
	}
}

func TestNoCrossedBookAtRest(t *testing.T) {
	f := newFixture()
	f.limit("b", SideBuy, "99", "1.0")
	f.limit("s", SideSell, "101", "1.0")
	f.limit("b2", SideBuy, "100", "1.0")
	f.limit("s2", SideSell, "100.5", "1.0")

	bid, ask := f.book.BBO()
	if bid == nil || ask == nil {
		t.Fatal("both sides should be populated")
	}
	if !bid.LessThan(*ask) {
		t.Errorf("crossed book at rest: bid=%s ask=%s", bid, ask)
	}
}

func TestAddThenCancelRestoresBook(t *testing.T) {
	f := newFixture()
	f.limit("b1", SideBuy, "99", "1.0")
	f.limit("s1", SideSell, "101", "2.0")
	before := f.book.Depth(10)

	f.limit("x", SideBuy, "100", "1.0")
	if _, err := f.book.Cancel("x"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	after := f.book.Depth(10)
	if len(after.Bids) != len(before.Bids) || len(after.Asks) != len(before.Asks) {
		t.Fatal("depth shape changed")
	}
	for i := range before.Bids {
		if !after.Bids[i].Price.Equal(before.Bids[i].Price) || !after.Bids[i].Quantity.Equal(before.Bids[i].Quantity) {
			t.Error("bid depth changed")
		}
	}
	bid, ask := f.book.BBO()
	if !bid.Equal(num.MustParse("99")) || !ask.Equal(num.MustParse("101")) {
		t.Errorf("BBO changed: %s / %s", bid, ask)
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	f := newFixture()
	if _, err := f.book.Cancel("nope"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// a fully filled order is no longer cancellable
	f.limit("s", SideSell, "100", "1.0")
	f.limit("b", SideBuy, "100", "1.0")
	if _, err := f.book.Cancel("s"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for terminal order, got %v", err)
	}
}

func TestConservationOfQuantity(t *testing.T) {
	f := newFixture()
	f.limit("s1", SideSell, "100", "1.2")
	f.limit("s2", SideSell, "100", "0.8")
	trades, o := f.limit("b", SideBuy, "100", "1.5")

	sum := num.Zero()
	for _, tr := range trades {
		sum = sum.Add(tr.Quantity)
	}
	if !sum.Equal(o.Filled) {
		t.Errorf("taker fills %s != trade sum %s", o.Filled, sum)
	}
	s2, _ := f.book.Order("s2")
	makerFilled := num.MustParse("1.2").Add(s2.Filled)
	if !makerFilled.Equal(sum) {
		t.Errorf("maker fills %s != trade sum %s", makerFilled, sum)
	}
}

func TestLevelQuantityMatchesOrders(t *testing.T) {
	f := newFixture()
	f.limit("a", SideBuy, "100", "1.0")
	f.limit("b", SideBuy, "100", "2.0")
	f.limit("s", SideSell, "100", "0.5")

	depth := f.book.Depth(1)
	if len(depth.Bids) != 1 {
		t.Fatal("expected one bid level")
	}
	a, _ := f.book.Order("a")
	b, _ := f.book.Order("b")
	want := a.Remaining().Add(b.Remaining())
	if !depth.Bids[0].Quantity.Equal(want) {
		t.Errorf("level quantity %s != sum of open quantities %s", depth.Bids[0].Quantity, want)
	}
}

func TestMakerSequenceMonotonicWithinLevel(t *testing.T) {
	f := newFixture()
	f.limit("a", SideBuy, "100", "0.5")
	f.limit("b", SideBuy, "100", "0.5")
	f.limit("c", SideBuy, "100", "0.5")
	trades, _ := f.limit("s", SideSell, "100", "1.5")

	if len(trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(trades))
	}
	for i := 1; i < len(trades); i++ {
		if trades[i-1].MakerSequence > trades[i].MakerSequence {
			t.Errorf("maker sequence regressed: %d then %d", trades[i-1].MakerSequence, trades[i].MakerSequence)
		}
	}
}

func TestDepthTopK(t *testing.T) {
	f := newFixture()
	for i := 0; i < 5; i++ {
		f.limit(fmt.Sprintf("b%d", i), SideBuy, fmt.Sprintf("%d", 95+i), "1.0")
		f.limit(fmt.Sprintf("s%d", i), SideSell, fmt.Sprintf("%d", 105+i), "1.0")
	}

	depth := f.book.Depth(3)
	if len(depth.Bids) != 3 || len(depth.Asks) != 3 {
		t.Fatalf("expected 3 levels per side, got %d/%d", len(depth.Bids), len(depth.Asks))
	}
	if !depth.Bids[0].Price.Equal(num.MustParse("99")) {
		t.Errorf("best bid first: expected 99, got %s", depth.Bids[0].Price)
	}
	if !depth.Asks[0].Price.Equal(num.MustParse("105")) {
		t.Errorf("best ask first: expected 105, got %s", depth.Asks[0].Price)
	}
	for i := 1; i < 3; i++ {
		if !depth.Bids[i].Price.LessThan(depth.Bids[i-1].Price) {
			t.Error("bids should descend")
		}
		if !depth.Asks[i-1].Price.LessThan(depth.Asks[i].Price) {
			t.Error("asks should ascend")
		}
	}
}

func TestLastTradePrice(t *testing.T) {
	f := newFixture()
	if _, ok := f.book.LastTradePrice(); ok {
		t.Error("fresh book should have no last trade")
	}
	f.limit("s", SideSell, "100", "1.0")
	f.limit("b", SideBuy, "100", "1.0")
	p, ok := f.book.LastTradePrice()
	if !ok || !p.Equal(num.MustParse("100")) {
		t.Errorf("expected last trade 100, got %s (%v)", p, ok)
	}
}

func TestAveragePriceAcrossLevels(t *testing.T) {
	f := newFixture()
	f.limit("s1", SideSell, "100", "1.0")
	f.limit("s2", SideSell, "110", "1.0")
	_, o := f.limit("b", SideBuy, "110", "2.0")

	if !o.AvgPrice.Equal(num.MustParse("105")) {
		t.Errorf("expected average 105, got %s", o.AvgPrice)
	}
}
