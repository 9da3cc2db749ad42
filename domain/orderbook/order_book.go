package orderbook

import (
	"errors"
	"fmt"
	"time"

	"matchbook/domain/num"
)

// ErrNotFound is returned by Cancel for ids that are unknown, already
// terminal, or never rested.
var ErrNotFound = errors.New("order not found")

// Book holds both sides of one symbol plus a flat id index for O(1)
// cancel. Trade ids and timestamps come from injected funcs so the
// domain stays free of infra imports and tests stay deterministic.
type Book struct {
	symbol string

	bids *rbTree // best = max price
	asks *rbTree // best = min price

	orders map[string]*Order

	lastTrade    num.D
	hasLastTrade bool

	newTradeID func() string
	now        func() time.Time
}

// NewBook builds an empty book for symbol.
func NewBook(symbol string, newTradeID func() string, now func() time.Time) *Book {
	return &Book{
		symbol:     symbol,
		bids:       newRBTree(),
		asks:       newRBTree(),
		orders:     make(map[string]*Order),
		newTradeID: newTradeID,
		now:        now,
	}
}

// Symbol returns the symbol this book trades.
func (b *Book) Symbol() string { return b.symbol }

// HasOrder reports whether id is resting on the book.
func (b *Book) HasOrder(id string) bool {
	_, ok := b.orders[id]
	return ok
}

// Order returns a snapshot of a resting order.
func (b *Book) Order(id string) (Order, bool) {
	o, ok := b.orders[id]
	if !ok {
		return Order{}, false
	}
	return o.Snapshot(), true
}

// AddLimit matches the order against the opposite side and rests any
// residual at its limit price.
func (b *Book) AddLimit(o *Order) []Trade {
	trades := b.match(o, o.Price, true)
	if o.Remaining().IsPositive() {
		b.sideTree(o.Side).UpsertLevel(o.Price).Enqueue(o)
		b.orders[o.ID] = o
	}
	return trades
}

// MatchMarket consumes opposite liquidity until the order fills or
// the book runs dry. Residual is dropped and the order cancelled.
func (b *Book) MatchMarket(o *Order) []Trade {
	trades := b.match(o, num.Zero(), false)
	if o.Remaining().IsPositive() {
		o.Status = StatusCancelled
	}
	return trades
}

// MatchIOC runs one limit-priced match pass and discards the residual.
func (b *Book) MatchIOC(o *Order) []Trade {
	trades := b.match(o, o.Price, true)
	if o.Remaining().IsPositive() {
		o.Status = StatusCancelled
	}
	return trades
}

// MatchFOK fills the order completely or not at all. The first phase
// is a read-only probe of available quantity at acceptable prices;
// only when it covers the full order does the consuming pass run.
func (b *Book) MatchFOK(o *Order) []Trade {
	if !b.fillable(o) {
		o.Status = StatusCancelled
		return nil
	}
	trades := b.match(o, o.Price, true)
	if o.Remaining().IsPositive() {
		panic(fmt.Sprintf("orderbook: FOK order %s passed probe but did not fill", o.ID))
	}
	return trades
}

// Cancel removes a resting order, dropping its level if emptied.
func (b *Book) Cancel(id string) (Order, error) {
	o, ok := b.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	tree := b.sideTree(o.Side)
	lvl := tree.FindLevel(o.Price)
	if lvl == nil {
		panic(fmt.Sprintf("orderbook: resting order %s has no level at %s", id, o.Price))
	}
	lvl.Remove(o)
	if lvl.Empty() {
		tree.DeleteLevel(lvl.Price)
	}
	delete(b.orders, id)
	o.Status = StatusCancelled
	return o.Snapshot(), nil
}

// BBO returns the best bid and ask prices, nil when a side is empty.
func (b *Book) BBO() (bestBid, bestAsk *num.D) {
	if l := b.bids.MaxLevel(); l != nil {
		p := l.Price
		bestBid = &p
	}
	if l := b.asks.MinLevel(); l != nil {
		p := l.Price
		bestAsk = &p
	}
	return bestBid, bestAsk
}

// LastTradePrice returns the price of the most recent execution.
func (b *Book) LastTradePrice() (num.D, bool) {
	return b.lastTrade, b.hasLastTrade
}

// match is the core loop: walk the best opposite level, trade FIFO
// against its queue at the maker's price, drop emptied levels, repeat
// while the taker is marketable.
func (b *Book) match(taker *Order, limit num.D, limited bool) []Trade {
	var trades []Trade
	for taker.Remaining().IsPositive() {
		best := b.bestOpposite(taker.Side)
		if best == nil {
			break
		}
		if limited {
			if taker.Side == SideBuy && limit.LessThan(best.Price) {
				break
			}
			if taker.Side == SideSell && limit.GreaterThan(best.Price) {
				break
			}
		}

		for taker.Remaining().IsPositive() && !best.Empty() {
			maker := best.Head()
			qty := num.Min(taker.Remaining(), maker.Remaining())

			trades = append(trades, Trade{
				ID:            b.newTradeID(),
				Symbol:        b.symbol,
				Price:         best.Price,
				Quantity:      qty,
				AggressorSide: taker.Side,
				MakerOrderID:  maker.ID,
				TakerOrderID:  taker.ID,
				MakerSequence: maker.Sequence,
				TakerSequence: taker.Sequence,
				Timestamp:     b.now(),
			})

			maker.applyFill(best.Price, qty)
			taker.applyFill(best.Price, qty)
			best.reduce(qty)
			b.lastTrade = best.Price
			b.hasLastTrade = true

			if maker.IsFilled() {
				best.PopHead()
				delete(b.orders, maker.ID)
			}
		}

		if best.Empty() {
			b.sideTree(taker.Side.Opposite()).DeleteLevel(best.Price)
		}
	}
	return trades
}

// fillable walks the opposite side best-first, accumulating open
// quantity at prices acceptable to o, without mutating anything.
func (b *Book) fillable(o *Order) bool {
	need := o.Remaining()
	acc := num.Zero()
	enough := false
	if o.Side == SideBuy {
		b.asks.ForEachAscending(func(l *PriceLevel) bool {
			if l.Price.GreaterThan(o.Price) {
				return false
			}
			acc = acc.Add(l.TotalQty)
			if acc.Cmp(need) >= 0 {
				enough = true
				return false
			}
			return true
		})
	} else {
		b.bids.ForEachDescending(func(l *PriceLevel) bool {
			if l.Price.LessThan(o.Price) {
				return false
			}
			acc = acc.Add(l.TotalQty)
			if acc.Cmp(need) >= 0 {
				enough = true
				return false
			}
			return true
		})
	}
	return enough
}

func (b *Book) sideTree(s Side) *rbTree {
	if s == SideBuy {
		return b.bids
	}
	return b.asks
}

func (b *Book) bestOpposite(s Side) *PriceLevel {
	if s == SideBuy {
		return b.asks.MinLevel()
	}
	return b.bids.MaxLevel()
}
