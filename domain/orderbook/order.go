package orderbook

import (
	"fmt"
	"time"

	"matchbook/domain/num"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide converts wire input into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBuy, SideSell:
		return Side(s), nil
	}
	return "", fmt.Errorf("invalid side %q", s)
}

// Opposite returns the side an order matches against.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType selects the matching protocol for an order.
type OrderType string

const (
	TypeMarket OrderType = "market"
	TypeLimit  OrderType = "limit"
	TypeIOC    OrderType = "ioc"
	TypeFOK    OrderType = "fok"
)

// ParseOrderType converts wire input into an OrderType.
func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(s) {
	case TypeMarket, TypeLimit, TypeIOC, TypeFOK:
		return OrderType(s), nil
	}
	return "", fmt.Errorf("invalid order type %q", s)
}

// RequiresPrice reports whether the type carries a limit price.
func (t OrderType) RequiresPrice() bool {
	return t == TypeLimit || t == TypeIOC || t == TypeFOK
}

// Status tracks an order through its lifecycle.
type Status string

const (
	StatusPending         Status = "pending"
	StatusPartiallyFilled Status = "partially_filled"
	StatusFilled          Status = "filled"
	StatusCancelled       Status = "cancelled"
	StatusRejected        Status = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusRejected
}

// Order is a live order inside the engine. Orders are mutated only
// under the owning book's guard; everything handed outward is a
// detached Snapshot.
type Order struct {
	ID        string    `json:"order_id"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Type      OrderType `json:"order_type"`
	Quantity  num.D     `json:"quantity"`
	Price     num.D     `json:"price"`
	Filled    num.D     `json:"filled_quantity"`
	AvgPrice  num.D     `json:"average_price"`
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`

	next *Order
	prev *Order
}

// Remaining is the open quantity still on the order.
func (o *Order) Remaining() num.D { return o.Quantity.Sub(o.Filled) }

// IsFilled reports whether no open quantity remains.
func (o *Order) IsFilled() bool { return o.Remaining().IsZero() }

// Next walks the FIFO chain inside a price level.
func (o *Order) Next() *Order { return o.next }

// Snapshot returns a detached copy safe to hand outside the guard.
func (o *Order) Snapshot() Order {
	c := *o
	c.next, c.prev = nil, nil
	return c
}

// applyFill records qty traded at price against the order and
// advances its status. A fill larger than the open quantity means the
// match loop is broken, so it aborts the process.
func (o *Order) applyFill(price, qty num.D) {
	if qty.GreaterThan(o.Remaining()) {
		panic(fmt.Sprintf("orderbook: fill %s exceeds remaining %s on order %s", qty, o.Remaining(), o.ID))
	}
	notional := o.AvgPrice.Mul(o.Filled).Add(price.Mul(qty))
	o.Filled = o.Filled.Add(qty)
	o.AvgPrice = notional.Div(o.Filled)
	if o.IsFilled() {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
}

// Trade is one execution between a resting maker and an incoming
// taker. Price always equals the maker's resting price.
type Trade struct {
	ID            string    `json:"trade_id"`
	Symbol        string    `json:"symbol"`
	Price         num.D     `json:"price"`
	Quantity      num.D     `json:"quantity"`
	AggressorSide Side      `json:"aggressor_side"`
	MakerOrderID  string    `json:"maker_order_id"`
	TakerOrderID  string    `json:"taker_order_id"`
	MakerSequence uint64    `json:"maker_sequence"`
	TakerSequence uint64    `json:"taker_sequence"`
	Timestamp     time.Time `json:"timestamp"`
}

// Notional is price times quantity.
func (t Trade) Notional() num.D { return t.Price.Mul(t.Quantity) }
