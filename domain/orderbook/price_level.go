package orderbook

import (
	"fmt"

	"matchbook/domain/num"
)

// PriceLevel is the FIFO queue of resting orders at one price on one
// side. TotalQty tracks the sum of open quantities, maintained on
// enqueue, fill and removal.
type PriceLevel struct {
	Price      num.D
	head       *Order
	tail       *Order
	TotalQty   num.D
	OrderCount int
}

// Enqueue appends o at the tail, preserving time priority.
func (l *PriceLevel) Enqueue(o *Order) {
	if l.head == nil {
		l.head = o
		l.tail = o
	} else {
		l.tail.next = o
		o.prev = l.tail
		l.tail = o
	}
	l.TotalQty = l.TotalQty.Add(o.Remaining())
	l.OrderCount++
}

// Head peeks the oldest resting order, nil when empty.
func (l *PriceLevel) Head() *Order { return l.head }

// Empty reports whether the queue holds no orders.
func (l *PriceLevel) Empty() bool { return l.head == nil }

// PopHead removes and returns the oldest order. The caller has
// already accounted for any fill, so only the leftover open quantity
// is subtracted.
func (l *PriceLevel) PopHead() *Order {
	o := l.head
	if o == nil {
		return nil
	}
	l.unlink(o)
	return o
}

// Remove unlinks an arbitrary order in O(1) through its intrusive
// links. Only the cancel path uses it.
func (l *PriceLevel) Remove(o *Order) {
	l.unlink(o)
}

// reduce subtracts qty filled from the head order's contribution.
func (l *PriceLevel) reduce(qty num.D) {
	l.TotalQty = l.TotalQty.Sub(qty)
	if l.TotalQty.IsNegative() {
		panic(fmt.Sprintf("orderbook: level %s quantity went negative", l.Price))
	}
}

func (l *PriceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.next, o.prev = nil, nil
	l.TotalQty = l.TotalQty.Sub(o.Remaining())
	l.OrderCount--
	if l.TotalQty.IsNegative() {
		panic(fmt.Sprintf("orderbook: level %s quantity went negative", l.Price))
	}
}

func (l *PriceLevel) String() string {
	return fmt.Sprintf("level %s qty=%s orders=%d", l.Price, l.TotalQty, l.OrderCount)
}
