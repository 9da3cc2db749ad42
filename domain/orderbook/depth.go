package orderbook

import (
	"encoding/json"
	"time"

	"matchbook/domain/num"
)

// Level is one (price, open quantity) pair in a depth snapshot. It
// serializes as a ["price", "quantity"] pair to match the feed format.
type Level struct {
	Price    num.D
	Quantity num.D
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{l.Price.String(), l.Quantity.String()})
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var pair [2]string
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	p, err := num.Parse(pair[0], num.MinScale)
	if err != nil {
		return err
	}
	q, err := num.Parse(pair[1], num.MinScale)
	if err != nil {
		return err
	}
	l.Price, l.Quantity = p, q
	return nil
}

// DepthSnapshot is a top-k view of both sides, best first. It doubles
// as the book-update event payload.
type DepthSnapshot struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	BestBid   *num.D    `json:"best_bid"`
	BestAsk   *num.D    `json:"best_ask"`
	Bids      []Level   `json:"bids"`
	Asks      []Level   `json:"asks"`
}

// Depth collects up to k levels per side in price priority. Orders
// within a level are not expanded.
func (b *Book) Depth(k int) DepthSnapshot {
	snap := DepthSnapshot{
		Symbol:    b.symbol,
		Timestamp: b.now(),
		Bids:      make([]Level, 0, k),
		Asks:      make([]Level, 0, k),
	}
	snap.BestBid, snap.BestAsk = b.BBO()

	b.bids.ForEachDescending(func(l *PriceLevel) bool {
		snap.Bids = append(snap.Bids, Level{Price: l.Price, Quantity: l.TotalQty})
		return len(snap.Bids) < k
	})
	b.asks.ForEachAscending(func(l *PriceLevel) bool {
		snap.Asks = append(snap.Asks, Level{Price: l.Price, Quantity: l.TotalQty})
		return len(snap.Asks) < k
	})
	return snap
}

// Stats summarizes one book for the statistics endpoint.
type Stats struct {
	Symbol         string `json:"symbol"`
	BestBid        *num.D `json:"best_bid"`
	BestAsk        *num.D `json:"best_ask"`
	Spread         *num.D `json:"spread"`
	TotalBidQty    num.D  `json:"total_bid_quantity"`
	TotalAskQty    num.D  `json:"total_ask_quantity"`
	BidLevels      int    `json:"bid_levels"`
	AskLevels      int    `json:"ask_levels"`
	OpenOrders     int    `json:"open_orders"`
	LastTradePrice *num.D `json:"last_trade_price"`
}

// Stats walks both sides totaling open quantity. Query path only.
func (b *Book) Stats() Stats {
	s := Stats{
		Symbol:     b.symbol,
		BidLevels:  b.bids.Size(),
		AskLevels:  b.asks.Size(),
		OpenOrders: len(b.orders),
	}
	s.BestBid, s.BestAsk = b.BBO()
	if s.BestBid != nil && s.BestAsk != nil {
		sp := s.BestAsk.Sub(*s.BestBid)
		s.Spread = &sp
	}
	b.bids.ForEachDescending(func(l *PriceLevel) bool {
		s.TotalBidQty = s.TotalBidQty.Add(l.TotalQty)
		return true
	})
	b.asks.ForEachAscending(func(l *PriceLevel) bool {
		s.TotalAskQty = s.TotalAskQty.Add(l.TotalQty)
		return true
	})
	if p, ok := b.LastTradePrice(); ok {
		s.LastTradePrice = &p
	}
	return s
}
