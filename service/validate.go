package service

import (
	"matchbook/domain/num"
	"matchbook/domain/orderbook"
)

type parsedRequest struct {
	ID       string
	Symbol   string
	Type     orderbook.OrderType
	Side     orderbook.Side
	Quantity num.D
	Price    num.D
}

// validate parses and bounds-checks a submission without touching any
// book state.
func (e *Engine) validate(req SubmitRequest) (*parsedRequest, error) {
	if req.Symbol == "" {
		return nil, invalidf("symbol", "must not be empty")
	}

	typ, err := orderbook.ParseOrderType(req.Type)
	if err != nil {
		return nil, invalidf("order_type", "%v", err)
	}
	side, err := orderbook.ParseSide(req.Side)
	if err != nil {
		return nil, invalidf("side", "%v", err)
	}

	qty, err := num.Parse(req.Quantity, e.cfg.DecimalScale)
	if err != nil {
		return nil, invalidf("quantity", "%v", err)
	}
	if !qty.IsPositive() {
		return nil, invalidf("quantity", "must be positive, got %s", qty)
	}
	if qty.LessThan(e.cfg.MinQuantity) || qty.GreaterThan(e.cfg.MaxQuantity) {
		return nil, invalidf("quantity", "%s outside [%s, %s]", qty, e.cfg.MinQuantity, e.cfg.MaxQuantity)
	}

	price := num.Zero()
	if typ.RequiresPrice() {
		if req.Price == "" {
			return nil, invalidf("price", "required for %s orders", typ)
		}
		price, err = num.Parse(req.Price, e.cfg.DecimalScale)
		if err != nil {
			return nil, invalidf("price", "%v", err)
		}
		if !price.IsPositive() {
			return nil, invalidf("price", "must be positive, got %s", price)
		}
		if price.LessThan(e.cfg.MinPrice) || price.GreaterThan(e.cfg.MaxPrice) {
			return nil, invalidf("price", "%s outside [%s, %s]", price, e.cfg.MinPrice, e.cfg.MaxPrice)
		}
	}

	if req.OrderID == "" && !e.cfg.AssignIDs {
		return nil, invalidf("order_id", "required when id assignment is disabled")
	}

	return &parsedRequest{
		ID:       req.OrderID,
		Symbol:   req.Symbol,
		Type:     typ,
		Side:     side,
		Quantity: qty,
		Price:    price,
	}, nil
}
