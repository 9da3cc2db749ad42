package rest

import (
	"time"

	"github.com/go-playground/validator/v10"

	"matchbook/domain/num"
	"matchbook/domain/orderbook"
)

var validate = validator.New()

type PlaceOrderSchema struct {
	OrderID   string `json:"order_id"`
	Symbol    string `json:"symbol" validate:"required"`
	OrderType string `json:"order_type" validate:"required,oneof=market limit ioc fok"`
	Side      string `json:"side" validate:"required,oneof=buy sell"`
	Quantity  string `json:"quantity" validate:"required"`
	Price     string `json:"price"`
}

type CancelOrderSchema struct {
	Symbol string `json:"symbol" validate:"required"`
}

type OrderResponse struct {
	OrderID           string            `json:"order_id"`
	Symbol            string            `json:"symbol"`
	OrderType         string            `json:"order_type"`
	Side              string            `json:"side"`
	Status            string            `json:"status"`
	Quantity          num.D             `json:"quantity"`
	Price             num.D             `json:"price"`
	FilledQuantity    num.D             `json:"filled_quantity"`
	RemainingQuantity num.D             `json:"remaining_quantity"`
	AveragePrice      num.D             `json:"average_price"`
	Timestamp         time.Time         `json:"timestamp"`
	Trades            []orderbook.Trade `json:"trades,omitempty"`
}

func orderResponse(o orderbook.Order, trades []orderbook.Trade) OrderResponse {
	return OrderResponse{
		OrderID:           o.ID,
		Symbol:            o.Symbol,
		OrderType:         string(o.Type),
		Side:              string(o.Side),
		Status:            string(o.Status),
		Quantity:          o.Quantity,
		Price:             o.Price,
		FilledQuantity:    o.Filled,
		RemainingQuantity: o.Remaining(),
		AveragePrice:      o.AvgPrice,
		Timestamp:         o.Timestamp,
		Trades:            trades,
	}
}
