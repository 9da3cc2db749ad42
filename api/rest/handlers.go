// Package rest exposes the engine over HTTP.
package rest

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"matchbook/infra/config"
	"matchbook/service"
)

type handlers struct {
	eng *service.Engine
	cfg *config.Settings
	log *zap.SugaredLogger
}

// Register mounts all routes on app.
func Register(app *fiber.App, eng *service.Engine, cfg *config.Settings, log *zap.SugaredLogger) {
	h := &handlers{eng: eng, cfg: cfg, log: log}

	app.Get("/health", h.health)
	app.Post("/orders", h.placeOrder)
	app.Get("/orders/:id", h.getOrder)
	app.Delete("/orders/:id", h.cancelOrder)
	app.Get("/orderbook/:symbol", h.getOrderBook)
	app.Get("/symbols", h.getSymbols)
	app.Get("/statistics", h.getStatistics)
}

func (h *handlers) health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (h *handlers) placeOrder(c fiber.Ctx) error {
	var body PlaceOrderSchema
	if err := c.Bind().Body(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "request body must be JSON"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	res, err := h.eng.Submit(service.SubmitRequest{
		OrderID:  body.OrderID,
		Symbol:   body.Symbol,
		Type:     body.OrderType,
		Side:     body.Side,
		Quantity: body.Quantity,
		Price:    body.Price,
	})
	if err != nil {
		return h.submitError(c, err)
	}
	return c.JSON(orderResponse(res.Order, res.Trades))
}

func (h *handlers) submitError(c fiber.Ctx, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "rejected",
			"error":  verr.Reason,
			"field":  verr.Field,
		})
	case errors.Is(err, service.ErrDuplicateOrderID):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"status": "rejected",
			"error":  err.Error(),
		})
	default:
		h.log.Errorw("order submission failed", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}

func (h *handlers) getOrder(c fiber.Ctx) error {
	symbol := c.Query("symbol")
	if symbol == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "symbol parameter is required"})
	}
	o, err := h.eng.Order(c.Params("id"), symbol)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
	}
	return c.JSON(orderResponse(o, nil))
}

func (h *handlers) cancelOrder(c fiber.Ctx) error {
	var body CancelOrderSchema
	if err := c.Bind().Body(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "request body must be JSON"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	o, err := h.eng.Cancel(c.Params("id"), body.Symbol)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found or already terminal"})
	}
	return c.JSON(orderResponse(o, nil))
}

func (h *handlers) getOrderBook(c fiber.Ctx) error {
	symbol := c.Params("symbol")
	depth, err := strconv.Atoi(c.Query("depth", strconv.Itoa(h.cfg.DefaultDepth)))
	if err != nil || depth < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "depth must be a positive integer"})
	}

	snap, err := h.eng.Depth(symbol, depth)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order book not found"})
	}
	stats, _ := h.eng.BookStats(symbol)
	return c.JSON(fiber.Map{
		"symbol":     snap.Symbol,
		"timestamp":  snap.Timestamp,
		"best_bid":   snap.BestBid,
		"best_ask":   snap.BestAsk,
		"bids":       snap.Bids,
		"asks":       snap.Asks,
		"statistics": stats,
	})
}

func (h *handlers) getSymbols(c fiber.Ctx) error {
	symbols := h.eng.Symbols()
	return c.JSON(fiber.Map{
		"symbols": symbols,
		"count":   len(symbols),
	})
}

func (h *handlers) getStatistics(c fiber.Ctx) error {
	return c.JSON(h.eng.Statistics())
}
