package service

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"matchbook/domain/num"
	"matchbook/domain/orderbook"
	"matchbook/infra/config"
	"matchbook/infra/ident"
	"matchbook/infra/sequence"
)

// SubmitRequest is a raw submission as the transport hands it over.
// Quantity and price arrive as decimal strings; the engine owns their
// parsing so malformed values are rejected in one place.
type SubmitRequest struct {
	OrderID  string
	Symbol   string
	Type     string
	Side     string
	Quantity string
	Price    string
}

// SubmitResult reports the accepted order and the trades this
// submission produced, in emission order.
type SubmitResult struct {
	Order  orderbook.Order   `json:"order"`
	Trades []orderbook.Trade `json:"trades"`
}

// TradeHandler receives each trade in emission order.
type TradeHandler func(orderbook.Trade)

// BookUpdateHandler receives a depth snapshot after each mutation.
type BookUpdateHandler func(orderbook.DepthSnapshot)

type bookHandle struct {
	mu   sync.Mutex
	book *orderbook.Book
}

// Engine coordinates all symbols. Matching for one symbol runs under
// that book's guard; the registry has its own, never held while
// matching.
type Engine struct {
	cfg *config.Settings
	log *zap.SugaredLogger
	ids *ident.Generator
	seq *sequence.Sequencer
	now func() time.Time

	mu    sync.RWMutex
	books map[string]*bookHandle

	cbMu           sync.RWMutex
	tradeHandlers  []TradeHandler
	updateHandlers []BookUpdateHandler

	statsMu sync.Mutex
	stats   Statistics

	started time.Time
}

// New wires an engine. All collaborators are explicit; tests pass a
// seeded ident.Generator for replayable ids.
func New(cfg *config.Settings, log *zap.SugaredLogger, ids *ident.Generator, seq *sequence.Sequencer) *Engine {
	e := &Engine{
		cfg:     cfg,
		log:     log,
		ids:     ids,
		seq:     seq,
		now:     time.Now,
		books:   make(map[string]*bookHandle),
		started: time.Now(),
	}
	e.stats.Symbols = make(map[string]SymbolStatistics)
	return e
}

// OnTrade registers a trade subscriber.
func (e *Engine) OnTrade(h TradeHandler) {
	e.cbMu.Lock()
	e.tradeHandlers = append(e.tradeHandlers, h)
	e.cbMu.Unlock()
}

// OnBookUpdate registers a book-update subscriber.
func (e *Engine) OnBookUpdate(h BookUpdateHandler) {
	e.cbMu.Lock()
	e.updateHandlers = append(e.updateHandlers, h)
	e.cbMu.Unlock()
}

// Submit validates, sequences and matches one order. Validation and
// duplicate-id failures return before any book state changes.
func (e *Engine) Submit(req SubmitRequest) (*SubmitResult, error) {
	e.countReceived()

	parsed, err := e.validate(req)
	if err != nil {
		e.countRejected()
		return nil, err
	}

	h := e.handle(parsed.Symbol)

	h.mu.Lock()
	if parsed.ID != "" && h.book.HasOrder(parsed.ID) {
		h.mu.Unlock()
		e.countRejected()
		return nil, ErrDuplicateOrderID
	}
	if parsed.ID == "" {
		parsed.ID = e.ids.NewID()
	}

	o := &orderbook.Order{
		ID:        parsed.ID,
		Symbol:    parsed.Symbol,
		Side:      parsed.Side,
		Type:      parsed.Type,
		Quantity:  parsed.Quantity,
		Price:     parsed.Price,
		Sequence:  e.seq.Next(),
		Timestamp: e.now(),
		Status:    orderbook.StatusPending,
	}

	var trades []orderbook.Trade
	switch o.Type {
	case orderbook.TypeLimit:
		trades = h.book.AddLimit(o)
	case orderbook.TypeMarket:
		trades = h.book.MatchMarket(o)
	case orderbook.TypeIOC:
		trades = h.book.MatchIOC(o)
	case orderbook.TypeFOK:
		trades = h.book.MatchFOK(o)
	}
	snapshot := o.Snapshot()
	depth := h.book.Depth(e.cfg.DefaultDepth)
	h.mu.Unlock()

	e.countAccepted(parsed.Symbol, trades)
	e.dispatch(trades, depth)

	return &SubmitResult{Order: snapshot, Trades: trades}, nil
}

// Cancel removes a resting order. It is atomic with respect to
// matching on the symbol: the order is gone before any later
// submission can touch it, or the call fails with ErrNotFound.
func (e *Engine) Cancel(orderID, symbol string) (orderbook.Order, error) {
	e.mu.RLock()
	h, ok := e.books[symbol]
	e.mu.RUnlock()
	if !ok {
		return orderbook.Order{}, ErrNotFound
	}

	h.mu.Lock()
	o, err := h.book.Cancel(orderID)
	if err != nil {
		h.mu.Unlock()
		return orderbook.Order{}, err
	}
	depth := h.book.Depth(e.cfg.DefaultDepth)
	h.mu.Unlock()

	e.log.Infow("order cancelled", "order_id", orderID, "symbol", symbol)
	e.dispatch(nil, depth)
	return o, nil
}

// Order returns a snapshot of a resting order.
func (e *Engine) Order(orderID, symbol string) (orderbook.Order, error) {
	e.mu.RLock()
	h, ok := e.books[symbol]
	e.mu.RUnlock()
	if !ok {
		return orderbook.Order{}, ErrNotFound
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	o, ok := h.book.Order(orderID)
	if !ok {
		return orderbook.Order{}, ErrNotFound
	}
	return o, nil
}

// BBO returns the best bid and ask for symbol, nil when a side or the
// symbol itself is empty.
func (e *Engine) BBO(symbol string) (bestBid, bestAsk *num.D) {
	e.mu.RLock()
	h, ok := e.books[symbol]
	e.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.book.BBO()
}

// Depth returns a top-k snapshot for symbol. k < 1 uses the default.
func (e *Engine) Depth(symbol string, k int) (orderbook.DepthSnapshot, error) {
	e.mu.RLock()
	h, ok := e.books[symbol]
	e.mu.RUnlock()
	if !ok {
		return orderbook.DepthSnapshot{}, ErrNotFound
	}
	if k < 1 {
		k = e.cfg.DefaultDepth
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.book.Depth(k), nil
}

// BookStats returns the per-symbol book summary.
func (e *Engine) BookStats(symbol string) (orderbook.Stats, error) {
	e.mu.RLock()
	h, ok := e.books[symbol]
	e.mu.RUnlock()
	if !ok {
		return orderbook.Stats{}, ErrNotFound
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.book.Stats(), nil
}

// Symbols lists active symbols in lexical order.
func (e *Engine) Symbols() []string {
	e.mu.RLock()
	out := make([]string, 0, len(e.books))
	for s := range e.books {
		out = append(out, s)
	}
	e.mu.RUnlock()
	sort.Strings(out)
	return out
}

// handle resolves or lazily creates the guarded book for symbol.
func (e *Engine) handle(symbol string) *bookHandle {
	e.mu.RLock()
	h, ok := e.books[symbol]
	e.mu.RUnlock()
	if ok {
		return h
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if h, ok := e.books[symbol]; ok {
		return h
	}
	h = &bookHandle{book: orderbook.NewBook(symbol, e.ids.NewID, e.now)}
	e.books[symbol] = h
	e.log.Infow("order book created", "symbol", symbol)
	return h
}

// dispatch invokes trade callbacks in emission order, then the
// book-update callbacks once. Runs outside every guard; a panicking
// subscriber is logged and isolated.
func (e *Engine) dispatch(trades []orderbook.Trade, depth orderbook.DepthSnapshot) {
	e.cbMu.RLock()
	tradeHandlers := make([]TradeHandler, len(e.tradeHandlers))
	copy(tradeHandlers, e.tradeHandlers)
	updateHandlers := make([]BookUpdateHandler, len(e.updateHandlers))
	copy(updateHandlers, e.updateHandlers)
	e.cbMu.RUnlock()

	for _, t := range trades {
		for _, h := range tradeHandlers {
			e.safely("trade", func() { h(t) })
		}
	}
	for _, h := range updateHandlers {
		e.safely("book_update", func() { h(depth) })
	}
}

func (e *Engine) safely(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warnw("subscriber callback panicked", "kind", kind, "panic", r)
		}
	}()
	fn()
}
