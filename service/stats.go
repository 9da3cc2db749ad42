package service

import (
	"time"

	"matchbook/domain/num"
	"matchbook/domain/orderbook"
)

// SymbolStatistics is the per-symbol slice of the engine counters.
type SymbolStatistics struct {
	Orders uint64 `json:"orders"`
	Trades uint64 `json:"trades"`
	Volume num.D  `json:"volume"`
}

// Statistics is a snapshot of the engine counters. Volume is the sum
// of price times quantity over all trades.
type Statistics struct {
	UptimeSeconds   float64                     `json:"uptime_seconds"`
	OrdersReceived  uint64                      `json:"orders_received"`
	OrdersAccepted  uint64                      `json:"orders_accepted"`
	OrdersRejected  uint64                      `json:"orders_rejected"`
	TradesEmitted   uint64                      `json:"trades_emitted"`
	TotalVolume     num.D                       `json:"total_volume"`
	ActiveSymbols   []string                    `json:"active_symbols"`
	OrdersPerSecond float64                     `json:"orders_per_second"`
	Symbols         map[string]SymbolStatistics `json:"per_symbol"`
}

func (e *Engine) countReceived() {
	e.statsMu.Lock()
	e.stats.OrdersReceived++
	e.statsMu.Unlock()
}

func (e *Engine) countRejected() {
	e.statsMu.Lock()
	e.stats.OrdersRejected++
	e.statsMu.Unlock()
}

func (e *Engine) countAccepted(symbol string, trades []orderbook.Trade) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	e.stats.OrdersAccepted++
	e.stats.TradesEmitted += uint64(len(trades))

	sym := e.stats.Symbols[symbol]
	sym.Orders++
	sym.Trades += uint64(len(trades))
	for _, t := range trades {
		n := t.Notional()
		e.stats.TotalVolume = e.stats.TotalVolume.Add(n)
		sym.Volume = sym.Volume.Add(n)
	}
	e.stats.Symbols[symbol] = sym
}

// Statistics returns a consistent copy of the counters.
func (e *Engine) Statistics() Statistics {
	e.statsMu.Lock()
	out := e.stats
	out.Symbols = make(map[string]SymbolStatistics, len(e.stats.Symbols))
	for k, v := range e.stats.Symbols {
		out.Symbols[k] = v
	}
	e.statsMu.Unlock()

	uptime := time.Since(e.started)
	out.UptimeSeconds = uptime.Seconds()
	out.ActiveSymbols = e.Symbols()
	if secs := uptime.Seconds(); secs > 0 {
		out.OrdersPerSecond = float64(out.OrdersReceived) / secs
	}
	return out
}
