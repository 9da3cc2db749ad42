// Package orderbook implements the per-symbol limit order book and
// the matching protocols for market, limit, IOC and FOK orders. Each
// side keeps a red-black tree of price levels; a level is an intrusive
// FIFO queue of resting orders, so price priority is O(log P) and time
// priority within a level is O(1).
//
// A Book is single-writer and deterministic: callers serialize all
// mutations (the service layer holds one guard per symbol) and the
// book itself takes no locks.
package orderbook
