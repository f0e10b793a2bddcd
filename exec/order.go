// Package exec decides whether and at what price a hypothetical order fills
// against a single OHLC bar. The model is bar-resolution only: an order that
// does not trigger within its bar expires, it is never carried forward.
package exec

import (
	"fmt"
	"time"
)

// Side is the direction of an order or fill.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderType selects the trigger rule applied to the bar.
type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
	Stop   OrderType = "STOP"
)

// Order is an immutable intent produced by a strategy for one bar. LimitPrice
// and StopPrice are NaN-free: they are only read for the matching type.
type Order struct {
	Time       time.Time
	Symbol     string
	Side       Side
	Qty        float64
	Type       OrderType
	LimitPrice float64
	StopPrice  float64
	Tag        string
}

// MarketOrder builds a market order, the common case for strategies.
func MarketOrder(ts time.Time, symbol string, side Side, qty float64, tag string) Order {
	return Order{Time: ts, Symbol: symbol, Side: side, Qty: qty, Type: Market, Tag: tag}
}

// Validate reports configuration errors in the order itself. Trigger and
// constraint outcomes are not validation failures; they simply yield no fill.
func (o Order) Validate() error {
	switch o.Side {
	case Buy, Sell:
	default:
		return fmt.Errorf("order %s: unknown side %q", o.Symbol, o.Side)
	}
	switch o.Type {
	case Market, Limit, Stop:
	default:
		return fmt.Errorf("order %s: unknown type %q", o.Symbol, o.Type)
	}
	return nil
}

// Fill is the realized execution of an order against one bar. At most one
// fill is produced per order.
type Fill struct {
	Time         time.Time
	Symbol       string
	Side         Side
	Qty          float64
	Price        float64
	Commission   float64
	SlippageCost float64
	Tag          string
}

// SignedQty returns the position delta of the fill (negative for sells).
func (f Fill) SignedQty() float64 {
	if f.Side == Sell {
		return -f.Qty
	}
	return f.Qty
}
