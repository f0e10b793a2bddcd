package strategies

import (
	"time"

	"github.com/rustyeddy/quantsim/exec"
	"github.com/rustyeddy/quantsim/market"
)

// Noop does nothing. Baseline for wiring tests.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Prepare(s *market.Series) error { return nil }

func (Noop) OnBar(ts time.Time, ticks map[string]market.Tick, ctx *Context) ([]exec.Order, error) {
	return nil, nil
}
