package walletinterfaces

import "context"

// CurrencyLookup is the host's currency registry.
type CurrencyLookup interface {
	Currency(symbol string) (Currency, bool)
}

// OutcomeSink persists terminal withdrawal outcomes after a batch completes.
type OutcomeSink interface {
	Record(ctx context.Context, c Currency, outcomes []Outcome) error
}
