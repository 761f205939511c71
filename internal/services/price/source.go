package price

import "context"

// Source resolves a token symbol to its USD unit price. Implementations are
// thin HTTP clients; retry and caching live above this boundary.
type Source interface {
	Name() string
	UnitPriceUsd(ctx context.Context, symbol string) (float64, error)
}
