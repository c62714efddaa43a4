package port

import (
	"context"

	"tokenscout/internal/domain/model"
)

// TradeFeed returns the most recent trade records for newly-created tokens,
// newest first. A feed-level failure (transport, auth, query) is returned as
// an error with no partial result.
type TradeFeed interface {
	RecentTrades(ctx context.Context, limit int) ([]model.TradeRecord, error)
}
