package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"tokenscout/internal/concurrency/worker"
	"tokenscout/internal/domain/model"
	"tokenscout/internal/domain/port"
)

// DiscoveryConfig holds the normalization constants. All of them depend on
// the target protocol's economics and are injected from configuration.
type DiscoveryConfig struct {
	BatchSize           int
	TotalSupply         float64
	GraduationThreshold float64
	MarketCapMin        float64
	MarketCapMax        float64
	ResolverWorkers     int
}

// DiscoveryService turns raw feed trades into a normalized, deduplicated,
// band-filtered token batch sorted by market cap descending.
type DiscoveryService struct {
	feed     port.TradeFeed
	resolver port.MetadataResolver
	cfg      DiscoveryConfig
	logger   *zap.Logger
}

func NewDiscoveryService(feed port.TradeFeed, resolver port.MetadataResolver, cfg DiscoveryConfig, logger *zap.Logger) *DiscoveryService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.ResolverWorkers <= 0 {
		cfg.ResolverWorkers = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscoveryService{
		feed:     feed,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}
}

// FetchAndNormalize pulls the latest trade batch and produces canonical
// token records. A feed failure fails the whole operation with no partial
// result; metadata failures only degrade individual records.
func (s *DiscoveryService) FetchAndNormalize(ctx context.Context) ([]model.Token, error) {
	start := time.Now()

	trades, err := s.feed.RecentTrades(ctx, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("fetch recent trades: %w", err)
	}

	// The feed is ordered newest first, so keeping the first occurrence per
	// address keeps the latest trade. Dedup and the market-cap band are
	// decided before metadata resolution; neither depends on it.
	seen := make(map[string]struct{}, len(trades))
	candidates := make([]model.TradeRecord, 0, len(trades))
	for _, tr := range trades {
		addr := tr.Currency.Address
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}

		marketCap := tr.PriceUSD * s.cfg.TotalSupply
		if marketCap < s.cfg.MarketCapMin || marketCap > s.cfg.MarketCapMax {
			continue
		}
		candidates = append(candidates, tr)
	}

	tokens := make([]model.Token, 0, len(candidates))
	for res := range s.resolveAll(ctx, candidates) {
		tokens = append(tokens, s.buildToken(res))
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("normalization cancelled: %w", err)
	}

	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].MarketCapUSD > tokens[j].MarketCapUSD
	})

	s.logger.Info("normalization complete",
		zap.Int("raw_trades", len(trades)),
		zap.Int("candidates", len(candidates)),
		zap.Int("tokens", len(tokens)),
		zap.Duration("elapsed", time.Since(start)))

	return tokens, nil
}

func (s *DiscoveryService) resolveAll(ctx context.Context, records []model.TradeRecord) <-chan worker.Resolved {
	in := make(chan model.TradeRecord)
	go func() {
		defer close(in)
		for _, rec := range records {
			select {
			case <-ctx.Done():
				return
			case in <- rec:
			}
		}
	}()

	pool := worker.NewPool(s.cfg.ResolverWorkers, s.resolver, s.logger)
	return pool.Start(ctx, in)
}

func (s *DiscoveryService) buildToken(res worker.Resolved) model.Token {
	tr := res.Trade
	marketCap := tr.PriceUSD * s.cfg.TotalSupply

	tok := model.Token{
		Address:            tr.Currency.Address,
		Name:               tr.Currency.Name,
		Symbol:             tr.Currency.Symbol,
		MetadataURI:        tr.Currency.URI,
		Price:              tr.Price,
		PriceUSD:           tr.PriceUSD,
		MarketCapUSD:       marketCap,
		GraduationProgress: marketCap / s.cfg.GraduationThreshold * 100,
		CreatedAt:          tr.BlockTime,
	}

	// Metadata-document fields win over feed fields when present.
	if res.Meta.Name != "" {
		tok.Name = res.Meta.Name
	}
	if res.Meta.Symbol != "" {
		tok.Symbol = res.Meta.Symbol
	}
	if res.Meta.Description != "" {
		tok.Description = res.Meta.Description
	}
	tok.ImageURI = res.Meta.Image

	return tok
}
