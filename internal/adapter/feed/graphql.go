package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tokenscout/internal/domain/model"
)

// recentTradesQuery pulls the latest trades for newly-created tokens,
// ordered by block time descending.
const recentTradesQuery = `
query RecentTokenTrades($limit: Int!, $since: ISO8601DateTime!) {
  trades(limit: $limit, since: $since, orderBy: BLOCK_TIME_DESC) {
    price
    priceUSD
    blockTime
    currency {
      name
      symbol
      address
      decimals
      uri
    }
  }
}`

// GraphQLFeed fetches raw trade records from the external trade API.
// Transport errors, non-2xx responses, and GraphQL-level errors are all hard
// failures; the caller owns retry via its own schedule.
type GraphQLFeed struct {
	url        string
	token      string
	lookback   time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

type Config struct {
	URL           string
	Token         string
	Lookback      time.Duration
	Timeout       time.Duration
	RatePerMinute int
}

func NewGraphQLFeed(cfg Config, logger *zap.Logger) *GraphQLFeed {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = time.Hour
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GraphQLFeed{
		url:      cfg.URL,
		token:    cfg.Token,
		lookback: cfg.Lookback,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60), 1),
		logger:  logger,
	}
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type tradesResponse struct {
	Data struct {
		Trades []model.TradeRecord `json:"trades"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

func (f *GraphQLFeed) RecentTrades(ctx context.Context, limit int) ([]model.TradeRecord, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("feed rate limiter: %w", err)
	}

	since := time.Now().Add(-f.lookback).UTC().Format(time.RFC3339)
	body, err := json.Marshal(graphqlRequest{
		Query: recentTradesQuery,
		Variables: map[string]interface{}{
			"limit": limit,
			"since": since,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feed query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed tradesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode feed response: %w", err)
	}

	if len(parsed.Errors) > 0 {
		msgs := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("feed query errors: %s", strings.Join(msgs, "; "))
	}

	f.logger.Debug("feed fetch complete",
		zap.Int("trades", len(parsed.Data.Trades)),
		zap.Duration("elapsed", time.Since(start)))

	return parsed.Data.Trades, nil
}
