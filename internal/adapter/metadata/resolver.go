package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tokenscout/internal/domain/model"
)

const maxDocumentSize = 1 << 20 // 1 MiB

// HTTPResolver fetches token metadata documents over HTTP. Resolve never
// returns an error: a failed resolution yields an empty document and the
// caller keeps the feed-supplied fields.
type HTTPResolver struct {
	client         *http.Client
	gateways       []string
	primaryTimeout time.Duration
	gatewayTimeout time.Duration
	logger         *zap.Logger
}

type ResolverConfig struct {
	PrimaryTimeout time.Duration
	GatewayTimeout time.Duration
	Gateways       []string
}

func NewHTTPResolver(cfg ResolverConfig, logger *zap.Logger) *HTTPResolver {
	if cfg.PrimaryTimeout <= 0 {
		cfg.PrimaryTimeout = 2 * time.Second
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 1500 * time.Millisecond
	}
	if len(cfg.Gateways) == 0 {
		cfg.Gateways = DefaultGateways
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTPResolver{
		client:         &http.Client{},
		gateways:       cfg.Gateways,
		primaryTimeout: cfg.PrimaryTimeout,
		gatewayTimeout: cfg.GatewayTimeout,
		logger:         logger,
	}
}

// Resolve attempts the URI directly (content-addressed URIs go through the
// first gateway), then walks the remaining gateways in order with a shorter
// per-attempt deadline, stopping at the first success.
func (r *HTTPResolver) Resolve(ctx context.Context, uri string) model.MetadataDoc {
	if uri == "" {
		return model.MetadataDoc{}
	}

	primary := GatewayURL(uri, r.gateways[0])
	doc, err := r.fetch(ctx, primary, r.primaryTimeout)
	if err == nil {
		return doc
	}
	r.logger.Debug("metadata primary fetch failed", zap.String("uri", uri), zap.Error(err))

	path, ok := ContentPath(uri)
	if !ok {
		// Plain HTTP URI, nothing else to try.
		return model.MetadataDoc{}
	}

	for _, gw := range r.gateways[1:] {
		doc, err := r.fetch(ctx, gw+path, r.gatewayTimeout)
		if err == nil {
			return doc
		}
		r.logger.Debug("metadata gateway fetch failed", zap.String("gateway", gw), zap.Error(err))
	}

	return model.MetadataDoc{}
}

func (r *HTTPResolver) fetch(ctx context.Context, url string, timeout time.Duration) (model.MetadataDoc, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.MetadataDoc{}, fmt.Errorf("failed to build metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return model.MetadataDoc{}, fmt.Errorf("metadata request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.MetadataDoc{}, fmt.Errorf("metadata fetch returned status %d", resp.StatusCode)
	}

	var doc model.MetadataDoc
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentSize)).Decode(&doc); err != nil {
		return model.MetadataDoc{}, fmt.Errorf("failed to decode metadata document: %w", err)
	}
	return doc, nil
}
