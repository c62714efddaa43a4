package port

import (
	"context"

	"tokenscout/internal/domain/model"
)

// MetadataResolver fetches a token's off-chain metadata document. It never
// fails: any resolution error yields a zero MetadataDoc and the caller falls
// back to feed-supplied fields.
type MetadataResolver interface {
	Resolve(ctx context.Context, uri string) model.MetadataDoc
}

// TokenSource produces a fresh normalized token batch, ready to cache.
type TokenSource interface {
	FetchAndNormalize(ctx context.Context) ([]model.Token, error)
}
