package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"tokenscout/internal/domain/model"
	"tokenscout/internal/domain/port"
)

// Resolved pairs a trade record with its resolved metadata document. The
// document is zero when resolution failed; the record is never dropped for
// a metadata failure.
type Resolved struct {
	Trade model.TradeRecord
	Meta  model.MetadataDoc
}

// Pool resolves metadata documents for trade records with a bounded number
// of concurrent fetches. Output order is not the input order; callers that
// care must sort afterwards.
type Pool struct {
	workers  int
	resolver port.MetadataResolver
	logger   *zap.Logger
}

func NewPool(workers int, resolver port.MetadataResolver, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		workers:  workers,
		resolver: resolver,
		logger:   logger,
	}
}

// Start launches the workers reading from in. The returned channel is closed
// once all workers have drained in or ctx is cancelled.
func (p *Pool) Start(ctx context.Context, in <-chan model.TradeRecord) <-chan Resolved {
	out := make(chan Resolved)
	var wg sync.WaitGroup

	wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func(id int) {
			defer wg.Done()
			p.workerLoop(ctx, id, in, out)
		}(i)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

func (p *Pool) workerLoop(ctx context.Context, id int, in <-chan model.TradeRecord, out chan<- Resolved) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-in:
			if !ok {
				return
			}

			doc := p.resolver.Resolve(ctx, rec.Currency.URI)
			p.logger.Debug("worker: metadata resolved",
				zap.Int("worker", id),
				zap.String("address", rec.Currency.Address),
				zap.Bool("hit", doc != (model.MetadataDoc{})))

			select {
			case <-ctx.Done():
				return
			case out <- Resolved{Trade: rec, Meta: doc}:
			}
		}
	}
}
