package notify

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency caps the number of in-flight sends for one batch.
const DefaultConcurrency = 8

// Failure is one recipient the batch could not reach.
type Failure struct {
	RecipientID int64  `json:"recipientId"`
	Error       string `json:"error"`
}

// BatchResult is returned to the caller so it can retry the failed subset.
// Writes that succeeded are never rolled back.
type BatchResult struct {
	Succeeded []int64   `json:"succeeded"`
	Failed    []Failure `json:"failed"`
}

// SendFunc delivers one notification to one recipient.
type SendFunc func(ctx context.Context, recipientID int64) error

// Dispatch calls send for every recipient with bounded concurrency and
// collects a per-recipient outcome. A failing recipient never stops the rest.
// Duplicate recipient ids are sent once.
func Dispatch(ctx context.Context, recipients []int64, concurrency int, send SendFunc) BatchResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var (
		mu     sync.Mutex
		result = BatchResult{Succeeded: []int64{}, Failed: []Failure{}}
		seen   = make(map[int64]struct{}, len(recipients))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, id := range recipients {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		id := id
		g.Go(func() error {
			err := send(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, Failure{RecipientID: id, Error: err.Error()})
				return nil
			}
			result.Succeeded = append(result.Succeeded, id)
			return nil
		})
	}

	_ = g.Wait()
	return result
}
