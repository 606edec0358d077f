package swipe

// concurrent.go: worker pool para re-validar los mercados de un batch.

import (
	"context"
	"log/slog"
	"sync"
)

// maxValidationWorkers acota las consultas simultáneas a la Gamma API; el
// rate limiter del cliente hace el resto.
const maxValidationWorkers = 4

// Validation is the result of re-checking one market.
type Validation struct {
	MarketID string
	Err      error
}

// ValidateMany validates marketIDs in parallel. Results keep the input order
// and a repeated market is looked up only once.
func (v *MarketValidator) ValidateMany(ctx context.Context, marketIDs []string) []Validation {
	results := make([]Validation, len(marketIDs))
	if len(marketIDs) == 0 {
		return results
	}

	unique := make(map[string][]int, len(marketIDs))
	order := make([]string, 0, len(marketIDs))
	for i, id := range marketIDs {
		if _, seen := unique[id]; !seen {
			order = append(order, id)
		}
		unique[id] = append(unique[id], i)
	}

	workers := min(maxValidationWorkers, len(order))

	type result struct {
		marketID string
		err      error
	}
	workCh := make(chan string, len(order))
	resultCh := make(chan result, len(order))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range workCh {
				_, err := v.Validate(ctx, id)
				resultCh <- result{marketID: id, err: err}
			}
		}()
	}

	for _, id := range order {
		workCh <- id
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	failed := 0
	for r := range resultCh {
		if r.err != nil {
			failed++
		}
		for _, i := range unique[r.marketID] {
			results[i] = Validation{MarketID: r.marketID, Err: r.err}
		}
	}

	slog.Debug("swipe: batch re-validation complete",
		"markets", len(order),
		"failed", failed,
		"workers", workers,
	)
	return results
}
