package colsense

import (
	"context"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"

	"colsense/internal/sample"
	"colsense/internal/taxonomy"
)

// PredictTable classifies every column of a table. Each column is
// classified with a context describing its position and the kinds of
// its sibling columns, so contextual features see the whole table.
// Results are returned in column order. When ctx is cancelled the
// unprocessed columns come back as unknown at zero confidence and
// ctx.Err is returned.
func (c *Classifier) PredictTable(ctx context.Context, cols []Column) ([]Prediction, error) {
	if len(cols) == 0 {
		return nil, nil
	}

	kinds := make([]Kind, len(cols))
	for i, col := range cols {
		kinds[i] = col.Kind()
	}

	workers := c.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(cols) {
		workers = len(cols)
	}

	preds := make([]Prediction, len(cols))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				tctx := &sample.TableContext{Kinds: kinds, Index: i}
				preds[i] = c.Predict(cols[i], tctx)
			}
		}()
	}

	var err error
	for i := range cols {
		if err = ctx.Err(); err != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		// Every prediction carries an in-vocabulary label, even the ones
		// cancellation skipped.
		for i := range preds {
			if preds[i].Label == "" {
				preds[i] = Prediction{
					Label:        taxonomy.Unknown,
					Distribution: map[string]float64{taxonomy.Unknown: 0},
					Method:       MethodRule,
					Reason:       "cancelled",
				}
			}
		}
		log.Warn().Err(err).Int("columns", len(cols)).Msg("table classification cancelled")
		return preds, err
	}
	return preds, nil
}
