package worker

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"sjsage522/pricecheckworker/helpers"
	"sjsage522/pricecheckworker/internal/crawler"
	"sjsage522/pricecheckworker/internal/observability"
	"sjsage522/pricecheckworker/pkg/errors"
	"sjsage522/pricecheckworker/services/publisher"
	"sjsage522/pricecheckworker/services/sheet"
)

// Searcher looks up the prices of one product
type Searcher interface {
	Search(q crawler.ProductQuery) (crawler.SearchResult, error)
}

// Options controls checkpointing and pacing
type Options struct {
	CheckpointEvery int
	MinDelay        time.Duration
	MaxDelay        time.Duration
}

// ResultRecord is the message published for every processed row
type ResultRecord struct {
	RunID  string   `json:"run_id"`
	Row    int      `json:"row"`
	Brand  string   `json:"brand"`
	Model  string   `json:"model"`
	Prices []string `json:"prices"`
	URL    string   `json:"url"`
}

// Worker runs a price lookup for every row of a spreadsheet
type Worker struct {
	ctx       context.Context
	searcher  Searcher
	store     sheet.Store
	publisher publisher.Publisher
	logger    helpers.LoggerInterface
	options   Options
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewWorker creates a new worker. pub may be nil.
func NewWorker(
	ctx context.Context,
	searcher Searcher,
	store sheet.Store,
	pub publisher.Publisher,
	logger helpers.LoggerInterface,
	options Options,
) *Worker {
	if options.CheckpointEvery < 1 {
		options.CheckpointEvery = 5
	}

	return &Worker{
		ctx:       ctx,
		searcher:  searcher,
		store:     store,
		publisher: pub,
		logger:    logger,
		options:   options,
		sleep:     sleepContext,
	}
}

// Run searches every row of the input table in order and persists the
// results to outputPath every CheckpointEvery rows and after the last row.
//
// Search failures are recorded in the table and never stop the run. A table
// load or save failure aborts the run; the last successful checkpoint is
// then the durable state. Cancelling the worker context saves the table once
// more and returns the context error.
func (w *Worker) Run(inputPath, outputPath string) (sheet.ResultTable, error) {
	runID := uuid.NewString()

	input, err := w.store.Load(inputPath)
	if err != nil {
		w.logger.LogError("load", err)
		return sheet.ResultTable{}, err
	}

	table := sheet.NewResultTable(input)
	total := table.Len()
	w.logger.LogInfo("Run %s: %d products to search", runID, total)

	for i := 0; i < total; i++ {
		table = w.step(table, i, runID)

		if w.isCheckpoint(i, total) {
			if err := w.checkpoint(table, outputPath, i+1, total); err != nil {
				return table, err
			}
		}

		if i == total-1 {
			break
		}

		if err := w.pace(); err != nil {
			w.logger.LogInfo("Interrupted after %d/%d, saving progress", i+1, total)
			if saveErr := w.checkpoint(table, outputPath, i+1, total); saveErr != nil {
				return table, saveErr
			}
			return table, err
		}
	}

	if total == 0 {
		if err := w.checkpoint(table, outputPath, 0, 0); err != nil {
			return table, err
		}
	}

	if w.publisher != nil {
		if err := w.publisher.TrimStreams(); err != nil {
			w.logger.LogError("StreamTrimming", err)
		}
	}

	w.logger.LogInfo("Done. Results saved to %s", outputPath)
	return table, nil
}

// step searches row i and returns the table with its result recorded
func (w *Worker) step(table sheet.ResultTable, i int, runID string) sheet.ResultTable {
	query := table.Query(i)
	w.logger.LogInfo("Processing %d/%d: %s", i+1, table.Len(), query)

	result, err := w.searcher.Search(query)
	if err != nil {
		w.logger.LogError(query.String(), err)
		observability.SearchFailures.WithLabelValues(failureType(err)).Inc()
	}

	observability.RowsProcessed.Inc()
	observability.PricesFound.Add(float64(len(result.Found())))

	w.publish(runID, i, query, result)

	return table.WithResult(i, result)
}

// isCheckpoint reports whether the table is saved after row i
func (w *Worker) isCheckpoint(i, total int) bool {
	return (i+1)%w.options.CheckpointEvery == 0 || i == total-1
}

func (w *Worker) checkpoint(table sheet.ResultTable, outputPath string, done, total int) error {
	if err := w.store.Save(outputPath, table); err != nil {
		w.logger.LogError("checkpoint", err)
		return err
	}

	observability.Checkpoints.Inc()
	w.logger.LogInfo("Progress saved (%d/%d)", done, total)
	return nil
}

// pace waits a random delay between MinDelay and MaxDelay
func (w *Worker) pace() error {
	return w.sleep(w.ctx, randomDelay(w.options.MinDelay, w.options.MaxDelay))
}

func (w *Worker) publish(runID string, row int, query crawler.ProductQuery, result crawler.SearchResult) {
	if w.publisher == nil {
		return
	}

	data, err := json.Marshal(ResultRecord{
		RunID:  runID,
		Row:    row + 1,
		Brand:  query.Brand,
		Model:  query.Model,
		Prices: result.PriceStrings(),
		URL:    result.URL,
	})
	if err != nil {
		w.logger.LogError("publish", err)
		return
	}

	if err := w.publisher.Publish("result", data); err != nil {
		w.logger.LogError("publish", err)
	}
}

func failureType(err error) string {
	if errType := errors.TypeOf(err); errType != "" {
		return string(errType)
	}
	return "unknown"
}

// randomDelay returns a duration drawn uniformly from [min, max]
func randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
