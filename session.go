package ledgerline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// CategorizeRequest is the bundle handed to the categorizer for one window:
// the rows no deterministic rule could place, plus enough account context to
// decide what they are.
type CategorizeRequest struct {
	Institution  Institution
	Currency     string
	Rows         []SourceRow
	Transactions []*Transaction // recent context, newest window first
}

// Categorizer proposes deltas for rows the deterministic builder could not
// place. Implementations talk to external services; they are the only part
// of an ingestion that may be slow or rate-limited.
type Categorizer interface {
	Categorize(ctx context.Context, req CategorizeRequest) ([]Delta, error)
}

// RetryableError signals a transient upstream condition (typically a rate
// limit). The session surfaces it as a waiting step instead of failing;
// nothing in this package ever sleeps.
type RetryableError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v (retry after %s)", e.Err, e.RetryAfter)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// StepStatus is the outcome of one ingestion step.
type StepStatus string

const (
	// StepCommitted means the step made progress; call Step again.
	StepCommitted StepStatus = "committed"
	// StepWaiting means the categorizer is rate-limited; call Step again
	// after RetryAfter.
	StepWaiting StepStatus = "waiting"
	// StepStalled means the current window made no progress over the
	// allowed attempts; the remaining rows need a manual decision.
	StepStalled StepStatus = "stalled"
	// StepDone means every row has been offered for categorization.
	StepDone StepStatus = "done"
)

// StepResult reports what one ingestion step did.
type StepResult struct {
	Status     StepStatus
	From, To   int           // window bounds in global row numbers
	RetryAfter time.Duration // set when Status is StepWaiting
	Built      int           // transactions built by deterministic rules
	Results    []DeltaResult // outcomes of categorizer deltas
	Remaining  []int         // window rows still uncovered after the step
}

// Session drives the resumable ingestion of one book, window by window.
// Each Step processes at most WindowSize rows: deterministic grouping and
// building first, then the categorizer for whatever is left. The cursor only
// advances once a window is fully covered, so a crashed or suspended session
// resumes exactly where it stopped.
type Session struct {
	Book        *Book
	Categorizer Categorizer
	Resolver    AssetResolver

	// WindowSize is the number of rows per step; 0 means the default of 30.
	WindowSize int
	// MaxAttempts is how many zero-progress passes a window gets before the
	// session stalls; 0 means the default of 2.
	MaxAttempts int

	attempts int // zero-progress passes over the current window
}

const (
	defaultWindowSize  = 30
	defaultMaxAttempts = 2
)

// Step runs one ingestion step and returns what happened. It never sleeps:
// a rate-limited categorizer yields StepWaiting and the caller decides when
// to come back.
func (s *Session) Step(ctx context.Context) (*StepResult, error) {
	windowSize := s.WindowSize
	if windowSize == 0 {
		windowSize = defaultWindowSize
	}
	maxAttempts := s.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultMaxAttempts
	}

	from := s.Book.Cursor() + 1
	to := min(from+windowSize-1, s.Book.RowCount())
	res := &StepResult{From: from, To: to}
	if from > s.Book.RowCount() {
		res.Status = StepDone
		return res, nil
	}

	uncoveredBefore := s.uncoveredIn(from, to)

	// Deterministic pass: group the window's unplaced rows and build whatever
	// the action vocabulary recognizes.
	builder := &Builder{
		Institution: s.Book.Institution(),
		Resolver:    s.Resolver,
		Currency:    s.Book.Currency(),
	}
	for _, g := range GroupRows(s.rowsFor(uncoveredBefore), s.Book.Institution()) {
		tx, err := builder.Build(g)
		if err != nil {
			continue // left for the categorizer
		}
		if err := s.Book.Insert(tx); err != nil {
			log.Printf("rows %v: built transaction rejected: %v", g.Nums(), err)
			continue
		}
		res.Built++
	}

	// Categorizer pass for the rest.
	remaining := s.uncoveredIn(from, to)
	if len(remaining) > 0 && s.Categorizer != nil {
		deltas, err := s.Categorizer.Categorize(ctx, CategorizeRequest{
			Institution:  s.Book.Institution(),
			Currency:     s.Book.Currency(),
			Rows:         s.rowsFor(remaining),
			Transactions: s.Book.Transactions(),
		})
		var retryable *RetryableError
		if errors.As(err, &retryable) {
			res.Status = StepWaiting
			res.RetryAfter = retryable.RetryAfter
			res.Remaining = remaining
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("categorizing rows %d-%d: %w", from, to, err)
		}
		engine := &ReviewEngine{Book: s.Book, Resolver: s.Resolver}
		res.Results = engine.Apply(deltas)
	}

	res.Remaining = s.uncoveredIn(from, to)
	switch {
	case len(res.Remaining) == 0:
		s.Book.SetCursor(to)
		s.attempts = 0
		if to >= s.Book.RowCount() {
			res.Status = StepDone
		} else {
			res.Status = StepCommitted
		}
	case len(res.Remaining) < len(uncoveredBefore):
		// Partial progress buys the window a fresh set of attempts.
		s.attempts = 0
		res.Status = StepCommitted
	default:
		s.attempts++
		if s.attempts >= maxAttempts {
			res.Status = StepStalled
		} else {
			res.Status = StepCommitted
		}
	}
	return res, nil
}

// Run steps until the book is done, the session stalls, or the categorizer
// asks to wait. It returns the last step's result; callers that get
// StepWaiting should wait RetryAfter and call Run again.
func (s *Session) Run(ctx context.Context) (*StepResult, error) {
	for {
		res, err := s.Step(ctx)
		if err != nil {
			return res, err
		}
		if res.Status != StepCommitted {
			return res, nil
		}
	}
}

// uncoveredIn lists the rows in [from, to] that are neither owned nor excluded.
func (s *Session) uncoveredIn(from, to int) []int {
	var nums []int
	cov := s.Book.Coverage()
	for row := range s.Book.Rows() {
		if row.Num < from || row.Num > to {
			continue
		}
		if len(cov.Owners(row.Num)) > 0 || cov.IsExcluded(row.Num) {
			continue
		}
		nums = append(nums, row.Num)
	}
	return nums
}

func (s *Session) rowsFor(nums []int) []SourceRow {
	rows := make([]SourceRow, 0, len(nums))
	for _, num := range nums {
		if r, ok := s.Book.Row(num); ok {
			rows = append(rows, r)
		}
	}
	return rows
}
