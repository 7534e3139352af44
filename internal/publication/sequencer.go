package publication

import (
	"context"
	"runtime"
	"strings"
	"time"
)

// Candidates returns the records with a remote URL, in order.
func Candidates(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if strings.TrimSpace(r.RemoteURL()) != "" {
			out = append(out, r)
		}
	}
	return out
}

// ItemResult is the outcome of one sequencer item.
type ItemResult struct {
	Record Record `json:"record"`
	Err    error  `json:"-"`
}

// Sequencer touches a file's publications one at a time.
type Sequencer struct {
	// Pause is waited between items, after yielding.
	Pause time.Duration
}

// Run calls touch for every candidate of records, strictly in order and
// never two at once. An item's failure is recorded and the run moves on.
// progress, when set, is called before each item with its index.
// Run stops early when ctx is cancelled and returns the results so far.
func (s Sequencer) Run(
	ctx context.Context,
	filePath string,
	records []Record,
	touch func(ctx context.Context, rec Record) error,
	progress func(i, n int, rec Record),
) ([]ItemResult, error) {
	candidates := Candidates(records)
	if strings.TrimSpace(filePath) == "" || len(candidates) == 0 {
		return nil, ErrNothingToUpdate
	}

	results := make([]ItemResult, 0, len(candidates))
	for i, rec := range candidates {
		var err error
		if i > 0 {
			err = s.yield(ctx)
		} else {
			err = ctx.Err()
		}
		if err != nil {
			return results, err
		}
		if progress != nil {
			progress(i, len(candidates), rec)
		}
		results = append(results, ItemResult{Record: rec, Err: touch(ctx, rec)})
	}
	return results, nil
}

func (s Sequencer) yield(ctx context.Context) error {
	runtime.Gosched()
	if s.Pause <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.Pause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Failed counts the failed items.
func Failed(results []ItemResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
