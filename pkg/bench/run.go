package bench

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// requestTimeout bounds a single virtual-client round trip; it is
// deliberately generous relative to every scenario's expected latency so
// it only fires on genuine stalls (which the stability scorer then
// penalises via spec.md §4.7's "-15 if any client timed out" rule).
const requestTimeout = 5 * time.Second

// Run drives profile's concurrent virtual clients against targetURL for
// profile.Duration, coordinated by a start barrier so every client's
// measurement window begins at the same instant (spec.md §4.7), and
// returns the composite TestResult. engineName labels the result for
// the comparison layer.
func Run(ctx context.Context, engineName string, profile Profile, targetURL string) (*TestResult, error) {
	client, err := newRawClient(targetURL, profile.Path, profile.RequestBody)
	if err != nil {
		return nil, err
	}

	coll := newCollector()

	runCtx, cancel := context.WithTimeout(ctx, profile.Duration+requestTimeout)
	defer cancel()

	start := make(chan struct{})

	g, gctx := errgroup.WithContext(context.Background())
	deadline := time.Now().Add(profile.Duration)

	for i := 0; i < profile.Concurrency; i++ {
		g.Go(func() error {
			<-start
			for time.Now().Before(deadline) {
				select {
				case <-gctx.Done():
					return nil
				case <-runCtx.Done():
					return nil
				default:
				}
				latency, err := client.do(runCtx, requestTimeout)
				coll.record(sample{latency: latency, err: err, timeout: err == ErrRequestTimeout})
			}
			return nil
		})
	}

	runStart := time.Now()
	close(start)

	_ = g.Wait()
	elapsed := time.Since(runStart)

	res := coll.summarize(engineName, profile.Scenario, profile, elapsed)
	res.RunID = uuid.NewString()
	return &res, nil
}

// RunAll drives every canonical scenario's default profile against
// targetURL in sequence (not concurrently with each other, so one
// scenario's load does not bleed into the next's measurement window),
// returning one TestResult per scenario.
func RunAll(ctx context.Context, engineName, targetURL string) ([]*TestResult, error) {
	profiles := Profiles()
	order := []Scenario{Basic, Concurrency, CPUIntensive, IOIntensive, MemoryPressure}

	results := make([]*TestResult, 0, len(order))
	for _, sc := range order {
		res, err := Run(ctx, engineName, profiles[sc], targetURL)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
