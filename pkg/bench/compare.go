package bench

// ComparisonReport is the cross-engine comparison record spec.md §4.7
// describes: one TestResult per engine for a given scenario, a winner
// per metric, and an overall champion decided by majority vote across
// the four metric winners.
type ComparisonReport struct {
	Scenario Scenario               `json:"scenario"`
	Results  map[string]*TestResult `json:"results"`
	Winners  MetricWinners          `json:"winners"`
	Champion string                 `json:"champion"`
	Analysis []string               `json:"analysis"`
}

// MetricWinners names the engine that led each scored dimension.
type MetricWinners struct {
	Throughput string `json:"throughput"`
	Latency    string `json:"latency"`
	Stability  string `json:"stability"`
	Overall    string `json:"overall"`
}

// Compare builds a ComparisonReport from one TestResult per engine, all
// for the same scenario.
func Compare(scenario Scenario, results map[string]*TestResult) ComparisonReport {
	report := ComparisonReport{
		Scenario: scenario,
		Results:  results,
	}

	report.Winners.Throughput = winnerBy(results, func(r *TestResult) float64 { return r.ThroughputScore })
	report.Winners.Latency = winnerBy(results, func(r *TestResult) float64 { return r.LatencyScore })
	report.Winners.Stability = winnerBy(results, func(r *TestResult) float64 { return r.StabilityScore })
	report.Winners.Overall = winnerBy(results, func(r *TestResult) float64 { return r.CompositeScore })

	votes := map[string]int{}
	for _, w := range []string{report.Winners.Throughput, report.Winners.Latency, report.Winners.Stability, report.Winners.Overall} {
		votes[w]++
	}
	report.Champion = majorityVote(votes)

	report.Analysis = buildAnalysis(report)
	return report
}

func winnerBy(results map[string]*TestResult, metric func(*TestResult) float64) string {
	best := ""
	bestScore := -1.0
	for engine, res := range results {
		score := metric(res)
		if score > bestScore {
			bestScore = score
			best = engine
		}
	}
	return best
}

func majorityVote(votes map[string]int) string {
	best := ""
	bestCount := -1
	for engine, count := range votes {
		if count > bestCount {
			bestCount = count
			best = engine
		}
	}
	return best
}

func buildAnalysis(report ComparisonReport) []string {
	lines := make([]string, 0, 4)
	lines = append(lines, "throughput winner: "+report.Winners.Throughput)
	lines = append(lines, "latency winner: "+report.Winners.Latency)
	lines = append(lines, "stability winner: "+report.Winners.Stability)
	lines = append(lines, "overall champion: "+report.Champion)
	return lines
}
