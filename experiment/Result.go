package experiment

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/medai-secure/idsgame-sarsa/config"
)

// Result holds the metric series of one phase of an experiment. Each
// log point appends one value to every known metric.
type Result struct {
	episodes []int
	series   map[string][]float64
}

// NewResult returns a new, empty Result
func NewResult() *Result {
	series := make(map[string][]float64, len(config.KnownMetrics))
	for _, m := range config.KnownMetrics {
		series[m] = nil
	}
	return &Result{series: series}
}

// Append records the metric values logged at episode. Known metrics
// missing from values are recorded as 0.
func (r *Result) Append(episode int, values map[string]float64) error {
	for name := range values {
		if !config.IsKnownMetric(name) {
			return fmt.Errorf("append: unknown metric %q", name)
		}
	}

	r.episodes = append(r.episodes, episode)
	for _, m := range config.KnownMetrics {
		r.series[m] = append(r.series[m], values[m])
	}
	return nil
}

// Series returns the values of a metric, one per log point
func (r *Result) Series(name string) []float64 {
	return r.series[name]
}

// Episodes returns the episode of each log point
func (r *Result) Episodes() []int {
	return r.episodes
}

// Len returns the number of log points
func (r *Result) Len() int {
	return len(r.episodes)
}

// Last returns the most recent value of a metric
func (r *Result) Last(name string) (float64, bool) {
	s := r.series[name]
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

// WriteCSV writes the log points as CSV with an episode column followed
// by one column per metric. If metrics is empty, every known metric is
// written.
func (r *Result) WriteCSV(w io.Writer, metrics []string) error {
	if len(metrics) == 0 {
		metrics = config.KnownMetrics
	}
	for _, m := range metrics {
		if !config.IsKnownMetric(m) {
			return fmt.Errorf("writeCSV: unknown metric %q", m)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"episode"}, metrics...)); err != nil {
		return fmt.Errorf("writeCSV: %w", err)
	}

	row := make([]string, len(metrics)+1)
	for i, episode := range r.episodes {
		row[0] = strconv.Itoa(episode)
		for j, m := range metrics {
			row[j+1] = strconv.FormatFloat(r.series[m][i], 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writeCSV: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writeCSV: %w", err)
	}
	return nil
}

// SaveCSV writes the log points to a CSV file at path, creating its
// directory if needed
func (r *Result) SaveCSV(path string, metrics []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("saveCSV: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("saveCSV: %w", err)
	}
	if err := r.WriteCSV(f, metrics); err != nil {
		f.Close()
		return fmt.Errorf("saveCSV: %w", err)
	}
	return f.Close()
}
