package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/promptbench/internal/result"
)

// Summary is what gets written to a run's summary.json.
type Summary struct {
	RunID      string                 `json:"run_id"`
	Strategies []*result.StrategyMeta `json:"strategies"`
	Comparison Comparison             `json:"comparison"`
}

func NewSummary(runID string, metas []*result.StrategyMeta) Summary {
	return Summary{RunID: runID, Strategies: metas, Comparison: Compare(metas, DefaultWeights)}
}

// Generate reads every strategy summary under runDir and writes a
// comparison report.
func Generate(runDir, format string, w io.Writer) error {
	metas, err := CollectMetas(runDir)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		return fmt.Errorf("no %s files under %s", result.MetaFile, runDir)
	}
	runID := metas[0].RunID
	s := NewSummary(runID, metas)

	switch format {
	case "markdown":
		return writeMarkdown(s, w)
	case "json":
		return writeJSON(s, w)
	default:
		return writeTable(s, w)
	}
}

// CollectMetas finds the per-strategy meta files below runDir, sorted by
// strategy name.
func CollectMetas(runDir string) ([]*result.StrategyMeta, error) {
	var metas []*result.StrategyMeta
	err := filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Name() == result.MetaFile {
			meta, err := result.ReadMeta(path)
			if err != nil {
				return nil
			}
			metas = append(metas, meta)
		}
		return nil
	})
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Strategy < metas[j].Strategy
	})
	return metas, err
}

func scores(s Summary) map[string]float64 {
	out := make(map[string]float64, len(s.Comparison.Composite))
	for _, c := range s.Comparison.Composite {
		out[c.Strategy] = c.Composite
	}
	return out
}

func writeTable(s Summary, w io.Writer) error {
	composite := scores(s)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tQUESTIONS\tACCURACY\tSEC/Q\tTOKENS/Q\tERRORS\tCOST\tSCORE")
	fmt.Fprintln(tw, strings.Repeat("-", 90))
	for _, m := range s.Strategies {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%.2f\t%.0f\t%d\t$%.4f\t%.3f\n",
			m.Strategy, m.Questions, m.Accuracy*100, m.AvgSecondsPerQuestion,
			m.AvgTokensPerQuestion, m.Errors, m.CostUSD, composite[m.Strategy])
	}
	if best := s.Comparison.Best(); best != "" {
		fmt.Fprintf(tw, "\nbest overall: %s\n", best)
	}
	return tw.Flush()
}

func writeMarkdown(s Summary, w io.Writer) error {
	composite := scores(s)
	fmt.Fprintln(w, "| Strategy | Questions | Accuracy | Sec/Q | Tokens/Q | Errors | Cost | Score |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|---|")
	for _, m := range s.Strategies {
		fmt.Fprintf(w, "| %s | %d | %.1f%% | %.2f | %.0f | %d | $%.4f | %.3f |\n",
			m.Strategy, m.Questions, m.Accuracy*100, m.AvgSecondsPerQuestion,
			m.AvgTokensPerQuestion, m.Errors, m.CostUSD, composite[m.Strategy])
	}
	c := s.Comparison
	fmt.Fprintln(w)
	fmt.Fprintf(w, "- Accuracy: %s\n", strings.Join(c.ByAccuracy, " > "))
	fmt.Fprintf(w, "- Speed: %s\n", strings.Join(c.ByTime, " > "))
	fmt.Fprintf(w, "- Token economy: %s\n", strings.Join(c.ByTokens, " > "))
	fmt.Fprintf(w, "- Reliability: %s\n", strings.Join(c.ByErrorRate, " > "))
	return nil
}

func writeJSON(s Summary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
