package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/promptbench/internal/report"
	"github.com/signalnine/promptbench/internal/result"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [run-dir]",
		Short: "Re-score an existing result",
		Long:  "Walk a run directory, re-judge every stored outcome against its reference answer, and rewrite outcomes.jsonl, meta.json and summary.json.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runDir, err := resolveRunDir(args)
			if err != nil {
				return err
			}
			metas, err := rescoreRun(runDir)
			if err != nil {
				return err
			}
			summary := report.NewSummary(metas[0].RunID, metas)
			if err := result.WriteJSON(filepath.Join(runDir, result.SummaryFile), summary); err != nil {
				return fmt.Errorf("writing summary: %w", err)
			}
			printSummary(os.Stdout, summary)
			return nil
		},
	}
}

func rescoreRun(runDir string) ([]*result.StrategyMeta, error) {
	var metaFiles []string
	err := filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.Name() == result.MetaFile {
			metaFiles = append(metaFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking run dir: %w", err)
	}
	if len(metaFiles) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", result.MetaFile, runDir)
	}

	var metas []*result.StrategyMeta
	for _, metaPath := range metaFiles {
		dir := filepath.Dir(metaPath)
		prev, err := result.ReadMeta(metaPath)
		if err != nil {
			log.Printf("skipping %s: %v", metaPath, err)
			continue
		}
		outcomes, err := result.ReadOutcomes(filepath.Join(dir, result.OutcomesFile))
		if err != nil {
			log.Printf("skipping %s: %v", metaPath, err)
			continue
		}

		changed := report.Rejudge(outcomes)
		meta := report.Resummarize(prev, outcomes)
		if err := result.WriteOutcomes(dir, outcomes); err != nil {
			log.Printf("  failed to write outcomes: %v", err)
			continue
		}
		if err := result.WriteMeta(dir, meta); err != nil {
			log.Printf("  failed to write meta: %v", err)
			continue
		}
		fmt.Printf("%s: accuracy %.1f%% → %.1f%% (%d outcomes changed)\n",
			meta.Strategy, prev.Accuracy*100, meta.Accuracy*100, changed)
		metas = append(metas, meta)
	}
	if len(metas) == 0 {
		return nil, fmt.Errorf("no strategy in %s could be re-scored", runDir)
	}
	return metas, nil
}
