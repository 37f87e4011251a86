package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hgcal-tools/simchain/driver"
	"github.com/hgcal-tools/simchain/pipeline"
)

var (
	pipelineConfig string   // Pipeline YAML path
	pipelineStages []string // Restrict to these stages
)

func loadPipeline(path string) (*pipeline.Pipeline, error) {
	cfg, err := pipeline.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, pipeline.NewNotifier(nil))
}

func printRecords(w io.Writer, records []pipeline.StageRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTAGE\tREASON\tSTATE\tEXIT\tDURATION\tOUTPUT")
	for _, r := range records {
		state := "ran"
		switch {
		case r.Skipped:
			state = "skipped"
		case r.Dry:
			state = "dry"
		case r.Failed():
			state = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.RunID[:8], r.Stage, r.Reason, state, r.ExitCode, r.Duration.Round(time.Millisecond), r.Output)
	}
	return tw.Flush()
}

func printSummary(w io.Writer, s *pipeline.Summary) error {
	_, err := fmt.Fprintf(w, "=== Pipeline Summary ===\nstages: %d ran: %d skipped: %d dry: %d failed: %d\n",
		s.Total, s.Ran, s.Skipped, s.Dry, s.Failed)
	return err
}

func runPipeline(w io.Writer, p *pipeline.Pipeline, opts pipeline.RunOptions) error {
	records, runErr := p.Run(newMaterializer(p.Algorithm()), opts)
	if err := printRecords(w, records); err != nil {
		return err
	}
	if err := printSummary(w, pipeline.Summarize(records)); err != nil {
		return err
	}
	return runErr
}

func showPipeline(w io.Writer, p *pipeline.Pipeline) error {
	m := driver.NewMaterializer(nil, p.Algorithm())
	for _, s := range p.Stages() {
		decision, err := m.Decide(s.Descriptor, false)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s: %s (%s)\n  digest %s\n%s\n", s.Name, s.Descriptor.OutputPath(), decision.Reason, decision.Want, s.Descriptor); err != nil {
			return err
		}
	}
	return nil
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run or inspect a multi-stage driver pipeline",
}

var pipelineRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Materialize every stage of a pipeline in order",
	Run: func(cmd *cobra.Command, args []string) {
		p, err := loadPipeline(pipelineConfig)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		opts := pipeline.RunOptions{Only: pipelineStages, Force: forceRun, Dry: dryRun, AllowFailure: keepGoing}
		if err := runPipeline(cmd.OutOrStdout(), p, opts); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

var pipelineShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print each stage's descriptor, digest and cache state",
	Run: func(cmd *cobra.Command, args []string) {
		p, err := loadPipeline(pipelineConfig)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := showPipeline(cmd.OutOrStdout(), p); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func init() {
	pipelineCmd.PersistentFlags().StringVar(&pipelineConfig, "config", "pipeline.yaml", "Pipeline YAML file")
	pipelineRunCmd.Flags().StringSliceVar(&pipelineStages, "stage", nil, "Only run these stages (comma-separated, repeatable)")
	pipelineRunCmd.Flags().BoolVar(&forceRun, "force", false, "Rerun every selected stage")
	pipelineRunCmd.Flags().BoolVar(&dryRun, "dry", false, "Log commands without running them")
	pipelineRunCmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Continue past stages that exit nonzero")

	pipelineCmd.AddCommand(pipelineRunCmd, pipelineShowCmd)
	rootCmd.AddCommand(pipelineCmd)
}
