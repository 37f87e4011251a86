package cmd

import (
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hgcal-tools/simchain/eventstore"
	"github.com/hgcal-tools/simchain/tracktree"
)

var (
	maxEvents   int                    // Number of events to print
	synthConfig = eventstore.DefaultSynthConfig()
)

// eachEvent calls fn for the first n events of the store in dir (all when
// n <= 0).
func eachEvent(dir string, n int, fn func(ev *eventstore.Event) error) error {
	s, err := eventstore.Open(dir)
	if err != nil {
		return err
	}
	if n <= 0 || n > s.NumEvents() {
		n = s.NumEvents()
	}
	for i := range n {
		ev, err := s.Event(i)
		if err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

func printTracks(w io.Writer, dir string, n int) error {
	return eachEvent(dir, n, func(ev *eventstore.Event) error {
		tracks, err := ev.Tracks()
		if err != nil {
			return err
		}
		vertices, err := ev.Vertices()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: event %d\n", dir, ev.Index()+1)
		fmt.Fprintf(w, "Found %d tracks and %d vertices\n", len(tracks), len(vertices))
		f, err := tracktree.BuildForest(tracks, vertices)
		if err != nil {
			return err
		}
		for _, root := range f.Roots() {
			fmt.Fprintln(w, f.Render(root))
		}
		return nil
	})
}

func printHits(w io.Writer, dir string, n int) error {
	return eachEvent(dir, n, func(ev *eventstore.Event) error {
		tracks, err := ev.Tracks()
		if err != nil {
			return err
		}
		hits, err := ev.Hits()
		if err != nil {
			return err
		}
		positive := 0
		for _, h := range hits {
			if h.Time >= 0 {
				positive++
			}
		}
		counts := tracktree.HitCounts(tracks, hits)
		ids := make([]int, 0, len(counts))
		for id := range counts {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		fmt.Fprintf(w, "event %d\n", ev.Index()+1)
		fmt.Fprintf(w, "%d simhits on %d tracks\n", len(hits), len(tracks))
		fmt.Fprintf(w, "%d simhits with t>0\n", positive)
		for _, id := range ids {
			fmt.Fprintf(w, "  trackid=%6d nhits=%d\n", id, counts[id])
		}
		return nil
	})
}

func printGenParticles(w io.Writer, dir string, n int) error {
	return eachEvent(dir, n, func(ev *eventstore.Event) error {
		particles, err := ev.GenParticles()
		if err != nil {
			return err
		}
		for _, p := range particles {
			fmt.Fprintln(w, p)
		}
		return nil
	})
}

func printBranches(w io.Writer, dir string) error {
	s, err := eventstore.Open(dir)
	if err != nil {
		return err
	}
	branches, err := s.Branches()
	if err != nil {
		return err
	}
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().Foreground(lipgloss.Color("1"))
	if !color {
		title = r.NewStyle()
	}
	fmt.Fprintln(w, title.Render(fmt.Sprintf("Store %s (%d entries)", dir, s.NumEvents())))
	for _, b := range branches {
		fmt.Fprintf(w, "  %s (%s, %d rows)\n", b.Name, b.Collection, b.Rows)
	}
	return nil
}

func writeSynth(dir string, cfg eventstore.SynthConfig) error {
	w := eventstore.NewWriter(dir, fmt.Sprintf("synth seed=%d", cfg.Seed))
	for _, ev := range eventstore.Synthesize(cfg) {
		w.Add(ev)
	}
	if err := w.Close(); err != nil {
		return err
	}
	logrus.Infof("Wrote %d synthetic events to %s", cfg.Events, dir)
	return nil
}

func storeCommand(use, short string, show func(io.Writer, string, int) error) *cobra.Command {
	c := &cobra.Command{
		Use:   use + " <store>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := show(cmd.OutOrStdout(), args[0], maxEvents); err != nil {
				logrus.Fatalf("%v", err)
			}
		},
	}
	c.Flags().IntVarP(&maxEvents, "nevents", "n", 1, "Number of events to print (0 for all)")
	return c
}

var branchesCmd = &cobra.Command{
	Use:   "branches <store>",
	Short: "List the branches of an event store",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := printBranches(cmd.OutOrStdout(), args[0]); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

var synthCmd = &cobra.Command{
	Use:   "synth <dir>",
	Short: "Write a deterministic synthetic event store",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if synthConfig.Events < 0 || synthConfig.ParticlesPerEvent < 0 || synthConfig.MaxDepth < 0 {
			logrus.Fatalf("events, particles and depth must be non-negative")
		}
		if err := writeSynth(args[0], synthConfig); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(
		storeCommand("tracks", "Print the decay forest of each event", printTracks),
		storeCommand("hits", "Print per-track simhit counts of each event", printHits),
		storeCommand("genparticles", "Print the generator particles of each event", printGenParticles),
		branchesCmd,
		synthCmd,
	)
	synthCmd.Flags().IntVar(&synthConfig.Events, "events", synthConfig.Events, "Number of events")
	synthCmd.Flags().IntVar(&synthConfig.ParticlesPerEvent, "particles", synthConfig.ParticlesPerEvent, "Primary photons per event")
	synthCmd.Flags().IntVar(&synthConfig.MaxDepth, "depth", synthConfig.MaxDepth, "Maximum shower generations")
	synthCmd.Flags().Float64Var(&synthConfig.MeanEnergy, "mean-energy", synthConfig.MeanEnergy, "Mean primary energy in GeV")
	synthCmd.Flags().Int64Var(&synthConfig.Seed, "seed", synthConfig.Seed, "Seed for event generation")
}
