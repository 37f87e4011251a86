package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hgcal-tools/simchain/driver"
)

var (
	// Descriptor flags shared by driver, hash and status
	driverProgram string   // Driver executable
	driverOpts    []string // key=value driver options
	driverOutput  string   // --python_filename for the generated configuration
	digestName    string   // Digest algorithm for the hash line

	// Execution flags
	forceRun  bool // Rerun even when the artifact is fresh
	dryRun    bool // Log the command instead of running it
	keepGoing bool // Record nonzero exits instead of failing
	loadOut   bool // Print the artifact content without its hash line
)

// parseOptions splits each "key=value" on the first '='.
func parseOptions(pairs []string) (map[string]string, error) {
	opts := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid option %q; want key=value", p)
		}
		if _, dup := opts[k]; dup {
			return nil, fmt.Errorf("option %s given more than once", k)
		}
		opts[k] = v
	}
	return opts, nil
}

func descriptorFromFlags(args []string) (*driver.Descriptor, error) {
	opts, err := parseOptions(driverOpts)
	if err != nil {
		return nil, err
	}
	if !driver.IsValidAlgorithm(digestName) {
		return nil, fmt.Errorf("unknown digest %q; valid: sha224, blake3", digestName)
	}
	return driver.Build(driver.Spec{Program: driverProgram, Args: args, Options: opts, OutputFile: driverOutput})
}

func newMaterializer(alg driver.Algorithm) *driver.Materializer {
	return driver.NewMaterializer(driver.NewExecRunner(subprocessLog), alg)
}

func runDriver(w io.Writer, d *driver.Descriptor, m *driver.Materializer, opts driver.RunOptions, load bool) error {
	if load {
		content, _, err := m.Load(d, "", opts)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, content)
		return err
	}
	res, err := m.Ensure(d, opts)
	if err != nil {
		return err
	}
	state := "ran"
	switch {
	case res.Skipped:
		state = "skipped"
	case res.Dry:
		state = "dry"
	}
	_, err = fmt.Fprintf(w, "%s %s (%s) exit=%d hash=%s\n", state, res.Path, res.Reason, res.ExitCode, res.Hash)
	return err
}

func printHash(w io.Writer, d *driver.Descriptor, alg driver.Algorithm) error {
	digest, err := driver.Hash(d, alg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n%s\n", d, digest)
	return err
}

func printStatus(w io.Writer, d *driver.Descriptor, m *driver.Materializer) error {
	decision, err := m.Decide(d, false)
	if err != nil {
		return err
	}
	action := "skip"
	if decision.Run {
		action = "run"
	}
	stored := decision.Stored
	if stored == "" {
		stored = "-"
	}
	_, err = fmt.Fprintf(w, "%s %s (%s) stored=%s want=%s\n", action, d.OutputPath(), decision.Reason, stored, decision.Want)
	return err
}

var driverCmd = &cobra.Command{
	Use:   "driver [-- args...]",
	Short: "Run the configuration driver unless its output is already up to date",
	Example: `  simchain driver --opt -s=GEN --opt -n=10 --opt --era=Phase2C9 \
      --output gen_driver.py -- TTbar_14TeV_TuneCP5_cfi --no_exec`,
	Run: func(cmd *cobra.Command, args []string) {
		d, err := descriptorFromFlags(args)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		opts := driver.RunOptions{Force: forceRun, Dry: dryRun, AllowFailure: keepGoing}
		if err := runDriver(cmd.OutOrStdout(), d, newMaterializer(driver.Algorithm(digestName)), opts, loadOut); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

var hashCmd = &cobra.Command{
	Use:   "hash [-- args...]",
	Short: "Print the canonical descriptor text and its digest",
	Run: func(cmd *cobra.Command, args []string) {
		d, err := descriptorFromFlags(args)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := printHash(cmd.OutOrStdout(), d, driver.Algorithm(digestName)); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [-- args...]",
	Short: "Report whether the driver would run and why",
	Run: func(cmd *cobra.Command, args []string) {
		d, err := descriptorFromFlags(args)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := printStatus(cmd.OutOrStdout(), d, newMaterializer(driver.Algorithm(digestName))); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func addDescriptorFlags(c *cobra.Command) {
	c.Flags().StringVar(&driverProgram, "program", driver.DefaultProgram, "Driver executable")
	c.Flags().StringArrayVar(&driverOpts, "opt", nil, "Driver option as key=value, e.g. --opt -s=GEN (repeatable)")
	c.Flags().StringVar(&driverOutput, "output", "", "Generated configuration path (sets "+driver.OutputOption+")")
	c.Flags().StringVar(&digestName, "digest", string(driver.AlgorithmSHA224), "Digest algorithm for the hash line (sha224, blake3)")
}

func init() {
	for _, c := range []*cobra.Command{driverCmd, hashCmd, statusCmd} {
		addDescriptorFlags(c)
		rootCmd.AddCommand(c)
	}
	driverCmd.Flags().BoolVar(&forceRun, "force", false, "Rerun even when the artifact is up to date")
	driverCmd.Flags().BoolVar(&dryRun, "dry", false, "Log the command without running it")
	driverCmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Report a nonzero exit instead of failing")
	driverCmd.Flags().BoolVar(&loadOut, "load", false, "Print the configuration without its hash line (defaults the output to "+driver.DefaultOutputFile+")")
}
