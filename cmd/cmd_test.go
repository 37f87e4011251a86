package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hgcal-tools/simchain/driver"
	"github.com/hgcal-tools/simchain/eventstore"
	"github.com/hgcal-tools/simchain/internal/testutil"
	"github.com/hgcal-tools/simchain/pipeline"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
		subprocessLog.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"-s=GEN,SIM", "--conditions=auto:phase2_realistic_T21", "--customise_commands=a=b", "--empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"-s":                   "GEN,SIM",
		"--conditions":         "auto:phase2_realistic_T21",
		"--customise_commands": "a=b",
		"--empty":              "",
	}, opts)

	for _, bad := range [][]string{{"-s"}, {"=GEN"}, {"-n=1", "-n=2"}} {
		_, err := parseOptions(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestDriverCommands_RunThenSkip(t *testing.T) {
	// GIVEN a fake driver and a descriptor writing into a temp dir
	fake := testutil.NewFakeDriver(t, 0)
	out := filepath.Join(t.TempDir(), "gen_driver.py")
	d, err := driver.Build(driver.Spec{
		Program:    fake.Program,
		Args:       []string{"TTbar_14TeV_TuneCP5_cfi", "--no_exec"},
		Options:    map[string]string{"-s": "GEN", "-n": "10"},
		OutputFile: out,
	})
	require.NoError(t, err)
	m := newMaterializer(driver.AlgorithmSHA224)

	// WHEN status is asked before anything ran
	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, d, m))
	// THEN it reports a run because the artifact is missing
	assert.True(t, strings.HasPrefix(buf.String(), "run "+out+" (missing) stored=-"))

	buf.Reset()
	require.NoError(t, runDriver(&buf, d, m, driver.RunOptions{}, false))
	assert.True(t, strings.HasPrefix(buf.String(), "ran "+out+" (missing) exit=0"))

	buf.Reset()
	require.NoError(t, runDriver(&buf, d, m, driver.RunOptions{}, false))
	assert.True(t, strings.HasPrefix(buf.String(), "skipped "+out+" (fresh)"))
	assert.Equal(t, 1, fake.Runs(t))

	buf.Reset()
	require.NoError(t, printStatus(&buf, d, m))
	assert.True(t, strings.HasPrefix(buf.String(), "skip "+out+" (fresh)"))
}

func TestRunDriver_LoadPrintsContent(t *testing.T) {
	fake := testutil.NewFakeDriver(t, 0)
	d, err := driver.Build(driver.Spec{
		Program:    fake.Program,
		Args:       []string{"gen"},
		OutputFile: filepath.Join(t.TempDir(), "gen.py"),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runDriver(&buf, d, newMaterializer(driver.AlgorithmBLAKE3), driver.RunOptions{}, true))
	assert.True(t, strings.HasPrefix(buf.String(), "# Auto generated configuration file\n"))
}

func TestPrintHash(t *testing.T) {
	d, err := driver.Build(driver.Spec{Args: []string{"gen"}, Options: map[string]string{"-s": "GEN"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printHash(&buf, d, driver.AlgorithmSHA224))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	want, err := driver.Hash(d, driver.AlgorithmSHA224)
	require.NoError(t, err)
	assert.Equal(t, string(want), lines[len(lines)-1])
	assert.Equal(t, "<cmsDriver.py", lines[0])
}

func TestRunPipeline_PrintsRecordsAndSummary(t *testing.T) {
	fake := testutil.NewFakeDriver(t, 0)
	dir := t.TempDir()
	cfg := &pipeline.Config{
		Version: pipeline.ConfigVersion,
		Program: fake.Program,
		Stages: []pipeline.StageConfig{
			{Name: "gen", Args: []string{"gen"}, PythonFilename: filepath.Join(dir, "gen.py")},
			{Name: "sim", Args: []string{"sim"}, PythonFilename: filepath.Join(dir, "sim.py")},
		},
	}
	p, err := pipeline.New(cfg, pipeline.NewNotifier(nil))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runPipeline(&buf, p, pipeline.RunOptions{}))
	assert.Contains(t, buf.String(), "stages: 2 ran: 2 skipped: 0")

	buf.Reset()
	require.NoError(t, showPipeline(&buf, p))
	assert.Contains(t, buf.String(), "gen: "+filepath.Join(dir, "gen.py")+" (fresh)")
	assert.Contains(t, buf.String(), "sim: "+filepath.Join(dir, "sim.py")+" (fresh)")
}

func TestRunPipeline_ReportsFailure(t *testing.T) {
	fake := testutil.NewFakeDriver(t, 2)
	cfg := &pipeline.Config{
		Version: pipeline.ConfigVersion,
		Program: fake.Program,
		Stages:  []pipeline.StageConfig{{Name: "gen", Args: []string{"gen"}, PythonFilename: filepath.Join(t.TempDir(), "gen.py")}},
	}
	p, err := pipeline.New(cfg, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = runPipeline(&buf, p, pipeline.RunOptions{})
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "failed", "records are printed even when the run fails")
}

func TestEventCommands(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	cfg := eventstore.DefaultSynthConfig()
	require.NoError(t, writeSynth(dir, cfg))

	var buf bytes.Buffer
	require.NoError(t, printTracks(&buf, dir, 1))
	out := buf.String()
	assert.Contains(t, out, "event 1\n")
	assert.NotContains(t, out, "event 2\n")
	assert.Contains(t, out, "\n  <trackid=", "daughters are indented below their root")

	buf.Reset()
	require.NoError(t, printHits(&buf, dir, 0))
	assert.Equal(t, cfg.Events, strings.Count(buf.String(), "simhits on"))

	buf.Reset()
	require.NoError(t, printGenParticles(&buf, dir, 1))
	assert.Equal(t, cfg.ParticlesPerEvent, strings.Count(buf.String(), "<pdgid=22"))

	buf.Reset()
	require.NoError(t, printBranches(&buf, dir))
	assert.Contains(t, buf.String(), "  SimTracks_g4SimHits__SIM (tracks, ")
}

func TestEventCommands_MissingStore(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, printTracks(&buf, filepath.Join(t.TempDir(), "nope"), 1))
}
