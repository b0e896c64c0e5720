package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/beamkit/go-scan/logger"
)

func TestLoadDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := Load("")
	require.NoError(err)

	require.Equal("prj:", cfg.Prefix)
	require.Equal("prj:mybusy", cfg.PV(cfg.Records.Busy))
	require.Equal("prj:m1", cfg.PV(cfg.Records.Motor))
	require.Equal("prj:userCalc1", cfg.PV(cfg.Records.Calc))
	require.Equal(5, cfg.Scan.NumSteps)
	require.Equal(2.1, cfg.Scan.StepSize)
	require.Equal(-1.23456, cfg.Scan.Origin)
	require.Equal(30*time.Second, cfg.Scan.MoveTimeout.Std())
	require.Equal(DefaultWaveformLength, cfg.WaveformLength)
	require.Equal("info", cfg.LogLevel)

	level, err := cfg.Level()
	require.NoError(err)
	require.Equal(logger.InfoLevel, level)
}

func TestLoadFile(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "busyscan.yaml")
	data := `
prefix: "beam:"
records:
  busy: scanBusy
  motor: stage1
scan:
  origin: 0
  step_size: 1.5
  num_steps: 10
  move_timeout: 5s
waveform_length: 64
metrics_addr: ":9090"
auto_trigger: 2s
log_level: debug
`
	require.NoError(os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(err)

	require.Equal("beam:scanBusy", cfg.PV(cfg.Records.Busy))
	require.Equal("beam:stage1", cfg.PV(cfg.Records.Motor))
	// unset records fall back to the defaults
	require.Equal("beam:userCalc1", cfg.PV(cfg.Records.Calc))
	require.Equal("beam:t_array", cfg.PV(cfg.Records.TimeSink))

	require.Equal(10, cfg.Scan.NumSteps)
	require.Equal(1.5, cfg.Scan.StepSize)
	require.Equal(5*time.Second, cfg.Scan.MoveTimeout.Std())
	require.Equal(64, cfg.WaveformLength)
	require.Equal(":9090", cfg.MetricsAddr)
	require.Equal(2*time.Second, cfg.AutoTrigger.Std())

	level, err := cfg.Level()
	require.NoError(err)
	require.Equal(logger.DebugLevel, level)

	// origin 0 is a valid configured value, but zero also means unset; the
	// default origin applies
	require.Equal(-1.23456, cfg.Scan.Origin)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	require := require.New(t)

	t.Run("steps exceed waveform length", func(t *testing.T) {
		cfg := &Config{}
		cfg.ApplyDefaults()
		cfg.Scan.NumSteps = 300
		require.Error(cfg.Validate())
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := &Config{LogLevel: "verbose"}
		cfg.ApplyDefaults()
		require.Error(cfg.Validate())
	})

	t.Run("negative auto trigger", func(t *testing.T) {
		cfg := &Config{AutoTrigger: Duration(-time.Second)}
		cfg.ApplyDefaults()
		require.Error(cfg.Validate())
	})
}
