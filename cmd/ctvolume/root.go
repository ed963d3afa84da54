package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ctvolume/internal/models"
	"ctvolume/pkg/config"
	"ctvolume/pkg/logging"
	"ctvolume/pkg/volume"
)

var log = logging.NamedLogger("ctvolume")

// app carries the settings shared by every command.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.DefaultConfig()}

	rootCmd := &cobra.Command{
		Use:           "ctvolume",
		Short:         "CT slice to volume converter",
		Long:          "assembles CT slice directories into .img volumes, attaches .dose overlays and renders, crops, resamples or exports them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetOutput(cmd.ErrOrStderr())
			return a.setup()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "ctvolume.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", fmt.Sprintf("logging level (%s)", strings.Join(logging.Levels, ", ")))

	rootCmd.AddCommand(
		a.convertCmd(),
		a.infoCmd(),
		a.cropCmd(),
		a.doseCmd(),
		a.resizeCmd(),
		a.phantomCmd(),
		a.compareCmd(),
		a.probeCmd(),
		a.sliceCmd(),
		a.slicesCmd(),
		a.exportCmd(),
		a.configCmd(),
	)

	return rootCmd
}

func (a *app) setup() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	if err := logging.Setup(level); err != nil {
		return err
	}
	log.Debugf("using configuration %s", a.configPath)
	return nil
}

// store creates a volume store configured from the loaded settings.
func (a *app) store() *volume.Store {
	return volume.NewStore(a.cfg.VolumeOptions()...)
}

// open loads a slice directory or a volume file.
func (a *app) open(input string) (*volume.Store, error) {
	s := a.store()
	if err := s.Open(input); err != nil {
		return nil, err
	}
	return s, nil
}

// outputPath appends the configured image extension to names without one.
func (a *app) outputPath(path string) string {
	if filepath.Ext(path) == "" {
		return path + a.cfg.Output.Extension
	}
	return path
}

func parseAxisFlag(s string) (models.Axis, error) {
	axis, err := models.ParseAxis(s)
	if err != nil {
		return 0, fmt.Errorf("--axis: %w", err)
	}
	return axis, nil
}
