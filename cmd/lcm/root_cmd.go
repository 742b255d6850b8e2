package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/packethost/pkg/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/iza-institute-of-labor-economics/lcm/pkg/lcm"
	"github.com/iza-institute-of-labor-economics/lcm/pkg/lcm/drawer"
)

const longHelp = `
Inspect a dynamic choice model.

Loads a YAML model file, builds the state-choice space and reports the
cardinality of every grid. Filters and auxiliary functions are code, not
data, so spaces built here are unfiltered; filtered spaces are a library
feature.

Each CLI argument has a corresponding environment variable in the form of the
CLI argument prefixed with LCM. If both the flag and environment variable
form are specified, the flag form takes precedence.

Examples
  --model    LCM_MODEL
  --draw     LCM_DRAW
  --workers  LCM_WORKERS
`

// EnvNamePrefix defines the environment variable prefix required for all
// environment configuration.
const EnvNamePrefix = "LCM"

// RootCommandOptions encompasses all the configurability of the RootCommand.
type RootCommandOptions struct {
	ModelPath string `mapstructure:"model"`
	DrawPath  string `mapstructure:"draw"`
	Workers   int    `mapstructure:"workers"`
}

// RootCommand is the root command that represents the entrypoint to lcm.
type RootCommand struct {
	*cobra.Command
	vpr  *viper.Viper
	Opts RootCommandOptions
}

// NewRootCommand creates a new RootCommand instance.
func NewRootCommand() (*RootCommand, error) {
	rootCmd := &RootCommand{
		Command: &cobra.Command{
			Use:          os.Args[0],
			Long:         longHelp,
			SilenceUsage: true,
		},
	}

	rootCmd.PreRunE = rootCmd.PreRun
	rootCmd.RunE = rootCmd.Run
	rootCmd.Flags().SortFlags = false // Print flag help in the order they're specified.

	// Ensure keys with `-` use `_` for env keys else Viper won't match them.
	rootCmd.vpr = viper.NewWithOptions(viper.EnvKeyReplacer(strings.NewReplacer("-", "_")))
	rootCmd.vpr.SetEnvPrefix(EnvNamePrefix)

	if err := rootCmd.configureFlags(); err != nil {
		return nil, err
	}

	return rootCmd, nil
}

// PreRun satisfies cobra.Command.PreRunE and unmarshalls. Its responsible
// for populating c.Opts.
func (c *RootCommand) PreRun(*cobra.Command, []string) error {
	if err := c.vpr.Unmarshal(&c.Opts); err != nil {
		return err
	}

	return c.validateOpts()
}

// Run executes lcm.
func (c *RootCommand) Run(cmd *cobra.Command, _ []string) error {
	logger, err := log.Init("github.com/iza-institute-of-labor-economics/lcm")
	if err != nil {
		return errors.Errorf("initialize logger: %v", err)
	}
	defer logger.Close()

	l := logger.Package("main")
	l.With("opts", fmt.Sprintf("%+v", c.Opts)).Info("root command options")

	model, err := lcm.LoadModel(c.Opts.ModelPath)
	if err != nil {
		return errors.Wrap(err, "unable to load model")
	}

	space, err := lcm.CreateStateChoiceSpace(cmd.Context(), model,
		lcm.WithWorkers(c.Opts.Workers),
		lcm.WithTimings(func(stage string, elapsed time.Duration) {
			l.With("stage", stage, "elapsed", elapsed.String()).Info("stage finished")
		}),
	)
	if err != nil {
		return errors.Wrap(err, "unable to build state-choice space")
	}

	for name, grid := range space.ValueGrid {
		l.With("variable", name, "points", len(grid)).Info("dense variable")
	}

	combinations := 0
	for name, column := range space.CombinationGrid {
		combinations = len(column)
		l.With("variable", name, "combinations", len(column)).Info("sparse variable")
	}

	l.With(
		"model", model.Name,
		"periods", model.NPeriods,
		"dense", len(space.ValueGrid),
		"sparse", len(space.CombinationGrid),
		"combinations", combinations,
	).Info("state-choice space built")

	if c.Opts.DrawPath != "" {
		if err := c.drawModel(model); err != nil {
			return err
		}
		l.With("file", c.Opts.DrawPath).Info("model graph written")
	}

	return nil
}

func (c *RootCommand) drawModel(model *lcm.Model) error {
	d := drawer.New()
	if err := d.AddModel(model); err != nil {
		return errors.Wrap(err, "unable to add model to drawer")
	}

	file, err := os.Create(c.Opts.DrawPath)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", c.Opts.DrawPath)
	}
	defer file.Close()

	if err := d.Draw(file); err != nil {
		return errors.Wrap(err, "unable to draw model")
	}

	return nil
}

func (c *RootCommand) configureFlags() error {
	c.Flags().String("model", "", "Path to a YAML model file")
	c.Flags().String("draw", "", "Path to write the model graph as graphviz DOT")
	c.Flags().Int("workers", runtime.NumCPU(), "Bound on concurrent filter evaluation")

	if err := c.vpr.BindPFlags(c.Flags()); err != nil {
		return err
	}

	var err error
	c.Flags().VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = c.vpr.BindEnv(f.Name)
	})

	return err
}

func (c *RootCommand) validateOpts() error {
	if c.Opts.ModelPath == "" {
		return errors.New("--model is required")
	}

	return nil
}
