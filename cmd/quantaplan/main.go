// Command quantaplan binds, explains and runs the sample plans over an
// in-memory device.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dshills/quantaplan/internal/config"
	"github.com/dshills/quantaplan/internal/demo"
	"github.com/dshills/quantaplan/internal/log"
)

var (
	version = "0.1.0"
	commit  = "unknown"
)

// cli is the state shared by every subcommand.
type cli struct {
	configFile string
	logLevel   string

	cfg    *config.Config
	logger log.Logger
	env    *demo.Environment
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	c.cfg = cfg
	c.logger = log.Configure(cfg.Log, cmd.ErrOrStderr())
	c.env, err = demo.NewEnvironment(cfg, c.logger)
	return err
}

func (c *cli) registerFlags(f *pflag.FlagSet) {
	f.StringVar(&c.configFile, "config", "", "path to a YAML configuration file")
	f.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "quantaplan",
		Short: "bind, explain and run sample relational plans",
		Long: `
quantaplan builds named plans over generated Orders and Customers tables,
binds them against an in-memory device and shows how each restriction,
aggregate and browse was compiled.
`,
		Version:           fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	c.registerFlags(root.PersistentFlags())

	root.AddCommand(
		newScenariosCmd(c),
		newExplainCmd(c),
		newRunCmd(c),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
