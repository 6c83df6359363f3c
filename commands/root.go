// Package commands wires configuration, scraping and the output sinks into
// the ev-subsidy command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ev-subsidy-scraper/config"
	"ev-subsidy-scraper/utils"
)

// app is the state shared by every subcommand once configuration is loaded
type app struct {
	cfg     *config.Config
	logger  *utils.Logger
	logFile io.Closer
	out     io.Writer
}

var (
	current   = &app{out: os.Stdout}
	debugFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "ev-subsidy",
	Short:         "Scrapes EV purchase subsidies from ev.or.kr and publishes them",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return current.setup(cfg, debugFlag)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		current.close()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "print debug logs")
}

// setup builds the logger from configuration
func (a *app) setup(cfg *config.Config, debug bool) error {
	a.cfg = cfg
	if cfg.LogFile != "" {
		logger, closer, err := utils.NewFileLogger(cfg.LogFile)
		if err != nil {
			return err
		}
		a.logger, a.logFile = logger, closer
	} else {
		a.logger = utils.NewLogger()
	}
	a.logger.SetDebug(cfg.Debug || debug)
	return nil
}

func (a *app) close() {
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}

// Execute runs the CLI until it finishes or the process is interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
