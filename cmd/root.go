/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/substantialcattle5/redup/internal/config"
	"github.com/substantialcattle5/redup/internal/logger"
	"github.com/substantialcattle5/redup/internal/progress"
	"github.com/substantialcattle5/redup/internal/ui"
)

var log = logger.GetLogger("cmd")

// annotationCreatesConfig marks commands that may run before --config exists.
const annotationCreatesConfig = "redup/creates-config"

// rootOptions carries the global flags and the configuration they resolve to.
type rootOptions struct {
	configPath string
	verbose    bool
	quiet      bool
	logLevel   string
	logFile    string

	cfg       *config.Config
	cfgSource string
	logCloser io.Closer
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "redup",
		Short: "redup - fixed-size chunk deduplication",
		Long: `redup splits a file into fixed-size chunks, stores each distinct chunk once
in a reduced file, and records where every chunk belongs in an index file.
The original is rebuilt from the reduced file and its index, and the result
is checked byte-for-byte against a digest of the original.

Example:
  redup dedup disk.img disk.img.reduced
  redup redup disk.img.reduced restored.img
  redup verify disk.img restored.img`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is $HOME/.redup.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Disable progress bars and reduce output")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "append logs to this file instead of stderr")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.AddCommand(
		newDedupCmd(opts),
		newRedupCmd(opts),
		newVerifyCmd(opts),
		newInspectCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

// setup resolves the configuration and points the loggers at their sink.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, source, err := config.Resolve(o.configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || cmd.Annotations[annotationCreatesConfig] != "true" {
			return err
		}
		cfg, source = config.Default(), ""
	}
	o.cfg, o.cfgSource = cfg, source

	level := cfg.Log.Level
	if cmd.Flags().Changed("log-level") {
		level = o.logLevel
	}
	if level != "" {
		if err := logger.SetLogLevelString(level); err != nil {
			return err
		}
	}

	if o.logFile != "" {
		closer, err := logger.SetOutFile(o.logFile)
		if err != nil {
			return err
		}
		o.logCloser = closer
	} else if term.IsTerminal(int(os.Stderr.Fd())) {
		logger.EnableLogColor()
	}

	if source != "" {
		log.Debugf("using config %s", source)
	}
	return nil
}

func (o *rootOptions) close() {
	if o.logCloser != nil {
		logger.SetOutput(os.Stderr)
		if err := o.logCloser.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
		o.logCloser = nil
	}
}

// progressFor returns a progress manager writing to cmd's streams.
func (o *rootOptions) progressFor(cmd *cobra.Command) *progress.Manager {
	return progress.NewManager(progress.Options{
		Quiet:   o.quiet,
		Verbose: o.verbose,
		Out:     cmd.OutOrStdout(),
		Err:     cmd.ErrOrStderr(),
	})
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	opts := &rootOptions{}
	rootCmd := newRootCmd(opts)

	err := rootCmd.ExecuteContext(context.Background())
	opts.close()
	if err != nil {
		ui.Error(os.Stderr, err)
		os.Exit(1)
	}
}
