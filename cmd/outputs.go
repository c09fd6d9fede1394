package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/substantialcattle5/redup/internal/atomic"
	"github.com/substantialcattle5/redup/internal/fs"
	"github.com/substantialcattle5/redup/internal/ui"
)

// checkOutputs refuses to touch existing outputs unless forced or confirmed.
func checkOutputs(cmd *cobra.Command, force bool, paths ...string) error {
	interactive := ui.IsInteractive(cmd.InOrStdin())
	for _, path := range paths {
		exists, err := fs.OutputExists(path)
		if err != nil {
			return err
		}
		if !exists || force {
			continue
		}
		if err := ui.ConfirmReplace(path, cmd.InOrStdin(), cmd.ErrOrStderr(), interactive); err != nil {
			return err
		}
	}
	return nil
}

// rejectSameFile fails when an output would overwrite one of the inputs.
func rejectSameFile(output string, inputs ...string) error {
	for _, in := range inputs {
		if fs.SameFile(output, in) {
			return fmt.Errorf("output %s is the same file as input %s", output, in)
		}
	}
	return nil
}

// beginOutputs recovers interrupted sessions in the output directory and
// starts a new transaction there.
func beginOutputs(output string, metadata map[string]any) (*atomic.Transaction, error) {
	dir, err := fs.OutputDir(output)
	if err != nil {
		return nil, err
	}
	if err := fs.EnsureDirectory(dir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	res, err := atomic.Recover(dir)
	if err != nil {
		return nil, err
	}
	if n := res.RolledBack + res.ResumedCommits; n > 0 {
		log.Infof("recovered %d interrupted session(s) in %s", n, dir)
	}
	if len(res.Errors) > 0 {
		log.Warnf("could not recover every session in %s: %v", dir, errors.Join(res.Errors...))
	}

	return atomic.Begin(dir, metadata)
}

// finish commits txn when err is nil and rolls it back otherwise.
func finish(txn *atomic.Transaction, err error) error {
	if err != nil {
		if rerr := txn.Rollback(); rerr != nil {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rerr))
		}
		return err
	}
	return txn.Commit()
}
