/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/substantialcattle5/redup/internal/deduplication"
	"github.com/substantialcattle5/redup/internal/digest"
	"github.com/substantialcattle5/redup/internal/fs"
	"github.com/substantialcattle5/redup/internal/integrity"
	"github.com/substantialcattle5/redup/internal/manifest"
	"github.com/substantialcattle5/redup/internal/ui"
)

var errFilesDiffer = errors.New("contents differ")

type verifyOptions struct {
	hashAlgorithm string
	indexPath     string
}

func newVerifyCmd(root *rootOptions) *cobra.Command {
	opts := &verifyOptions{}
	cmd := &cobra.Command{
		Use:   "verify <a> [b]",
		Short: "Check that two files have identical content",
		Long: `Compare two files by whole-file digest, or with --index compare one file
against the original digest recorded in an index file.

Exits non-zero when the contents differ.

Example:
  redup verify disk.img restored.img
  redup verify --index disk.img.reduced.rdix restored.img`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.indexPath != "" {
				if len(args) != 1 {
					return fmt.Errorf("--index takes exactly one file to check")
				}
				return runVerifyAgainstIndex(cmd, opts, args[0])
			}
			if len(args) != 2 {
				return fmt.Errorf("verify needs two files, or one file and --index")
			}
			return runVerify(cmd, root, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.hashAlgorithm, "hash", "", "digest algorithm (default from config)")
	cmd.Flags().StringVar(&opts.indexPath, "index", "", "compare against the original recorded in this index file")
	return cmd
}

func runVerify(cmd *cobra.Command, root *rootOptions, opts *verifyOptions, a, b string) error {
	algorithm := root.cfg.Chunking.HashAlgorithm
	if opts.hashAlgorithm != "" {
		algorithm = opts.hashAlgorithm
	}
	fn, err := digest.New(algorithm)
	if err != nil {
		return err
	}

	for _, p := range []string{a, b} {
		if _, err := fs.VerifyFileAndReturnFileInfo(p); err != nil {
			return err
		}
	}

	same, err := integrity.SameFiles(fn, a, b)
	if err != nil {
		return err
	}
	ui.PrintVerifyResult(cmd.OutOrStdout(), a, b, same)
	if !same {
		return errFilesDiffer
	}
	return nil
}

func runVerifyAgainstIndex(cmd *cobra.Command, opts *verifyOptions, path string) error {
	m, _, err := manifest.ReadFile(opts.indexPath)
	if err != nil {
		return err
	}
	if opts.hashAlgorithm != "" && opts.hashAlgorithm != m.Algorithm {
		return fmt.Errorf("%w: index uses %s, asked for %s", deduplication.ErrAlgorithmMismatch, m.Algorithm, opts.hashAlgorithm)
	}
	fn, err := digest.New(m.Algorithm)
	if err != nil {
		return err
	}

	info, err := fs.VerifyFileAndReturnFileInfo(path)
	if err != nil {
		return err
	}
	actual, err := integrity.FileDigest(fn, path)
	if err != nil {
		return err
	}

	same := info.Size() == m.OriginalSize && actual == m.Digest()
	ui.PrintVerifyResult(cmd.OutOrStdout(), path, "the indexed original", same)
	if !same {
		return &deduplication.IntegrityError{Expected: m.Digest(), Actual: actual}
	}
	return nil
}
