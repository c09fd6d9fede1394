package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/substantialcattle5/redup/internal/deduplication"
	"github.com/substantialcattle5/redup/internal/manifest"
	"github.com/substantialcattle5/redup/util"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	labelColor   = color.New(color.FgCyan)
)

const separatorWidth = 50

// DedupReport names the files a dedup session produced.
type DedupReport struct {
	Input     string
	Reduced   string
	IndexPath string
	Algorithm string
	ChunkSize int
	Stats     deduplication.Stats
}

func separator(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("─", separatorWidth))
}

func field(w io.Writer, label, format string, args ...any) {
	labelColor.Fprintf(w, "  • %-13s", label+":")
	fmt.Fprintf(w, format+"\n", args...)
}

// PrintDedupSummary shows what a dedup session wrote and how much it saved.
func PrintDedupSummary(w io.Writer, r DedupReport) {
	successColor.Fprintln(w, "\n✅ Deduplication complete")
	separator(w)
	field(w, "Input", "%s (%s)", r.Input, util.HumanReadableSize(r.Stats.OriginalSize))
	field(w, "Reduced", "%s (%s)", r.Reduced, util.HumanReadableSize(r.Stats.ReducedSize))
	field(w, "Index", "%s", r.IndexPath)
	field(w, "Chunking", "%s chunks, %s", util.HumanReadableSize(int64(r.ChunkSize)), r.Algorithm)
	printStats(w, r.Stats)
}

func printStats(w io.Writer, s deduplication.Stats) {
	field(w, "Chunks", "%d total, %d distinct, %d duplicate", s.TotalChunks, s.DistinctChunks, s.DuplicateChunks)
	field(w, "Saved", "%s (%.1f%%)", util.HumanReadableSize(s.SavedSpace), s.Ratio())
}

// PrintRedupSuccess confirms a verified reconstruction.
func PrintRedupSuccess(w io.Writer, output string, size int64, fingerprint string) {
	successColor.Fprintln(w, "\n✅ Reconstruction verified")
	separator(w)
	field(w, "Output", "%s (%s)", output, util.HumanReadableSize(size))
	field(w, "Digest", "%s", fingerprint)
}

// PrintVerifyResult reports whether two streams have identical content.
func PrintVerifyResult(w io.Writer, a, b string, same bool) {
	if same {
		successColor.Fprintf(w, "✅ %s and %s are identical\n", a, b)
		return
	}
	errorColor.Fprintf(w, "❌ %s and %s differ\n", a, b)
}

// PrintIndexInfo describes an index file, optionally listing every entry.
func PrintIndexInfo(w io.Writer, path, compressionType string, m *manifest.Manifest, stats deduplication.Stats, showEntries bool) {
	successColor.Fprintf(w, "📋 Index %s\n", path)
	separator(w)
	field(w, "Format", "v%d, %s compression", m.Version, compressionType)
	field(w, "Session", "%s", m.SessionID)
	field(w, "Created", "%s", m.Created().Format("2006-01-02 15:04:05 MST"))
	field(w, "Algorithm", "%s", m.Algorithm)
	field(w, "Chunk size", "%s", util.HumanReadableSize(int64(m.ChunkSize)))
	field(w, "Original", "%s, digest %s", util.HumanReadableSize(m.OriginalSize), m.Digest().Hex())
	field(w, "Reduced", "%s", util.HumanReadableSize(m.ReducedSize))
	printStats(w, stats)

	if !showEntries {
		return
	}
	fmt.Fprintln(w)
	labelColor.Fprintln(w, "Entries (first-occurrence order):")
	for i, e := range m.Entries {
		fmt.Fprintf(w, "  %4d  %x  %6d B  positions %s\n", i, e.Digest, e.Length, formatPositions(e.Positions))
	}
}

func formatPositions(positions []int64) string {
	const limit = 8
	parts := make([]string, 0, limit+1)
	for i, p := range positions {
		if i == limit {
			parts = append(parts, fmt.Sprintf("… (+%d)", len(positions)-limit))
			break
		}
		parts = append(parts, fmt.Sprintf("%d", p))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Warning prints a yellow warning line.
func Warning(w io.Writer, format string, args ...any) {
	warnColor.Fprintf(w, "⚠️  "+format+"\n", args...)
}

// Error prints a red error line.
func Error(w io.Writer, err error) {
	errorColor.Fprintf(w, "Error: %v\n", err)
}
