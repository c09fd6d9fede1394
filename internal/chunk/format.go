package chunk

import (
	"fmt"

	"github.com/substantialcattle5/redup/util"
)

// FormatChunkInfoString formats per-chunk processing information for verbose output
func FormatChunkInfoString(position int64, length int, displayHash string, deduplicated bool) string {
	dedupInfo := ""
	if deduplicated {
		dedupInfo = " [deduplicated]"
	}

	return fmt.Sprintf("Chunk %d: %s, hash: %s%s\n",
		position,
		util.HumanReadableSize(int64(length)),
		displayHash,
		dedupInfo)
}
