package tool

import (
	"fmt"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// UnifiedDiff generates a unified diff between two versions of a file
// using the myers algorithm.
func UnifiedDiff(filePath, oldContent, newContent string) string {
	edits := myers.ComputeEdits(span.URIFromPath(filePath), oldContent, newContent)
	return fmt.Sprint(gotextdiff.ToUnified(filePath, filePath, oldContent, edits))
}

// ApplyEdits recomputes newContent from oldContent by replaying the edits of
// a myers diff between them. ApplyEdits(path, a, b) == b for all a, b.
func ApplyEdits(filePath, oldContent, newContent string) string {
	edits := myers.ComputeEdits(span.URIFromPath(filePath), oldContent, newContent)
	return gotextdiff.ApplyEdits(oldContent, edits)
}

// DiffStat counts added and removed lines in a unified diff.
func DiffStat(unified string) (added, removed int) {
	for _, line := range strings.Split(unified, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}
