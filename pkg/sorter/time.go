package sorter

import (
	"sort"

	"github.com/mirio/uptainer/pkg/types"
)

// ByUpdated implements sort.Interface for last update ordering, newest first.
// Records with an unknown update time sort after dated ones.
type ByUpdated []types.TagRecord

func (r ByUpdated) Len() int { return len(r) }

func (r ByUpdated) Swap(i, j int) { r[i], r[j] = r[j], r[i] }

func (r ByUpdated) Less(i, j int) bool {
	if r[i].LastUpdated.IsZero() != r[j].LastUpdated.IsZero() {
		return !r[i].LastUpdated.IsZero()
	}

	return r[i].LastUpdated.After(r[j].LastUpdated)
}

// TimeSorter sorts records by last update time, keeping the registry order among ties.
type TimeSorter struct{}

// Sort orders records in place, newest first.
func (TimeSorter) Sort(records []types.TagRecord) {
	sort.Stable(ByUpdated(records))
}
