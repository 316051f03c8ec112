package sorter

import (
	"slices"

	"github.com/Masterminds/semver/v3"

	"github.com/mirio/uptainer/pkg/types"
)

// SemverSorter sorts records by the highest semantic version among their tags, highest first.
// Records without any parseable tag keep their relative order after the versioned ones.
type SemverSorter struct{}

// Sort orders records in place.
func (SemverSorter) Sort(records []types.TagRecord) {
	versions := make(map[int]*semver.Version, len(records))

	indexed := make([]int, len(records))
	for i := range records {
		indexed[i] = i
		versions[i] = highestVersion(records[i].Tags)
	}

	slices.SortStableFunc(indexed, func(a, b int) int {
		va, vb := versions[a], versions[b]

		switch {
		case va == nil && vb == nil:
			return 0
		case va == nil:
			return 1
		case vb == nil:
			return -1
		default:
			return vb.Compare(va)
		}
	})

	sorted := make([]types.TagRecord, len(records))
	for i, idx := range indexed {
		sorted[i] = records[idx]
	}

	copy(records, sorted)
}

// highestVersion returns the largest parseable semantic version among tags, nil when none parse.
func highestVersion(tags []string) *semver.Version {
	var highest *semver.Version

	for _, tag := range tags {
		version, err := semver.NewVersion(tag)
		if err != nil {
			continue
		}

		if highest == nil || version.GreaterThan(highest) {
			highest = version
		}
	}

	return highest
}
