package sorter

import (
	"errors"
	"fmt"

	"github.com/mirio/uptainer/pkg/types"
)

// ErrUnknownPolicy indicates a sort policy name no sorter implements.
var ErrUnknownPolicy = errors.New("unknown sort policy")

// Sorter provides a common interface for ordering tag records.
type Sorter interface {
	Sort(records []types.TagRecord)
}

// APISorter leaves records in registry order.
type APISorter struct{}

// Sort is a no-op.
func (APISorter) Sort([]types.TagRecord) {}

// ForPolicy returns the sorter implementing a policy.
// An empty policy selects the registry order.
//
// Parameters:
//   - policy: Policy name.
//
// Returns:
//   - Sorter: Matching sorter.
//   - error: ErrUnknownPolicy wrapped in ErrInvalidConfiguration for unknown names.
func ForPolicy(policy types.SortPolicy) (Sorter, error) {
	switch policy {
	case types.SortAPI, "":
		return APISorter{}, nil
	case types.SortUpdated:
		return TimeSorter{}, nil
	case types.SortSemver:
		return SemverSorter{}, nil
	default:
		return nil, fmt.Errorf("%w: %w: %q", types.ErrInvalidConfiguration, ErrUnknownPolicy, string(policy))
	}
}
