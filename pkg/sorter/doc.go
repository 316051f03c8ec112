// Package sorter orders registry tag records before version matching.
//
// Key components:
//   - Sorter: Common interface for all ordering policies.
//   - APISorter: Keeps the order returned by the registry.
//   - TimeSorter: Orders records by last update time, newest first.
//   - SemverSorter: Orders records by their highest semantic version tag.
//   - ForPolicy: Returns the sorter for a types.SortPolicy.
//
// Usage example:
//
//	s, err := sorter.ForPolicy(types.SortSemver)
//	if err != nil {
//	    return err
//	}
//	s.Sort(records)
//
// All sorters are stable and sort in place.
package sorter
