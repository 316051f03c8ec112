package sorter_test

import (
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/mirio/uptainer/pkg/sorter"
	"github.com/mirio/uptainer/pkg/types"
)

func record(updated time.Time, tags ...string) types.TagRecord {
	return types.TagRecord{Tags: tags, LastUpdated: updated}
}

func firstTags(records []types.TagRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Tags[0])
	}

	return out
}

var _ = ginkgo.Describe("sorters", func() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	ginkgo.Describe("ForPolicy", func() {
		ginkgo.It("should map every known policy", func() {
			for policy, want := range map[types.SortPolicy]sorter.Sorter{
				"":                sorter.APISorter{},
				types.SortAPI:     sorter.APISorter{},
				types.SortUpdated: sorter.TimeSorter{},
				types.SortSemver:  sorter.SemverSorter{},
			} {
				got, err := sorter.ForPolicy(policy)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(got).To(gomega.Equal(want))
			}
		})
		ginkgo.It("should reject unknown policies", func() {
			_, err := sorter.ForPolicy("alphabetical")
			gomega.Expect(err).To(gomega.MatchError(types.ErrInvalidConfiguration))
			gomega.Expect(err).To(gomega.MatchError(sorter.ErrUnknownPolicy))
		})
	})

	ginkgo.Describe("APISorter", func() {
		ginkgo.It("should keep the registry order", func() {
			records := []types.TagRecord{record(base, "b"), record(base.Add(time.Hour), "a")}
			sorter.APISorter{}.Sort(records)
			gomega.Expect(firstTags(records)).To(gomega.Equal([]string{"b", "a"}))
		})
	})

	ginkgo.Describe("TimeSorter", func() {
		ginkgo.It("should sort newest first", func() {
			records := []types.TagRecord{
				record(base, "old"),
				record(base.Add(2*time.Hour), "newest"),
				record(base.Add(time.Hour), "middle"),
			}
			sorter.TimeSorter{}.Sort(records)
			gomega.Expect(firstTags(records)).To(gomega.Equal([]string{"newest", "middle", "old"}))
		})
		ginkgo.It("should keep registry order among ties and put undated records last", func() {
			records := []types.TagRecord{
				record(time.Time{}, "undated"),
				record(base, "first"),
				record(base, "second"),
			}
			sorter.TimeSorter{}.Sort(records)
			gomega.Expect(firstTags(records)).To(gomega.Equal([]string{"first", "second", "undated"}))
		})
	})

	ginkgo.Describe("SemverSorter", func() {
		ginkgo.It("should sort by the highest version tag of each record", func() {
			records := []types.TagRecord{
				record(base, "v1.0.1"),
				record(base, "latest", "v1.10.0"),
				record(base, "v1.2.0"),
			}
			sorter.SemverSorter{}.Sort(records)
			gomega.Expect(firstTags(records)).To(gomega.Equal([]string{"latest", "v1.2.0", "v1.0.1"}))
		})
		ginkgo.It("should put records without versions last in their original order", func() {
			records := []types.TagRecord{
				record(base, "pr-13939"),
				record(base, "v0.1.0"),
				record(base, "nightly"),
				record(base, "v0.2.0"),
			}
			sorter.SemverSorter{}.Sort(records)
			gomega.Expect(firstTags(records)).To(gomega.Equal([]string{"v0.2.0", "v0.1.0", "pr-13939", "nightly"}))
		})
	})
})
