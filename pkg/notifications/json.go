package notifications

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mirio/uptainer/pkg/types"
)

var _ json.Marshaler = &Data{}

// errMarshalFailed indicates a failure to marshal notification data to JSON.
var errMarshalFailed = errors.New("failed to marshal notification data")

// jsonMap is a type alias for a JSON-compatible map.
type jsonMap = map[string]any

// MarshalJSON implements json.Marshaler for Data.
func (d Data) MarshalJSON() ([]byte, error) {
	var report jsonMap

	if d.Report != nil {
		report = jsonMap{
			"scanned": marshalReports(d.Report.Scanned()),
			"updated": marshalReports(d.Report.Updated()),
			"failed":  marshalReports(d.Report.Failed()),
			"fresh":   marshalReports(d.Report.Fresh()),
			"stale":   marshalReports(d.Report.Stale()),
		}
	}

	bytes, err := json.Marshal(jsonMap{
		"report": report,
		"title":  d.Title,
		"host":   d.Host,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMarshalFailed, err)
	}

	return bytes, nil
}

// marshalReports converts entry reports to JSON-compatible maps.
func marshalReports(reports []types.EntryReport) []jsonMap {
	jsonReports := make([]jsonMap, len(reports))
	for i, report := range reports {
		jsonReports[i] = jsonMap{
			"name":            report.Name(),
			"imageRepository": report.ImageRepository(),
			"version":         report.Version(),
			"previous":        report.Previous(),
			"commit":          report.Commit(),
			"state":           report.State(),
		}

		if errorMessage := report.Error(); errorMessage != "" {
			jsonReports[i]["error"] = errorMessage
			jsonReports[i]["kind"] = report.Kind()
			jsonReports[i]["stage"] = string(report.Stage())
		}
	}

	return jsonReports
}
