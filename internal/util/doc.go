// Package util provides small formatting helpers shared by uptainer's logging and API output.
//
// Key components:
//   - FormatDuration: Renders durations like "2 hours, 5 seconds".
//   - ShortHash: Abbreviates commit hashes for log lines.
package util
