// Package cmd contains the command-line interface definition and execution logic for uptainer.
//
// The root command loads the repository entries from the configuration file and then either
// runs once, serves the HTTP API, or runs on a cron schedule.
//
// Usage examples:
//   - Run every entry once:
//     uptainer --config-file config.yml --run-once
//   - Run two entries every hour:
//     uptainer --schedule "@hourly" Foo Bar
package cmd
