package smoke

import "os"

// ShowHelp prints usage information for the smoke tool.
func ShowHelp() {
	os.Stdout.WriteString(`covita smoke check
==================

Checks the series served by a running covita instance: dates ascend
without duplicates, daily values are differences of cumulative totals,
the first date is dropped and regions are differenced independently.

Usage:
  go run ./cmd/smoke [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -metrics string
        Comma separated metrics to check (default: all)
  -regions string
        Comma separated regions to check (default: every region)
  -workers int
        Number of metrics checked concurrently (default 4)
  -timeout duration
        HTTP request timeout (default 60s)
  -verbose
        Log every metric as it is checked
  -help
        Show this help message

Exit status is 1 when any property is violated or the service cannot be
reached.
`)
}
