// Package files finds and copies the weekly CSV exports written by the
// data stations.
//
// Discovery selects files by the YYMMDD date at the start of their name:
//
//	start, end, err := files.ParseDateRange("10/01/2023", "10/31/2023")
//	logs, err := files.NewDiscovery("").FindWeeklyLogs(dir, start, end)
//
// Manager copies the selected files into a destination folder:
//
//	n, err := files.NewManager(logger).CopyFiles(logs, dest)
package files
