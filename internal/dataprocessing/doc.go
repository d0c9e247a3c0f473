// Package dataprocessing shapes sensor logs held as gota dataframes.
//
// Every column is loaded as a string series. The data stations write numbers,
// blanks and status text into the same columns, so values are only parsed
// where an operation needs them (totalizer deltas, time stamps, database
// fields) and are otherwise passed through untouched.
//
// A typical merged-log pass looks like:
//
//	df, err := dataprocessing.ReadCSVFile(path, dataprocessing.ReadOptions{})
//	df, bad, err := dataprocessing.CombineDateTime(df, "Date", "Time", "Timestamp")
//	df = dataprocessing.AddConstantColumn(df, "Tag", site)
//	engine := dataprocessing.FilterColumns(df, []string{"Timestamp", "Tag", "Engine"})
//	engine, err = dataprocessing.AddTotalizerDeltas(engine, "_SCF_15min")
package dataprocessing
