// Package pdfreport reads NOAA Global Summary of the Month (GSOM) PDF reports
// and pulls out the report year and the monthly mean temperature table.
package pdfreport
