// Package redlion downloads weekly gas logs from Red Lion data stations.
//
// A station serves an HTML index of its log folder behind HTTP basic auth.
// ListCSVLinks scrapes that page, GroupLinksByYear buckets the links by the
// date in their file names, and FetchAll downloads each week into a dataframe.
package redlion
