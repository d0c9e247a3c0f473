// Package archive stores merged logs as long-format Parquet files and can push
// them to S3 or an S3-compatible store.
package archive
