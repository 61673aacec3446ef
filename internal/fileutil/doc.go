// Package fileutil provides the small set of filesystem helpers used when
// testframe writes artifacts: recursive directory creation and atomic file
// writes (temp file, fsync, rename) so a collector interrupted mid-write never
// leaves a truncated YAML or log file behind.
package fileutil
