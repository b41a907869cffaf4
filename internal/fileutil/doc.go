// Package fileutil handles destination path construction and final file
// placement for converted documents.
//
// Conversions write to a staging location first; MoveFile relocates the
// finished artifact into the destination directory, falling back to
// copy+remove when staging and destination live on different filesystems.
// DisplayTitle and DestinationName centralize how output files are named.
package fileutil
