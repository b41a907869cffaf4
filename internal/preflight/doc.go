// Package preflight provides readiness checks for the filesystem paths,
// binaries, and state the batch run depends on.
//
// The run command executes RunAll before admitting any item: a conversion
// batch that cannot write its output directory or find the automation host
// binary should fail in milliseconds, not after the first item times out.
// The status command reuses the individual checks for display.
package preflight
