// Package procguard tracks the external host processes docmill spawns and
// reaps the ones that outlive their purpose.
//
// Every launched host PID is recorded in a small SQLite ledger along with
// the executable name and kernel start ticks observed at registration. The
// ledger lives on disk so a docmill that crashed mid-batch leaves behind
// enough evidence for the next run to terminate its orphans.
//
// Termination is guarded: a ledger entry is only acted on when the live
// process still matches the recorded executable and start ticks. A recycled
// PID, or a host instance the user started independently, never matches and
// is left alone.
package procguard
