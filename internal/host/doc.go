// Package host defines the typed capability surface docmill needs from an
// external document automation host, and manages host lifecycle.
//
// Each external object kind gets a small explicit interface — Application,
// Document, Collection — exposing only the operations the conversion core
// uses, resolved at compile time. All of them release through
// handles.Releaser so ownership flows through handle scopes.
//
// The Manager recycles a long-lived host instance after a configurable
// number of uses. The source environments these hosts come from fragment
// internally under sustained automation load; recycling is the mitigation,
// and the threshold stays configurable because the causal link is suspected
// rather than measured.
package host
