// Package health samples resource usage on a fixed interval and forces
// recovery when thresholds are crossed.
//
// The monitor watches three signals: tracked native handles that were
// acquired but never released, resident memory of the automation host
// processes, and affinity workers that are no longer live. A breach first
// raises an alert; a handle or memory breach additionally triggers recovery,
// which force-releases leaked handles and recycles the host so the next
// conversion starts from a clean instance.
package health
