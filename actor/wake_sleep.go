package actor

import (
	"context"
	"encoding/gob"
	"fmt"

	"github.com/krotik/streamgraph/data"
	"github.com/krotik/streamgraph/index"
	"github.com/krotik/streamgraph/persist"
	"github.com/krotik/streamgraph/util"
)

func init() {
	gob.Register(data.PropertyEvent{})
	gob.Register(data.EdgeEvent{})
}

/*
Wake runs the wake sequence: restore the latest snapshot, replay the
journal tail with outbound replies suppressed, reconstruct the local
index against the global DGN registry, and start the message loop.
Calling Wake on an already-Awake actor is a programmer error; it is the
shard registry's job to serialize wake/sleep per node.
*/
func (a *NodeActor) Wake(ctx context.Context) error {
	a.wakeful.Store(Waking)

	from := data.EventTime(0)

	snap, ok, err := a.persistor.GetLatestSnapshot(ctx, a.ref.QuineID, data.MaxEventTime)
	if err != nil {
		a.wakeful.Store(Asleep)
		return fmt.Errorf("wake: reading snapshot: %w", err)
	}

	if ok {
		a.restoreFromSnapshot(snap)
		from = snap.At + 1
	} else {
		a.properties = make(map[string]data.PropertyValue)
		a.edges = nil
	}

	to := data.MaxEventTime
	if a.ref.IsHistorical() {
		to = *a.ref.AtTime
	}

	entries, err := a.persistor.GetJournalWithTime(ctx, a.ref.QuineID, from, to, true)
	if err != nil {
		a.wakeful.Store(Asleep)
		return fmt.Errorf("wake: reading journal: %w", err)
	}

	// replay runs post-actions, which consult the local index
	a.localIndex = index.New()

	for _, entry := range entries {
		a.replayEntry(ctx, entry)
	}

	a.reconstructLocalIndex()

	if a.ref.IsHistorical() {
		// historical reads never run a message loop; state is installed and
		// callers read it directly through the read-only accessors.
		a.wakeful.Store(Awake)
		return nil
	}

	a.mailbox = make(chan *request, a.mailboxSize())
	a.stopped = make(chan struct{})
	go a.loop()

	a.costToSleep++
	a.wakeful.Store(Awake)

	return nil
}

func (a *NodeActor) mailboxSize() int {
	if a.cfg.MailboxSize > 0 {
		return a.cfg.MailboxSize
	}
	return 64
}

func (a *NodeActor) restoreFromSnapshot(snap *persist.Snapshot) {
	a.properties = snap.Properties
	if a.properties == nil {
		a.properties = make(map[string]data.PropertyValue)
	}
	a.edges = snap.Edges

	for dgn, rec := range snap.Subscribers {
		spec, ok := a.specRegistry.GetSpec(dgn)
		if !ok {
			continue
		}
		for _, sub := range rec.Subscribers {
			a.domainEngine.ReceiveDomainNodeSubscription(spec, sub, "", false, a.properties, a.edges)
		}
	}

	for peer, byDgn := range snap.DomainNodeIndex {
		for dgn, result := range byDgn {
			a.domainEngine.ReceiveIndexUpdate(peer, dgn, result)
		}
	}
}

/*
replayEntry applies one journal entry with replies suppressed. Effect
filtering is intentionally skipped during replay: the event was already
effective when it was first journaled, and re-deriving "effective" against
state built from the same journal would be redundant at best and, for a
PropertyRemoved whose Previous value matters, lossy at worst.
*/
func (a *NodeActor) replayEntry(ctx context.Context, entry persist.JournalEntry) {
	a.clock.Bump(entry.At)

	switch ev := entry.NodeChange.(type) {
	case data.PropertyEvent:
		a.applyPropertiesInMemory([]data.PropertyEvent{ev})
		a.markDirty(ev.At)
		a.runPropertyPostActions(ctx, []data.PropertyEvent{ev}, false)
	case data.EdgeEvent:
		a.applyEdgesInMemory([]data.EdgeEvent{ev})
		a.markDirty(ev.At)
		a.runEdgePostActions(ctx, []data.EdgeEvent{ev}, false)
	}

	if entry.DomainIdx != nil {
		_ = a.handleDomainIndexEventReplay(ctx, *entry.DomainIdx)
	}
}

func (a *NodeActor) handleDomainIndexEventReplay(ctx context.Context, ev data.DomainIndexEvent) error {
	a.clock.Bump(ev.At)

	switch ev.Kind {
	case data.DomainSubscriptionCreated:
		if spec, ok := a.specRegistry.GetSpec(ev.Dgn); ok {
			a.domainEngine.ReceiveDomainNodeSubscription(spec, ev.Subscriber, ev.ForQuery, false, a.properties, a.edges)
		}
	case data.DomainSubscriptionCancelled:
		if spec, ok := a.specRegistry.GetSpec(ev.Dgn); ok {
			a.domainEngine.CancelSubscription(spec, ev.Subscriber, false)
		}
	case data.DomainIndexUpdated:
		if a.domainEngine.ReceiveIndexUpdate(ev.Peer, ev.Dgn, ev.Result) {
			if spec, ok := a.specRegistry.GetSpec(ev.Dgn); ok {
				a.domainEngine.UpdateAnswerAndNotifySubscribers(spec, a.properties, a.edges, false)
			}
		}
	}

	return nil
}

/*
reconstructLocalIndex installs the empty index returned by
index.Reconstruct and drops bookkeeping for any DGN the global registry
no longer recognizes - the self-healing path after a wake. Property and
edge watches registered through RegisterDomainWatch or RegisterSqWatch
before the node slept are not restored; the new index holds none.
*/
func (a *NodeActor) reconstructLocalIndex() {
	subscribed := a.domainEngine.SubscribedDgns()

	li, stale := index.Reconstruct(subscribed, a.specRegistry)
	a.localIndex = li

	for _, dgn := range stale {
		a.domainEngine.DropDgn(dgn)
	}
}

/*
Sleep runs the sleep sequence: stop accepting new messages, drain the
mailbox, write a final snapshot if the node is dirty, and release
in-memory state.
*/
func (a *NodeActor) Sleep(ctx context.Context) error {
	if a.ref.IsHistorical() {
		a.wakeful.Store(Asleep)
		return nil
	}

	a.wakeful.Store(GoingToSleep)

	close(a.mailbox)
	<-a.stopped

	if a.latestUpdateAfterSnapshot != nil {
		if err := a.forceSnapshot(ctx); err != nil {
			a.logger.Error("final snapshot failed while sleeping ", a.ref, ": ", err)
			// the loop has already stopped; restart it so the node is
			// really awake again and a later snapshot or Sleep can run
			a.mailbox = make(chan *request, a.mailboxSize())
			a.stopped = make(chan struct{})
			go a.loop()
			a.wakeful.Store(Awake)
			return err
		}
	}

	a.properties = nil
	a.edges = nil
	a.localIndex = nil
	a.mailbox = nil
	a.stopped = nil

	a.wakeful.Store(Asleep)
	return nil
}

/*
forceSnapshot serializes current state and writes it through the
persistor, clearing the dirty marker only once the write is confirmed
durable - closing the gap left open around snapshot-on-failure semantics.
*/
func (a *NodeActor) forceSnapshot(ctx context.Context) error {
	snap := persist.Snapshot{
		At:         a.clock.Peek(),
		Properties: copyProperties(a.properties),
		Edges:      append([]data.HalfEdge(nil), a.edges...),
	}

	if err := a.persistor.PersistSnapshot(ctx, a.ref.QuineID, a.cfg.SnapshotSingleton, snap); err != nil {
		return &util.NodeError{Type: util.ErrPersistorTransient, Detail: err.Error()}
	}

	a.latestUpdateAfterSnapshot = nil
	return nil
}

func copyProperties(in map[string]data.PropertyValue) map[string]data.PropertyValue {
	out := make(map[string]data.PropertyValue, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
