package actor

import (
	"context"

	"github.com/krotik/streamgraph/data"
	"github.com/krotik/streamgraph/persist"
)

/*
handlePropertyBatch runs the guard_events pipeline for a property batch
and dispatches to the configured EffectOrder. shouldSendReplies is false
only during journal replay on wake, where the node's own effects were
already observed by peers before sleep.
*/
func (a *NodeActor) handlePropertyBatch(ctx context.Context, batch []data.PropertyEvent, shouldSendReplies bool) error {
	AssertInvariant(!a.ref.IsHistorical(), "mutation reached guard pipeline for a historical node")

	deduped := dedupLastPerKey(batch)
	effective := a.filterEffectfulProperties(deduped)
	if len(effective) == 0 {
		return nil
	}

	for i := range effective {
		effective[i].At = a.clock.Tick()
	}

	switch a.cfg.EffectOrder {
	case PersistorFirst:
		return a.persistThenApplyProperties(ctx, effective, shouldSendReplies)
	default:
		return a.applyThenPersistProperties(ctx, effective, shouldSendReplies)
	}
}

/*
handleEdgeBatch is the edge-processor entry point (C3): the guard pipeline
plus EffectOrder dispatch for edge events.
*/
func (a *NodeActor) handleEdgeBatch(ctx context.Context, batch []data.EdgeEvent, shouldSendReplies bool) error {
	AssertInvariant(!a.ref.IsHistorical(), "mutation reached guard pipeline for a historical node")

	effective := a.filterEffectfulEdges(batch)
	if len(effective) == 0 {
		return nil
	}

	for i := range effective {
		effective[i].At = a.clock.Tick()
	}

	switch a.cfg.EffectOrder {
	case PersistorFirst:
		return a.persistThenApplyEdges(ctx, effective, shouldSendReplies)
	default:
		return a.applyThenPersistEdges(ctx, effective, shouldSendReplies)
	}
}

func toPropertyRecords(events []data.PropertyEvent) []persist.NodeChangeEventRecord {
	out := make([]persist.NodeChangeEventRecord, len(events))
	for i, e := range events {
		out[i] = persist.NodeChangeEventRecord{At: e.At, Event: e}
	}
	return out
}

func toEdgeRecords(events []data.EdgeEvent) []persist.NodeChangeEventRecord {
	out := make([]persist.NodeChangeEventRecord, len(events))
	for i, e := range events {
		out[i] = persist.NodeChangeEventRecord{At: e.At, Event: e}
	}
	return out
}

/*
persistThenApplyProperties implements the PersistorFirst strategy: the
message loop is already suspended by construction (this call runs inline
in loop(), so the next mailbox receive cannot happen until this returns).
*/
func (a *NodeActor) persistThenApplyProperties(ctx context.Context, events []data.PropertyEvent, shouldSendReplies bool) error {
	if err := a.persistor.PersistNodeChangeEvents(ctx, a.ref.QuineID, toPropertyRecords(events)); err != nil {
		a.logger.Error("persist failed for ", a.ref, ": ", err)
		return err
	}

	a.applyPropertiesInMemory(events)
	a.markDirty(events[len(events)-1].At)
	a.runPropertyPostActions(ctx, events, shouldSendReplies)
	a.maybeSnapshotOnUpdate(ctx)

	return nil
}

/*
applyThenPersistProperties implements the MemoryFirst strategy: apply and
notify immediately, then retry persistence in the background without
blocking the loop for subsequent messages.
*/
func (a *NodeActor) applyThenPersistProperties(ctx context.Context, events []data.PropertyEvent, shouldSendReplies bool) error {
	a.applyPropertiesInMemory(events)
	a.markDirty(events[len(events)-1].At)
	a.runPropertyPostActions(ctx, events, shouldSendReplies)
	a.maybeSnapshotOnUpdate(ctx)

	// the retry must outlive the caller's request context
	bg := context.WithoutCancel(ctx)
	go func() {
		_ = retryForever(bg, a.cfg, func() error {
			return a.persistor.PersistNodeChangeEvents(bg, a.ref.QuineID, toPropertyRecords(events))
		})
	}()

	return nil
}

func (a *NodeActor) persistThenApplyEdges(ctx context.Context, events []data.EdgeEvent, shouldSendReplies bool) error {
	if err := a.persistor.PersistNodeChangeEvents(ctx, a.ref.QuineID, toEdgeRecords(events)); err != nil {
		a.logger.Error("persist failed for ", a.ref, ": ", err)
		return err
	}

	a.applyEdgesInMemory(events)
	a.markDirty(events[len(events)-1].At)
	a.runEdgePostActions(ctx, events, shouldSendReplies)
	a.maybeSnapshotOnUpdate(ctx)

	return nil
}

func (a *NodeActor) applyThenPersistEdges(ctx context.Context, events []data.EdgeEvent, shouldSendReplies bool) error {
	a.applyEdgesInMemory(events)
	a.markDirty(events[len(events)-1].At)
	a.runEdgePostActions(ctx, events, shouldSendReplies)
	a.maybeSnapshotOnUpdate(ctx)

	bg := context.WithoutCancel(ctx)
	go func() {
		_ = retryForever(bg, a.cfg, func() error {
			return a.persistor.PersistNodeChangeEvents(bg, a.ref.QuineID, toEdgeRecords(events))
		})
	}()

	return nil
}

func (a *NodeActor) applyPropertiesInMemory(events []data.PropertyEvent) {
	for _, ev := range events {
		switch ev.Kind {
		case data.PropertySet:
			a.properties[ev.Key] = ev.Value
		case data.PropertyRemoved:
			delete(a.properties, ev.Key)
		}
	}
}

func (a *NodeActor) applyEdgesInMemory(events []data.EdgeEvent) {
	for _, ev := range events {
		switch ev.Kind {
		case data.EdgeAdded:
			a.edges = append(a.edges, ev.Edge)
		case data.EdgeRemoved:
			for i, e := range a.edges {
				if e.Equal(ev.Edge) {
					a.edges = append(a.edges[:i], a.edges[i+1:]...)
					break
				}
			}
		}
	}
}

func (a *NodeActor) markDirty(at data.EventTime) {
	t := at
	a.latestUpdateAfterSnapshot = &t
	a.lastWriteMillis = at.WallMillis()
}

func (a *NodeActor) maybeSnapshotOnUpdate(ctx context.Context) {
	if !a.cfg.SnapshotOnUpdate {
		return
	}
	if err := a.forceSnapshot(ctx); err != nil {
		a.logger.Warning("snapshot after update failed for ", a.ref, ": ", err)
	}
}

/*
handleDomainIndexEvent dispatches one domain-graph subscription-engine
event. It is the node-side counterpart of the domain package's Engine
methods, translating the wire-level DomainIndexEvent into Engine calls and
journaling the transition.
*/
func (a *NodeActor) handleDomainIndexEvent(ctx context.Context, ev data.DomainIndexEvent) error {
	ev.At = a.clock.Tick()

	if err := a.persistor.PersistDomainIndexEvents(ctx, a.ref.QuineID, []persist.DomainIndexEventRecord{{At: ev.At, Event: ev}}); err != nil {
		a.logger.Error("persist domain index event failed for ", a.ref, ": ", err)
		return err
	}

	switch ev.Kind {
	case data.DomainSubscriptionCreated:
		spec, ok := a.specRegistry.GetSpec(ev.Dgn)
		if !ok {
			return nil
		}
		a.domainEngine.ReceiveDomainNodeSubscription(spec, ev.Subscriber, ev.ForQuery, true, a.properties, a.edges)

	case data.DomainSubscriptionCancelled:
		spec, ok := a.specRegistry.GetSpec(ev.Dgn)
		if !ok {
			return nil
		}
		a.domainEngine.CancelSubscription(spec, ev.Subscriber, true)

	case data.DomainIndexUpdated:
		if a.domainEngine.ReceiveIndexUpdate(ev.Peer, ev.Dgn, ev.Result) {
			if spec, ok := a.specRegistry.GetSpec(ev.Dgn); ok {
				a.domainEngine.UpdateAnswerAndNotifySubscribers(spec, a.properties, a.edges, true)
			}
		}
	}

	return nil
}
