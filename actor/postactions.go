package actor

import (
	"context"

	"github.com/krotik/streamgraph/data"
)

/*
runPropertyPostActions consults the local index for every property key
that changed and dispatches to MultipleValuesSq subscribers and
DomainNodeIndex subscribers as described for the node actor's post-action
step.
*/
func (a *NodeActor) runPropertyPostActions(ctx context.Context, events []data.PropertyEvent, shouldSendReplies bool) {
	sqHits := make(map[data.Subscriber]bool)

	for _, ev := range events {
		a.localIndex.PropertySubscribers(ev.Key, func(sub data.Subscriber) bool {
			return a.dispatchSubscriber(ctx, sub, shouldSendReplies, sqHits)
		})
	}

	a.flushSqHits(ctx, sqHits, events, nil)
}

/*
runEdgePostActions is the edge-event counterpart of
runPropertyPostActions.
*/
func (a *NodeActor) runEdgePostActions(ctx context.Context, events []data.EdgeEvent, shouldSendReplies bool) {
	sqHits := make(map[data.Subscriber]bool)

	for _, ev := range events {
		a.localIndex.EdgeSubscribers(ev.Edge.Label, func(sub data.Subscriber) bool {
			return a.dispatchSubscriber(ctx, sub, shouldSendReplies, sqHits)
		})
	}

	a.flushSqHits(ctx, sqHits, nil, events)
}

/*
dispatchSubscriber handles one local-index subscriber hit. For a
MultipleValuesSq subscriber it records the hit for a single batched
notification; for a DomainNodeIndex subscriber it re-evaluates the DGN's
answer immediately and reports whether the subscription should be
dropped (true) because the DGN is no longer registered globally -
self-healing the index for stale DGNs.
*/
func (a *NodeActor) dispatchSubscriber(ctx context.Context, sub data.Subscriber, shouldSendReplies bool, sqHits map[data.Subscriber]bool) bool {
	switch sub.Kind {
	case data.SubscriberMultipleValuesSq:
		sqHits[sub] = true
		return false

	case data.SubscriberDomainNodeIndex:
		spec, ok := a.specRegistry.GetSpec(sub.Dgn)
		if !ok {
			a.domainEngine.DropDgn(sub.Dgn)
			return true
		}
		a.domainEngine.EnsureSubscriptionToDomainEdges(spec, nil, shouldSendReplies)
		a.domainEngine.UpdateAnswerAndNotifySubscribers(spec, a.properties, a.edges, shouldSendReplies)
		return false
	}

	return false
}

func (a *NodeActor) flushSqHits(ctx context.Context, sqHits map[data.Subscriber]bool, propEvents []data.PropertyEvent, edgeEvents []data.EdgeEvent) {
	if a.sqSink == nil {
		return
	}

	for sub := range sqHits {
		a.sqSink.NotifyPartialMatch(ctx, sub.SqID, sub.Part, propEvents, edgeEvents)
	}
}
