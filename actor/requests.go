package actor

import (
	"context"

	"github.com/krotik/streamgraph/data"
	"github.com/krotik/streamgraph/util"
)

type requestKind int

const (
	reqProperty requestKind = iota
	reqEdge
	reqDomainIndex
	reqSnapshot
	reqDebug
	reqRegisterDomainWatch
	reqRegisterSqWatch
)

type request struct {
	ctx context.Context
	kind requestKind

	propEvents  []data.PropertyEvent
	edgeEvents  []data.EdgeEvent
	domainEvent *data.DomainIndexEvent

	watchDgn       data.DomainGraphNodeID
	watchKeys      []string
	watchEdgeLabel []string
	watchAnyEdge   bool
	watchSqID      data.StandingQueryID
	watchPart      data.PartID

	resultCh chan error
	debugCh  chan DebugState
}

/*
loop is the single-writer message loop. It runs on its own goroutine from
Wake until Sleep; every mutation of node-owned state happens here and
nowhere else.
*/
func (a *NodeActor) loop() {
	defer close(a.stopped)

	for req := range a.mailbox {
		if !a.dispatch(req) {
			// an internal invariant was violated; the actor stops here and
			// waits for the shard registry to restart it from the last
			// durable snapshot+journal, per the InternalInvariantViolation
			// recovery policy.
			a.wakeful.Store(Asleep)
			return
		}
	}
}

/*
dispatch handles one request, recovering a panic raised by AssertInvariant
(or anything else) via Supervise. It returns false if the actor hit an
invariant violation and must stop.
*/
func (a *NodeActor) dispatch(req *request) (ok bool) {
	ok = true

	switch req.kind {
	case reqProperty:
		err := Supervise(req.ctx, func() error { return a.handlePropertyBatch(req.ctx, req.propEvents, true) })
		ok = !isInvariantViolation(err)
		req.resultCh <- err
	case reqEdge:
		err := Supervise(req.ctx, func() error { return a.handleEdgeBatch(req.ctx, req.edgeEvents, true) })
		ok = !isInvariantViolation(err)
		req.resultCh <- err
	case reqDomainIndex:
		err := Supervise(req.ctx, func() error { return a.handleDomainIndexEvent(req.ctx, *req.domainEvent) })
		ok = !isInvariantViolation(err)
		req.resultCh <- err
	case reqSnapshot:
		req.resultCh <- a.forceSnapshot(req.ctx)
	case reqDebug:
		req.debugCh <- a.debugState()
	case reqRegisterDomainWatch:
		a.applyRegisterDomainWatch(req)
		req.resultCh <- nil
	case reqRegisterSqWatch:
		a.applyRegisterSqWatch(req)
		req.resultCh <- nil
	}

	return ok
}

func isInvariantViolation(err error) bool {
	ne, ok := err.(*util.NodeError)
	return ok && ne.Type == util.ErrInternalInvariantViolation
}

func (a *NodeActor) send(req *request) error {
	if a.wakeful.Load() != Awake {
		return a.historicalOrAsleepErr()
	}

	req.resultCh = make(chan error, 1)
	a.mailbox <- req
	return <-req.resultCh
}

func (a *NodeActor) historicalOrAsleepErr() error {
	if a.ref.IsHistorical() {
		return a.historicalErr()
	}
	return &asleepError{ref: a.ref}
}

type asleepError struct{ ref data.NodeRef }

func (e *asleepError) Error() string { return "node is not awake: " + e.ref.String() }

/*
SubmitPropertyEvents processes a batch of property events through the
guard pipeline and the configured EffectOrder.
*/
func (a *NodeActor) SubmitPropertyEvents(ctx context.Context, events []data.PropertyEvent) error {
	if a.ref.IsHistorical() {
		return a.historicalErr()
	}
	return a.send(&request{ctx: ctx, kind: reqProperty, propEvents: events})
}

/*
SubmitEdgeEvents processes a batch of edge events through the guard
pipeline and the configured EffectOrder.
*/
func (a *NodeActor) SubmitEdgeEvents(ctx context.Context, events []data.EdgeEvent) error {
	if a.ref.IsHistorical() {
		return a.historicalErr()
	}
	return a.send(&request{ctx: ctx, kind: reqEdge, edgeEvents: events})
}

/*
SubmitDomainIndexEvent delivers one domain-graph subscription-engine
event (subscribe, cancel, or an index update from a peer).
*/
func (a *NodeActor) SubmitDomainIndexEvent(ctx context.Context, event data.DomainIndexEvent) error {
	if a.ref.IsHistorical() {
		return a.historicalErr()
	}
	return a.send(&request{ctx: ctx, kind: reqDomainIndex, domainEvent: &event})
}

/*
SnapshotNow forces an immediate snapshot write; a no-op on historical
nodes.
*/
func (a *NodeActor) SnapshotNow(ctx context.Context) error {
	if a.ref.IsHistorical() {
		return nil
	}
	return a.send(&request{ctx: ctx, kind: reqSnapshot})
}

/*
RegisterDomainWatch wires this node into the local index as a participant
whose properties/edges matter for dgn: property-key and edge-label
watches are added with a DomainNodeIndex subscriber for dgn, so that
future effective events on those keys/labels trigger
UpdateAnswerAndNotifySubscribers.
*/
func (a *NodeActor) RegisterDomainWatch(ctx context.Context, dgn data.DomainGraphNodeID, keys, edgeLabels []string, anyEdge bool) error {
	return a.send(&request{ctx: ctx, kind: reqRegisterDomainWatch, watchDgn: dgn, watchKeys: keys, watchEdgeLabel: edgeLabels, watchAnyEdge: anyEdge})
}

/*
RegisterSqWatch wires a MultipleValuesSq subscriber's watched keys/labels
into the local index.
*/
func (a *NodeActor) RegisterSqWatch(ctx context.Context, sqID data.StandingQueryID, part data.PartID, keys, edgeLabels []string, anyEdge bool) error {
	return a.send(&request{ctx: ctx, kind: reqRegisterSqWatch, watchSqID: sqID, watchPart: part, watchKeys: keys, watchEdgeLabel: edgeLabels, watchAnyEdge: anyEdge})
}

/*
DebugState returns a diagnostic snapshot of this actor's internal state.
*/
func (a *NodeActor) DebugState(ctx context.Context) DebugState {
	if a.wakeful.Load() != Awake {
		return DebugState{Ref: a.ref, WakefulState: a.wakeful.Load()}
	}

	req := &request{ctx: ctx, kind: reqDebug, debugCh: make(chan DebugState, 1)}
	a.mailbox <- req
	return <-req.debugCh
}

func (a *NodeActor) applyRegisterDomainWatch(req *request) {
	sub := data.Subscriber{Kind: data.SubscriberDomainNodeIndex, Dgn: req.watchDgn}
	for _, k := range req.watchKeys {
		a.localIndex.WatchProperty(k, sub)
	}
	for _, l := range req.watchEdgeLabel {
		a.localIndex.WatchEdge(l, sub)
	}
	if req.watchAnyEdge {
		a.localIndex.WatchAnyEdge(sub)
	}
}

func (a *NodeActor) applyRegisterSqWatch(req *request) {
	sub := data.Subscriber{Kind: data.SubscriberMultipleValuesSq, SqID: req.watchSqID, Part: req.watchPart}
	for _, k := range req.watchKeys {
		a.localIndex.WatchProperty(k, sub)
	}
	for _, l := range req.watchEdgeLabel {
		a.localIndex.WatchEdge(l, sub)
	}
	if req.watchAnyEdge {
		a.localIndex.WatchAnyEdge(sub)
	}
}
