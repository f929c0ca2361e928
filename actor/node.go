package actor

import (
	"context"
	"fmt"

	"github.com/krotik/common/logutil"

	"github.com/krotik/streamgraph/data"
	"github.com/krotik/streamgraph/domain"
	"github.com/krotik/streamgraph/index"
	"github.com/krotik/streamgraph/persist"
	"github.com/krotik/streamgraph/util"
)

/*
SqSink receives notifications for MultipleValuesSq subscribers when a
batch of events on one of their watched keys/labels has been applied.
Matching the pattern itself is a query-language concern and stays out of
this package's scope; the sink only needs to know which events fired.
*/
type SqSink interface {
	NotifyPartialMatch(ctx context.Context, sqID data.StandingQueryID, part data.PartID, propEvents []data.PropertyEvent, edgeEvents []data.EdgeEvent)
}

/*
NodeActor owns a single graph node's live state. All mutable fields below
this point are touched exclusively by the actor's own loop goroutine once
it is running; callers only ever reach them indirectly through the
mailbox, which is what makes the node single-writer.
*/
type NodeActor struct {
	ref data.NodeRef
	cfg Config

	persistor    persist.Persistor
	specRegistry domain.SpecRegistry
	sqSink       SqSink
	router       PeerRouter
	logger       logutil.Logger

	wakeful wakefulCell

	clock *data.ActorClock

	mailbox chan *request
	stopped chan struct{}

	// node-owned state, touched only inside the loop goroutine
	properties                map[string]data.PropertyValue
	edges                     []data.HalfEdge
	localIndex                *index.LocalIndex
	domainEngine              *domain.Engine
	latestUpdateAfterSnapshot *data.EventTime
	lastWriteMillis           int64
	costToSleep               int
}

/*
NewNodeActor constructs a node actor in the Asleep state. Wake must be
called before any Submit* method.
*/
func NewNodeActor(ref data.NodeRef, cfg Config, p persist.Persistor, specRegistry domain.SpecRegistry, sqSink SqSink, logger logutil.Logger, nowMillis func() int64) *NodeActor {
	if logger == nil {
		logger = logutil.GetLogger("actor")
	}

	a := &NodeActor{
		ref:          ref,
		cfg:          cfg,
		persistor:    p,
		specRegistry: specRegistry,
		sqSink:       sqSink,
		logger:       logger,
		clock:        data.NewActorClock(nowMillis),
		properties:   make(map[string]data.PropertyValue),
	}

	a.domainEngine = domain.New(&nodeNotifier{actor: a})

	return a
}

/*
Ref returns this actor's node reference.
*/
func (a *NodeActor) Ref() data.NodeRef {
	return a.ref
}

/*
State returns the current wakeful state.
*/
func (a *NodeActor) State() WakefulState {
	return a.wakeful.Load()
}

/*
CostToSleep returns the number of times this node has woken, used by a
shard to bias which nodes are cheapest to evict.
*/
func (a *NodeActor) CostToSleep() int {
	return a.costToSleep
}

/*
NodeHash returns a content hash over this node's current properties and
edges, used by the journal-replay equivalence test.
*/
func (a *NodeActor) NodeHash() [16]byte {
	return data.NodeHash(a.ref.QuineID, a.properties, a.edges)
}

/*
dedupLastPerKey keeps only the last PropertyEvent per Key, preserving the
position of that last occurrence, matching the batch-deduplication
invariant that applying a batch equals applying its deduped form.
*/
func dedupLastPerKey(batch []data.PropertyEvent) []data.PropertyEvent {
	lastIdx := make(map[string]int, len(batch))
	for i, ev := range batch {
		lastIdx[ev.Key] = i
	}

	out := make([]data.PropertyEvent, 0, len(lastIdx))
	for i, ev := range batch {
		if lastIdx[ev.Key] == i {
			out = append(out, ev)
		}
	}
	return out
}

/*
filterEffectfulProperties drops PropertySet events whose value already
matches the current value, and PropertyRemoved events for keys that are
already absent - the has_effect_predicate step of the guard pipeline.
*/
func (a *NodeActor) filterEffectfulProperties(batch []data.PropertyEvent) []data.PropertyEvent {
	out := make([]data.PropertyEvent, 0, len(batch))

	for _, ev := range batch {
		switch ev.Kind {
		case data.PropertySet:
			if cur, ok := a.properties[ev.Key]; ok && cur.Equal(ev.Value) {
				continue
			}
			out = append(out, ev)
		case data.PropertyRemoved:
			cur, ok := a.properties[ev.Key]
			if !ok {
				continue
			}
			ev.Previous = cur
			out = append(out, ev)
		}
	}

	return out
}

/*
filterEffectfulEdges drops EdgeAdded events for half-edges already present
and EdgeRemoved events for half-edges already absent, tracking a working
set so that an Add followed by a Remove of the same half-edge within one
batch is still evaluated correctly in order.
*/
func (a *NodeActor) filterEffectfulEdges(batch []data.EdgeEvent) []data.EdgeEvent {
	present := make(map[data.HalfEdge]bool, len(a.edges))
	for _, e := range a.edges {
		present[e] = true
	}

	out := make([]data.EdgeEvent, 0, len(batch))

	for _, ev := range batch {
		switch ev.Kind {
		case data.EdgeAdded:
			if present[ev.Edge] {
				continue
			}
			present[ev.Edge] = true
			out = append(out, ev)
		case data.EdgeRemoved:
			if !present[ev.Edge] {
				continue
			}
			present[ev.Edge] = false
			out = append(out, ev)
		}
	}

	return out
}

func (a *NodeActor) historicalErr() error {
	return &util.NodeError{Type: util.ErrIllegalHistoricalUpdate, Detail: fmt.Sprintf("node %v", a.ref)}
}
