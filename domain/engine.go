/*
Package domain implements the domain-graph subscription engine: the part
of a node that answers pattern-match subscriptions from other nodes
(subscribers_to_this_node) and that itself subscribes through peers to
evaluate DGNs that span multiple nodes (domain_node_index).
*/
package domain

import (
	"github.com/krotik/streamgraph/data"
)

/*
SubscriptionRecord is the bookkeeping kept for one DGN that this node
answers for its subscribers.
*/
type SubscriptionRecord struct {
	Subscribers       map[data.Subscriber]bool
	LastNotification  *bool
	RelatedQueries    map[data.StandingQueryID]bool
}

/*
Notifier is how the engine delivers notifications and outgoing
subscriptions; the node actor supplies the concrete implementation (which
ultimately routes through the shard router named in the external
interfaces). shouldSendReplies lets replay-mode callers suppress outbound
traffic for events whose effects peers already observed before sleep.
*/
type Notifier interface {
	NotifySubscriber(sub data.Subscriber, dgn data.DomainGraphNodeID, result bool, shouldSendReplies bool)
	SubscribeToPeer(peer data.QuineId, dgn data.DomainGraphNodeID, relatedQueries []data.StandingQueryID, shouldSendReplies bool)
	CancelPeerSubscription(peer data.QuineId, dgn data.DomainGraphNodeID)
}

/*
DgnSpec describes what a DGN requires of this node in order to compute a
local answer: a set of required edges to peers (each identified by the
label and direction the pattern expects) and an evaluator over this
node's own properties/edges plus the current peer index values.
*/
type DgnSpec struct {
	ID            data.DomainGraphNodeID
	RequiredEdges []data.HalfEdge
	Evaluate      func(properties map[string]data.PropertyValue, edges []data.HalfEdge, peerIndex map[data.QuineId]*bool) bool
}

/*
Engine holds one node's domain-graph subscription state.
*/
type Engine struct {
	subscribersToThisNode map[data.DomainGraphNodeID]*SubscriptionRecord
	domainNodeIndex       map[data.QuineId]map[data.DomainGraphNodeID]*bool

	notifier Notifier
}

/*
New creates an empty Engine backed by the given Notifier.
*/
func New(notifier Notifier) *Engine {
	return &Engine{
		subscribersToThisNode: make(map[data.DomainGraphNodeID]*SubscriptionRecord),
		domainNodeIndex:       make(map[data.QuineId]map[data.DomainGraphNodeID]*bool),
		notifier:              notifier,
	}
}

/*
ReceiveDomainNodeSubscription registers sub as a subscriber of dgn. If
shouldSendReplies is set the node immediately evaluates spec against its
current local state and notifies sub of the result.
*/
func (e *Engine) ReceiveDomainNodeSubscription(spec DgnSpec, sub data.Subscriber, forQuery data.StandingQueryID, shouldSendReplies bool, properties map[string]data.PropertyValue, edges []data.HalfEdge) {
	rec := e.subscribersToThisNode[spec.ID]
	if rec == nil {
		rec = &SubscriptionRecord{
			Subscribers:    make(map[data.Subscriber]bool),
			RelatedQueries: make(map[data.StandingQueryID]bool),
		}
		e.subscribersToThisNode[spec.ID] = rec
	}

	rec.Subscribers[sub] = true
	if forQuery != "" {
		rec.RelatedQueries[forQuery] = true
	}

	e.ensureSubscriptionToDomainEdges(spec, relatedQueryList(rec.RelatedQueries), shouldSendReplies)

	if shouldSendReplies {
		e.updateAnswerAndNotifySubscribers(spec, properties, edges, shouldSendReplies)
	}
}

/*
ReceiveIndexUpdate records a result reported by a peer this node
subscribes through for dgn, and returns true if the caller should
re-evaluate any DgnSpecs depending on that peer (the caller owns the
DgnSpec registry and performs the actual re-evaluation via
UpdateAnswerAndNotifySubscribers).
*/
func (e *Engine) ReceiveIndexUpdate(fromPeer data.QuineId, dgn data.DomainGraphNodeID, result *bool) bool {
	byDgn := e.domainNodeIndex[fromPeer]
	if byDgn == nil {
		byDgn = make(map[data.DomainGraphNodeID]*bool)
		e.domainNodeIndex[fromPeer] = byDgn
	}

	prev, had := byDgn[dgn]
	byDgn[dgn] = result

	if !had {
		return true
	}
	if prev == nil && result == nil {
		return false
	}
	if prev == nil || result == nil {
		return true
	}
	return *prev != *result
}

/*
PeerIndexFor returns the last notification values this node has recorded
for each peer on the given dgn, for use by a DgnSpec's Evaluate function.
*/
func (e *Engine) PeerIndexFor(dgn data.DomainGraphNodeID) map[data.QuineId]*bool {
	out := make(map[data.QuineId]*bool)
	for peer, byDgn := range e.domainNodeIndex {
		if v, ok := byDgn[dgn]; ok {
			out[peer] = v
		}
	}
	return out
}

/*
CancelSubscription removes sub from dgn's subscriber set. If the set
becomes empty, this node's own outgoing subscriptions to the peers
required by spec are cancelled.
*/
func (e *Engine) CancelSubscription(spec DgnSpec, sub data.Subscriber, shouldSendReplies bool) {
	rec := e.subscribersToThisNode[spec.ID]
	if rec == nil {
		return
	}

	delete(rec.Subscribers, sub)

	if len(rec.Subscribers) > 0 {
		return
	}

	delete(e.subscribersToThisNode, spec.ID)

	for _, edge := range spec.RequiredEdges {
		e.notifier.CancelPeerSubscription(edge.Peer, spec.ID)
	}
}

/*
EnsureSubscriptionToDomainEdges is the exported entry point; it is
idempotent, matching the contract that repeated calls for the same spec
and related queries never double-subscribe.
*/
func (e *Engine) EnsureSubscriptionToDomainEdges(spec DgnSpec, relatedQueries []data.StandingQueryID, shouldSendReplies bool) {
	e.ensureSubscriptionToDomainEdges(spec, relatedQueries, shouldSendReplies)
}

func (e *Engine) ensureSubscriptionToDomainEdges(spec DgnSpec, relatedQueries []data.StandingQueryID, shouldSendReplies bool) {
	for _, edge := range spec.RequiredEdges {
		e.notifier.SubscribeToPeer(edge.Peer, spec.ID, relatedQueries, shouldSendReplies)
	}
}

/*
UpdateAnswerAndNotifySubscribers recomputes this node's local truth value
for spec from properties/edges and the peer index, and if it differs from
the last notification sent, updates the record and notifies every
subscriber. shouldSendReplies is threaded through unchanged — callers
replaying the journal on wake pass false so that notifications already
delivered before sleep are not repeated.
*/
func (e *Engine) UpdateAnswerAndNotifySubscribers(spec DgnSpec, properties map[string]data.PropertyValue, edges []data.HalfEdge, shouldSendReplies bool) {
	e.updateAnswerAndNotifySubscribers(spec, properties, edges, shouldSendReplies)
}

func (e *Engine) updateAnswerAndNotifySubscribers(spec DgnSpec, properties map[string]data.PropertyValue, edges []data.HalfEdge, shouldSendReplies bool) {
	rec := e.subscribersToThisNode[spec.ID]
	if rec == nil {
		return
	}

	result := spec.Evaluate(properties, edges, e.PeerIndexFor(spec.ID))

	if rec.LastNotification != nil && *rec.LastNotification == result {
		return
	}

	rec.LastNotification = &result

	for sub := range rec.Subscribers {
		e.notifier.NotifySubscriber(sub, spec.ID, result, shouldSendReplies)
	}
}

/*
SubscribedDgns returns every DGN id this node currently subscribes
through a peer for — used to rebuild the local index and to detect
staleness against the global DGN registry after a wake.
*/
func (e *Engine) SubscribedDgns() []data.DomainGraphNodeID {
	var ids []data.DomainGraphNodeID
	for _, byDgn := range e.domainNodeIndex {
		for dgn := range byDgn {
			ids = append(ids, dgn)
		}
	}
	return ids
}

/*
DropDgn removes all bookkeeping for dgn, used by the self-healing path
when the local index reports the DGN no longer exists in the global
registry.
*/
func (e *Engine) DropDgn(dgn data.DomainGraphNodeID) {
	delete(e.subscribersToThisNode, dgn)
	for _, byDgn := range e.domainNodeIndex {
		delete(byDgn, dgn)
	}
}

func relatedQueryList(m map[data.StandingQueryID]bool) []data.StandingQueryID {
	out := make([]data.StandingQueryID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}
