package data

/*
PropertyEventKind discriminates the two PropertyEvent variants. Go has no
sum types, so events are modeled the way the journal wire format models
them: a small Kind discriminant plus the fields relevant to that kind.
*/
type PropertyEventKind uint8

const (
	PropertySet PropertyEventKind = iota
	PropertyRemoved
)

/*
PropertyEvent is a single property mutation. Previous is only meaningful
for PropertyRemoved, where it records the value being removed (needed by
some standing-query subscribers that diff on removal).
*/
type PropertyEvent struct {
	Kind     PropertyEventKind
	Key      string
	Value    PropertyValue
	Previous PropertyValue
	At       EventTime
}

/*
EdgeEventKind discriminates the two EdgeEvent variants.
*/
type EdgeEventKind uint8

const (
	EdgeAdded EdgeEventKind = iota
	EdgeRemoved
)

/*
EdgeEvent is a single edge mutation.
*/
type EdgeEvent struct {
	Kind EdgeEventKind
	Edge HalfEdge
	At   EventTime
}

/*
DomainIndexEventKind discriminates the four DomainIndexEvent variants
described for the domain-graph subscription engine.
*/
type DomainIndexEventKind uint8

const (
	DomainSubscriptionCreated DomainIndexEventKind = iota
	DomainSubscriptionCancelled
	DomainIndexUpdated
	DomainIndexAnswerChanged
)

/*
DomainIndexEvent carries one domain-graph subscription-engine state
transition. Which fields are meaningful depends on Kind:

  - DomainSubscriptionCreated/Cancelled: Dgn, Subscriber, (Peer if cancel
    originated remotely), ForQuery.
  - DomainIndexUpdated: Dgn, Peer, Result (an index update received from a
    peer node this node is subscribed through).
  - DomainIndexAnswerChanged: Dgn, Result (this node's own recomputed
    answer, to be journaled and propagated to subscribers).
*/
type DomainIndexEvent struct {
	Kind       DomainIndexEventKind
	Dgn        DomainGraphNodeID
	Peer       QuineId
	Subscriber Subscriber
	ForQuery   StandingQueryID
	Result     *bool
	At         EventTime
}

/*
SubscriberKind discriminates the two Subscriber variants that can be
registered against a node's local event index or its domain-graph
subscriber set.
*/
type SubscriberKind uint8

const (
	SubscriberMultipleValuesSq SubscriberKind = iota
	SubscriberDomainNodeIndex
)

/*
Subscriber is a tagged reference to whatever is watching this node for a
property, edge or domain-index event: either a branch of a
multiple-values standing query, or another node's domain-node-index entry.
*/
type Subscriber struct {
	Kind SubscriberKind
	SqID StandingQueryID
	Part PartID
	Dgn  DomainGraphNodeID
}

/*
NodeChangeEvent is the narrower event family that actually updates
persisted node state and participates in snapshot dirtiness tracking and
post-action dispatch: PropertyEvent and EdgeEvent, but not
DomainIndexEvent (which persists to a separate logical stream per the
persistor interface).
*/
type NodeChangeEvent interface {
	EventTime() EventTime
}

/*
EventTime implements NodeChangeEvent.
*/
func (e PropertyEvent) EventTime() EventTime { return e.At }

/*
EventTime implements NodeChangeEvent.
*/
func (e EdgeEvent) EventTime() EventTime { return e.At }
