/*
Package index implements the per-node local event index: the mapping
from an incoming property or edge event to the set of standing-query
subscribers on this node that care about it.
*/
package index

import (
	"github.com/krotik/streamgraph/data"
)

/*
LocalIndex holds the three sub-indexes a node consults on every effective
property or edge event.
*/
type LocalIndex struct {
	watchingForProperty map[string]map[data.Subscriber]bool
	watchingForEdge     map[string]map[data.Subscriber]bool
	watchingForAnyEdge  map[data.Subscriber]bool
}

/*
New returns an empty LocalIndex.
*/
func New() *LocalIndex {
	return &LocalIndex{
		watchingForProperty: make(map[string]map[data.Subscriber]bool),
		watchingForEdge:     make(map[string]map[data.Subscriber]bool),
		watchingForAnyEdge:  make(map[data.Subscriber]bool),
	}
}

/*
WatchProperty registers sub as interested in changes to property key.
*/
func (li *LocalIndex) WatchProperty(key string, sub data.Subscriber) {
	m := li.watchingForProperty[key]
	if m == nil {
		m = make(map[data.Subscriber]bool)
		li.watchingForProperty[key] = m
	}
	m[sub] = true
}

/*
WatchEdge registers sub as interested in edges carrying label.
*/
func (li *LocalIndex) WatchEdge(label string, sub data.Subscriber) {
	m := li.watchingForEdge[label]
	if m == nil {
		m = make(map[data.Subscriber]bool)
		li.watchingForEdge[label] = m
	}
	m[sub] = true
}

/*
WatchAnyEdge registers sub as interested in every edge event regardless of
label.
*/
func (li *LocalIndex) WatchAnyEdge(sub data.Subscriber) {
	li.watchingForAnyEdge[sub] = true
}

/*
Unwatch removes sub from every sub-index it was registered in.
*/
func (li *LocalIndex) Unwatch(sub data.Subscriber) {
	for _, m := range li.watchingForProperty {
		delete(m, sub)
	}
	for _, m := range li.watchingForEdge {
		delete(m, sub)
	}
	delete(li.watchingForAnyEdge, sub)
}

/*
PropertySubscribers invokes callback for each subscriber watching key. If
callback returns true, that subscriber is removed from the index — used
by the self-healing path when a DGN has disappeared from the global
registry.
*/
func (li *LocalIndex) PropertySubscribers(key string, callback func(data.Subscriber) bool) {
	for sub := range li.watchingForProperty[key] {
		if callback(sub) {
			delete(li.watchingForProperty[key], sub)
		}
	}
}

/*
EdgeSubscribers invokes callback for each subscriber watching label-tagged
edges plus every any-edge subscriber. Removal semantics match
PropertySubscribers.
*/
func (li *LocalIndex) EdgeSubscribers(label string, callback func(data.Subscriber) bool) {
	for sub := range li.watchingForEdge[label] {
		if callback(sub) {
			delete(li.watchingForEdge[label], sub)
		}
	}
	for sub := range li.watchingForAnyEdge {
		if callback(sub) {
			delete(li.watchingForAnyEdge, sub)
		}
	}
}

/*
DomainGraphNodeRegistry is the minimal read interface the index needs from
the global DGN registry to decide whether a DomainNodeIndex subscriber's
DGN is still live. It is injected rather than imported directly, keeping
the registry's ownership outside of this package.
*/
type DomainGraphNodeRegistry interface {
	IsRegistered(dgn data.DomainGraphNodeID) bool
}

/*
Reconstruct returns a new, empty LocalIndex and, separately, the subset
of subscribedDgns that the global DGN registry no longer recognizes (all
of them when registry is nil). It derives no property or edge watches:
watches added to an earlier index through WatchProperty/WatchEdge/
WatchAnyEdge are not carried over to the returned one.
*/
func Reconstruct(subscribedDgns []data.DomainGraphNodeID, registry DomainGraphNodeRegistry) (*LocalIndex, []data.DomainGraphNodeID) {
	li := New()

	var stale []data.DomainGraphNodeID
	for _, dgn := range subscribedDgns {
		if registry == nil || !registry.IsRegistered(dgn) {
			stale = append(stale, dgn)
		}
	}

	return li, stale
}
