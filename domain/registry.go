package domain

import (
	"sync"

	"github.com/krotik/streamgraph/data"
)

/*
SpecRegistry is the global, mutable DGN registry injected into every node
actor. It is read-mostly from a node's perspective: nodes look up specs
and check registration, but never themselves add or remove entries -
registration changes come from the standing-query layer that owns DGN
lifecycle, external to this package.
*/
type SpecRegistry interface {
	GetSpec(dgn data.DomainGraphNodeID) (DgnSpec, bool)
	IsRegistered(dgn data.DomainGraphNodeID) bool
}

/*
StaticRegistry is a mutex-guarded map-backed SpecRegistry, used by tests
and by the demonstration ingest adapter in place of a real standing-query
planner.
*/
type StaticRegistry struct {
	mu    sync.RWMutex
	specs map[data.DomainGraphNodeID]DgnSpec
}

/*
NewStaticRegistry creates an empty StaticRegistry.
*/
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{specs: make(map[data.DomainGraphNodeID]DgnSpec)}
}

/*
Register adds or replaces a DgnSpec.
*/
func (r *StaticRegistry) Register(spec DgnSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.ID] = spec
}

/*
Deregister removes a DgnSpec, simulating a standing query being cancelled
globally - the scenario the local-index self-healing path guards against.
*/
func (r *StaticRegistry) Deregister(dgn data.DomainGraphNodeID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.specs, dgn)
}

/*
GetSpec implements SpecRegistry.
*/
func (r *StaticRegistry) GetSpec(dgn data.DomainGraphNodeID) (DgnSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[dgn]
	return spec, ok
}

/*
IsRegistered implements SpecRegistry.
*/
func (r *StaticRegistry) IsRegistered(dgn data.DomainGraphNodeID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.specs[dgn]
	return ok
}
