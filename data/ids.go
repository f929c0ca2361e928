/*
Package data contains the node identity, event-time and event types shared
by the actor, persist, index and domain packages. It defines no behavior
beyond small value-type helpers; the processing logic lives in actor,
index and domain.
*/
package data

import (
	"encoding/hex"
	"fmt"
)

/*
QuineId identifies a graph node independently of its namespace. It is
opaque outside of String/ParseQuineId.
*/
type QuineId [16]byte

/*
String returns the hex representation of this id.
*/
func (q QuineId) String() string {
	return hex.EncodeToString(q[:])
}

/*
ParseQuineId parses the hex representation produced by String.
*/
func ParseQuineId(s string) (QuineId, error) {
	var q QuineId

	b, err := hex.DecodeString(s)
	if err != nil {
		return q, err
	}
	if len(b) != len(q) {
		return q, fmt.Errorf("invalid quine id length: %v", len(b))
	}

	copy(q[:], b)
	return q, nil
}

/*
DomainGraphNodeID identifies a globally-registered standing query pattern
fragment (a DGN).
*/
type DomainGraphNodeID string

/*
StandingQueryID identifies a standing query registered against the graph.
*/
type StandingQueryID string

/*
PartID identifies one partial-match branch of a multiple-values standing
query on a single node.
*/
type PartID string

/*
NodeRef addresses a single graph node, optionally at a historical point in
time. AtTime == nil addresses the live, mutable node.
*/
type NodeRef struct {
	Namespace string
	QuineID   QuineId
	AtTime    *EventTime
}

/*
IsHistorical reports whether this ref addresses a read-only historical
snapshot rather than the live node.
*/
func (r NodeRef) IsHistorical() bool {
	return r.AtTime != nil
}

/*
String returns a human-readable representation of this ref, useful for
logging and debug_internal_state dumps.
*/
func (r NodeRef) String() string {
	if r.AtTime == nil {
		return fmt.Sprintf("%v/%v", r.Namespace, r.QuineID)
	}
	return fmt.Sprintf("%v/%v@%v", r.Namespace, r.QuineID, *r.AtTime)
}
