package data

import (
	"bytes"
	"encoding/gob"
)

/*
PropertyValue is a property stored on a node. It is carried around as
opaque encoded bytes so that persistence and journal replay never need to
know the concrete Go type; Value lazily gob-decodes the bytes on first use
and caches the result.
*/
type PropertyValue struct {
	Raw    []byte
	cached interface{}
	decoded bool
}

/*
NewPropertyValue gob-encodes v into a PropertyValue.
*/
func NewPropertyValue(v interface{}) (PropertyValue, error) {
	var buf bytes.Buffer
	// encode through a pointer to the interface so the bytes carry the
	// concrete type name and Value can decode them back into an interface{}
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return PropertyValue{}, err
	}
	return PropertyValue{Raw: buf.Bytes(), cached: v, decoded: true}, nil
}

/*
Value gob-decodes the stored bytes into an interface{}, caching the result
for subsequent calls.
*/
func (p *PropertyValue) Value() (interface{}, error) {
	if p.decoded {
		return p.cached, nil
	}

	var v interface{}
	if len(p.Raw) > 0 {
		if err := gob.NewDecoder(bytes.NewReader(p.Raw)).Decode(&v); err != nil {
			return nil, err
		}
	}

	p.cached = v
	p.decoded = true
	return v, nil
}

/*
Equal reports whether two property values hold the same encoded bytes.
Effect-checking (PropertySet is a no-op if the value is unchanged) compares
by encoded representation rather than by decoding, matching gob's stable
encoding for a fixed concrete type.
*/
func (p PropertyValue) Equal(other PropertyValue) bool {
	return bytes.Equal(p.Raw, other.Raw)
}

/*
EdgeDirection distinguishes the three half-edge orientations a node can
record against a peer.
*/
type EdgeDirection uint8

const (
	Outgoing EdgeDirection = iota
	Incoming
	Undirected
)

/*
HalfEdge is this node's side of an edge to a peer; the peer holds the
complementary half independently.
*/
type HalfEdge struct {
	Direction EdgeDirection
	Label     string
	Peer      QuineId
}

/*
Equal reports whether two half edges address the same (direction, label,
peer) triple.
*/
func (h HalfEdge) Equal(other HalfEdge) bool {
	return h.Direction == other.Direction && h.Label == other.Label && h.Peer == other.Peer
}
