package data

import (
	"crypto/md5"
	"sort"
)

/*
NodeHash computes a content hash over a node's id and visible state: its
properties and edges, normalized into a deterministic byte order first.
Two instances of the same node holding the same logical state hash
identically regardless of the order events were applied in, which is what
the journal-replay equivalence property checks.
*/
func NodeHash(qid QuineId, properties map[string]PropertyValue, edges []HalfEdge) [16]byte {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	buf = append(buf, qid[:]...)

	for _, k := range keys {
		buf = append(buf, []byte(k)...)
		buf = append(buf, 0)
		buf = append(buf, properties[k].Raw...)
		buf = append(buf, 0)
	}

	sorted := make([]HalfEdge, len(edges))
	copy(sorted, edges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Label != sorted[j].Label {
			return sorted[i].Label < sorted[j].Label
		}
		if sorted[i].Direction != sorted[j].Direction {
			return sorted[i].Direction < sorted[j].Direction
		}
		return sorted[i].Peer.String() < sorted[j].Peer.String()
	})

	for _, e := range sorted {
		buf = append(buf, byte(e.Direction))
		buf = append(buf, []byte(e.Label)...)
		buf = append(buf, 0)
		buf = append(buf, e.Peer[:]...)
	}

	return md5.Sum(buf)
}
