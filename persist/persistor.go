/*
Package persist defines the journal + snapshot storage contract the node
actor depends on, and ships one in-memory implementation used by tests and
by the demonstration ingest adapter. Real backends (Cassandra, RocksDB,
MapDB-style embedded stores) are out of scope; only the interface and a
reference implementation live here.
*/
package persist

import (
	"context"

	"github.com/krotik/streamgraph/data"
)

/*
NodeChangeEventRecord pairs a journaled event with its stamped EventTime.
The node actor always supplies events already stamped; the persistor never
assigns times itself.
*/
type NodeChangeEventRecord struct {
	At    data.EventTime
	Event interface{} // data.PropertyEvent or data.EdgeEvent
}

/*
DomainIndexEventRecord pairs a journaled domain-index event with its
stamped EventTime.
*/
type DomainIndexEventRecord struct {
	At    data.EventTime
	Event data.DomainIndexEvent
}

/*
JournalEntry is a single record read back from GetJournalWithTime. Exactly
one of NodeChange/DomainIdx is populated per entry.
*/
type JournalEntry struct {
	At         data.EventTime
	NodeChange interface{} // data.PropertyEvent or data.EdgeEvent, nil if this entry is a domain-index event
	DomainIdx  *data.DomainIndexEvent
}

/*
Snapshot is the decoded content of a persisted snapshot blob.
*/
type Snapshot struct {
	At                data.EventTime
	Properties        map[string]data.PropertyValue
	Edges             []data.HalfEdge
	Subscribers       map[data.DomainGraphNodeID]SubscriberRecord
	DomainNodeIndex   map[data.QuineId]map[data.DomainGraphNodeID]*bool
}

/*
SubscriberRecord mirrors the domain-graph engine's per-DGN subscriber
bookkeeping, persisted inside a node's snapshot.
*/
type SubscriberRecord struct {
	Subscribers      []data.Subscriber
	LastNotification *bool
	RelatedQueries   []data.StandingQueryID
}

/*
Persistor is the storage contract the node actor, edge processor and
wake/sleep controller depend on. Implementations must guarantee that a
single call to PersistNodeChangeEvents or PersistDomainIndexEvents is
atomic: either every event in the batch becomes durable, or none does.
*/
type Persistor interface {
	PersistNodeChangeEvents(ctx context.Context, qid data.QuineId, events []NodeChangeEventRecord) error
	PersistDomainIndexEvents(ctx context.Context, qid data.QuineId, events []DomainIndexEventRecord) error
	PersistSnapshot(ctx context.Context, qid data.QuineId, snapshotSingleton bool, snap Snapshot) error

	GetJournalWithTime(ctx context.Context, qid data.QuineId, from, to data.EventTime, includeDomainIndex bool) ([]JournalEntry, error)
	GetLatestSnapshot(ctx context.Context, qid data.QuineId, atOrBefore data.EventTime) (*Snapshot, bool, error)

	ListStandingQueries(ctx context.Context) ([]data.StandingQueryID, error)
	GetStandingQuery(ctx context.Context, id data.StandingQueryID) ([]byte, bool, error)
	PutStandingQuery(ctx context.Context, id data.StandingQueryID, definition []byte) error
	DeleteStandingQuery(ctx context.Context, id data.StandingQueryID) error
}
