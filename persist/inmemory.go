package persist

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/krotik/common/datautil"

	"github.com/krotik/streamgraph/data"
)

/*
FailureInjector lets tests force a Persistor call to fail, mirroring the
configurable fault points the retry and failure-isolation scenarios need.
A nil injector never fails.
*/
type FailureInjector func(op string, qid data.QuineId) error

/*
InMemory is a mutex-guarded, map-backed Persistor. It is the only
Persistor implementation shipped with the core; real backends are out of
scope. journal and snapshots are keyed by QuineId, mirroring the
per-component-map bookkeeping the graph storage layer uses for its own
slots.
*/
type InMemory struct {
	lock sync.RWMutex

	journal   map[data.QuineId][]JournalEntry
	snapshots map[data.QuineId]map[data.EventTime]Snapshot
	sqDefs    *datautil.MapCache
	sqKeys    map[data.StandingQueryID]bool

	fail FailureInjector
}

/*
Option configures an InMemory persistor at construction time, following
the functional-options shape used throughout the retrieval pack's
constructor functions.
*/
type Option func(*InMemory)

/*
WithFailureInjector installs a FailureInjector used to simulate transient
or permanent persistor failures in tests.
*/
func WithFailureInjector(f FailureInjector) Option {
	return func(im *InMemory) {
		im.fail = f
	}
}

/*
NewInMemory creates an empty in-memory persistor.
*/
func NewInMemory(opts ...Option) *InMemory {
	im := &InMemory{
		journal:   make(map[data.QuineId][]JournalEntry),
		snapshots: make(map[data.QuineId]map[data.EventTime]Snapshot),
		sqDefs:    datautil.NewMapCache(0, 0),
		sqKeys:    make(map[data.StandingQueryID]bool),
	}

	for _, opt := range opts {
		opt(im)
	}

	return im
}

func (im *InMemory) checkFail(op string, qid data.QuineId) error {
	if im.fail == nil {
		return nil
	}
	return im.fail(op, qid)
}

/*
PersistNodeChangeEvents implements Persistor.
*/
func (im *InMemory) PersistNodeChangeEvents(ctx context.Context, qid data.QuineId, events []NodeChangeEventRecord) error {
	if err := im.checkFail("PersistNodeChangeEvents", qid); err != nil {
		return err
	}

	im.lock.Lock()
	defer im.lock.Unlock()

	for _, rec := range events {
		entry := JournalEntry{At: rec.At, NodeChange: rec.Event}
		im.journal[qid] = append(im.journal[qid], entry)
	}

	sort.Slice(im.journal[qid], func(i, j int) bool {
		return im.journal[qid][i].At < im.journal[qid][j].At
	})

	return nil
}

/*
PersistDomainIndexEvents implements Persistor.
*/
func (im *InMemory) PersistDomainIndexEvents(ctx context.Context, qid data.QuineId, events []DomainIndexEventRecord) error {
	if err := im.checkFail("PersistDomainIndexEvents", qid); err != nil {
		return err
	}

	im.lock.Lock()
	defer im.lock.Unlock()

	for _, rec := range events {
		ev := rec.Event
		im.journal[qid] = append(im.journal[qid], JournalEntry{At: rec.At, DomainIdx: &ev})
	}

	sort.Slice(im.journal[qid], func(i, j int) bool {
		return im.journal[qid][i].At < im.journal[qid][j].At
	})

	return nil
}

/*
PersistSnapshot implements Persistor. When snapshotSingleton is set, the
new snapshot replaces any previous snapshot for qid under
data.MaxEventTime; otherwise it is kept alongside earlier snapshots,
keyed by its own EventTime.
*/
func (im *InMemory) PersistSnapshot(ctx context.Context, qid data.QuineId, snapshotSingleton bool, snap Snapshot) error {
	if err := im.checkFail("PersistSnapshot", qid); err != nil {
		return err
	}

	im.lock.Lock()
	defer im.lock.Unlock()

	if im.snapshots[qid] == nil {
		im.snapshots[qid] = make(map[data.EventTime]Snapshot)
	}

	key := snap.At
	if snapshotSingleton {
		im.snapshots[qid] = make(map[data.EventTime]Snapshot)
		key = data.MaxEventTime
	}

	im.snapshots[qid][key] = snap

	return nil
}

/*
GetJournalWithTime implements Persistor. Bounds are inclusive.
*/
func (im *InMemory) GetJournalWithTime(ctx context.Context, qid data.QuineId, from, to data.EventTime, includeDomainIndex bool) ([]JournalEntry, error) {
	if err := im.checkFail("GetJournalWithTime", qid); err != nil {
		return nil, err
	}

	im.lock.RLock()
	defer im.lock.RUnlock()

	var out []JournalEntry
	for _, entry := range im.journal[qid] {
		if entry.At < from || entry.At > to {
			continue
		}
		if entry.DomainIdx != nil && !includeDomainIndex {
			continue
		}
		out = append(out, entry)
	}

	return out, nil
}

/*
GetLatestSnapshot implements Persistor.
*/
func (im *InMemory) GetLatestSnapshot(ctx context.Context, qid data.QuineId, atOrBefore data.EventTime) (*Snapshot, bool, error) {
	if err := im.checkFail("GetLatestSnapshot", qid); err != nil {
		return nil, false, err
	}

	im.lock.RLock()
	defer im.lock.RUnlock()

	var best *Snapshot
	for at, snap := range im.snapshots[qid] {
		effectiveAt := at
		if at == data.MaxEventTime {
			effectiveAt = snap.At
		}
		if effectiveAt > atOrBefore {
			continue
		}
		if best == nil || effectiveAt > best.At {
			s := snap
			best = &s
		}
	}

	return best, best != nil, nil
}

/*
ListStandingQueries implements Persistor.
*/
func (im *InMemory) ListStandingQueries(ctx context.Context) ([]data.StandingQueryID, error) {
	im.lock.RLock()
	defer im.lock.RUnlock()

	var ids []data.StandingQueryID
	for k := range im.sqKeys {
		ids = append(ids, k)
	}

	return ids, nil
}

/*
GetStandingQuery implements Persistor.
*/
func (im *InMemory) GetStandingQuery(ctx context.Context, id data.StandingQueryID) ([]byte, bool, error) {
	v, ok := im.sqDefs.Get(string(id))
	if !ok {
		return nil, false, nil
	}

	b, ok := v.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("corrupt standing query definition for %v", id)
	}

	return b, true, nil
}

/*
PutStandingQuery implements Persistor.
*/
func (im *InMemory) PutStandingQuery(ctx context.Context, id data.StandingQueryID, definition []byte) error {
	im.lock.Lock()
	im.sqKeys[id] = true
	im.lock.Unlock()

	im.sqDefs.Put(string(id), definition)
	return nil
}

/*
DeleteStandingQuery implements Persistor.
*/
func (im *InMemory) DeleteStandingQuery(ctx context.Context, id data.StandingQueryID) error {
	im.lock.Lock()
	delete(im.sqKeys, id)
	im.lock.Unlock()

	im.sqDefs.Remove(string(id))
	return nil
}
