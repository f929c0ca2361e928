package actor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/krotik/streamgraph/data"
	"github.com/krotik/streamgraph/domain"
	"github.com/krotik/streamgraph/persist"
)

func testRef(n byte) data.NodeRef {
	return data.NodeRef{Namespace: "test", QuineID: data.QuineId{n}}
}

func wakeTestActor(t *testing.T, ref data.NodeRef, cfg Config, p persist.Persistor) *NodeActor {
	t.Helper()

	wall := int64(1000)
	a := NewNodeActor(ref, cfg, p, domain.NewStaticRegistry(), nil, nil, func() int64 { wall++; return wall })

	if err := a.Wake(context.Background()); err != nil {
		t.Fatalf("Wake failed: %v", err)
	}
	t.Cleanup(func() {
		if a.State() == Awake {
			_ = a.Sleep(context.Background())
		}
	})

	return a
}

func propValue(t *testing.T, v interface{}) data.PropertyValue {
	t.Helper()
	pv, err := data.NewPropertyValue(v)
	if err != nil {
		t.Fatalf("NewPropertyValue failed: %v", err)
	}
	return pv
}

func TestPropertySetIsIdempotentNoOp(t *testing.T) {
	cfg := DefaultConfig()
	p := persist.NewInMemory()
	a := wakeTestActor(t, testRef(1), cfg, p)

	ctx := context.Background()
	val := propValue(t, "alice")

	if err := a.SubmitPropertyEvents(ctx, []data.PropertyEvent{{Kind: data.PropertySet, Key: "name", Value: val}}); err != nil {
		t.Fatalf("first set failed: %v", err)
	}

	before, _ := p.GetJournalWithTime(ctx, a.ref.QuineID, 0, data.MaxEventTime, false)

	if err := a.SubmitPropertyEvents(ctx, []data.PropertyEvent{{Kind: data.PropertySet, Key: "name", Value: val}}); err != nil {
		t.Fatalf("no-op set failed: %v", err)
	}

	after, _ := p.GetJournalWithTime(ctx, a.ref.QuineID, 0, data.MaxEventTime, false)

	if len(after) != len(before) {
		t.Fatalf("expected no new journal writes for a no-op PropertySet, before=%v after=%v", len(before), len(after))
	}
}

func TestBatchDedupKeepsLastPerKey(t *testing.T) {
	cfg := DefaultConfig()
	p := persist.NewInMemory()
	a := wakeTestActor(t, testRef(2), cfg, p)
	ctx := context.Background()

	first := propValue(t, "one")
	second := propValue(t, "two")

	batch := []data.PropertyEvent{
		{Kind: data.PropertySet, Key: "k", Value: first},
		{Kind: data.PropertySet, Key: "k", Value: second},
	}

	if err := a.SubmitPropertyEvents(ctx, batch); err != nil {
		t.Fatalf("SubmitPropertyEvents failed: %v", err)
	}

	got := a.properties["k"]
	if !got.Equal(second) {
		t.Errorf("expected final value to be the last event in the batch")
	}

	entries, _ := p.GetJournalWithTime(ctx, a.ref.QuineID, 0, data.MaxEventTime, false)
	if len(entries) != 1 {
		t.Fatalf("expected batch dedup to journal exactly one event, got %v", len(entries))
	}
}

func TestEdgeAddIsIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	p := persist.NewInMemory()
	a := wakeTestActor(t, testRef(3), cfg, p)
	ctx := context.Background()

	edge := data.HalfEdge{Direction: data.Outgoing, Label: "knows", Peer: data.QuineId{9}}

	if err := a.SubmitEdgeEvents(ctx, []data.EdgeEvent{{Kind: data.EdgeAdded, Edge: edge}}); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if len(a.edges) != 1 {
		t.Fatalf("expected 1 edge after first add, got %v", len(a.edges))
	}

	if err := a.SubmitEdgeEvents(ctx, []data.EdgeEvent{{Kind: data.EdgeAdded, Edge: edge}}); err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if len(a.edges) != 1 {
		t.Fatalf("expected duplicate EdgeAdded to have no effect, got %v edges", len(a.edges))
	}
}

func TestPersistorFirstFailureLeavesMemoryUntouched(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EffectOrder = PersistorFirst

	boom := errors.New("persist failed")
	p := persist.NewInMemory(persist.WithFailureInjector(func(op string, qid data.QuineId) error {
		if op == "PersistNodeChangeEvents" {
			return boom
		}
		return nil
	}))

	a := wakeTestActor(t, testRef(4), cfg, p)
	ctx := context.Background()

	val := propValue(t, "x")
	err := a.SubmitPropertyEvents(ctx, []data.PropertyEvent{{Kind: data.PropertySet, Key: "k", Value: val}})

	if err == nil {
		t.Fatalf("expected the submission to surface the persist failure")
	}
	if _, ok := a.properties["k"]; ok {
		t.Errorf("expected PersistorFirst to leave memory untouched on persist failure")
	}
}

func TestMemoryFirstAppliesImmediatelyAndRetriesPersist(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EffectOrder = MemoryFirst
	cfg.RetryBase = time.Millisecond
	cfg.RetryCap = 5 * time.Millisecond
	cfg.SnapshotOnUpdate = false

	var fail atomicBool
	fail.set(true)

	p := persist.NewInMemory(persist.WithFailureInjector(func(op string, qid data.QuineId) error {
		if op == "PersistNodeChangeEvents" && fail.get() {
			return errors.New("transient")
		}
		return nil
	}))

	a := wakeTestActor(t, testRef(5), cfg, p)
	ctx := context.Background()

	val := propValue(t, "x")
	if err := a.SubmitPropertyEvents(ctx, []data.PropertyEvent{{Kind: data.PropertySet, Key: "k", Value: val}}); err != nil {
		t.Fatalf("MemoryFirst submit should not block on persistence: %v", err)
	}

	if _, ok := a.properties["k"]; !ok {
		t.Fatalf("expected MemoryFirst to apply in memory immediately")
	}

	fail.set(false)

	deadline := time.After(2 * time.Second)
	for {
		entries, _ := p.GetJournalWithTime(ctx, a.ref.QuineID, 0, data.MaxEventTime, false)
		if len(entries) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected MemoryFirst background retry to eventually persist the event")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestHistoricalNodeRefusesMutation(t *testing.T) {
	p := persist.NewInMemory()
	at := data.NewEventTime(1000, 0)
	ref := data.NodeRef{Namespace: "test", QuineID: data.QuineId{6}, AtTime: &at}

	a := NewNodeActor(ref, DefaultConfig(), p, domain.NewStaticRegistry(), nil, nil, func() int64 { return 1000 })
	if err := a.Wake(context.Background()); err != nil {
		t.Fatalf("Wake failed: %v", err)
	}

	val := propValue(t, "x")
	err := a.SubmitPropertyEvents(context.Background(), []data.PropertyEvent{{Kind: data.PropertySet, Key: "k", Value: val}})

	if err == nil {
		t.Fatalf("expected historical node to refuse mutation")
	}

	entries, _ := p.GetJournalWithTime(context.Background(), a.ref.QuineID, 0, data.MaxEventTime, false)
	if len(entries) != 0 {
		t.Errorf("expected zero persistor writes from a refused historical mutation, got %v", len(entries))
	}
}

func TestWakeReplayReproducesNodeHash(t *testing.T) {
	p := persist.NewInMemory()
	ref := testRef(7)
	cfg := DefaultConfig()
	cfg.SnapshotOnUpdate = false

	a := wakeTestActor(t, ref, cfg, p)
	ctx := context.Background()

	v1 := propValue(t, "alice")
	v2 := propValue(t, "bob")
	edge := data.HalfEdge{Direction: data.Outgoing, Label: "knows", Peer: data.QuineId{42}}

	if err := a.SubmitPropertyEvents(ctx, []data.PropertyEvent{{Kind: data.PropertySet, Key: "name", Value: v1}}); err != nil {
		t.Fatalf("submit 1: %v", err)
	}
	if err := a.SubmitPropertyEvents(ctx, []data.PropertyEvent{{Kind: data.PropertySet, Key: "name", Value: v2}}); err != nil {
		t.Fatalf("submit 2: %v", err)
	}
	if err := a.SubmitEdgeEvents(ctx, []data.EdgeEvent{{Kind: data.EdgeAdded, Edge: edge}}); err != nil {
		t.Fatalf("submit 3: %v", err)
	}

	originalHash := a.NodeHash()

	if err := a.Sleep(ctx); err != nil {
		t.Fatalf("sleep: %v", err)
	}

	b := NewNodeActor(ref, cfg, p, domain.NewStaticRegistry(), nil, nil, func() int64 { return 999999 })
	if err := b.Wake(ctx); err != nil {
		t.Fatalf("second wake: %v", err)
	}
	defer b.Sleep(ctx)

	replayedHash := b.NodeHash()

	if originalHash != replayedHash {
		t.Errorf("expected journal replay to reproduce the same node hash, got %x vs %x", originalHash, replayedHash)
	}
}

type atomicBool struct {
	v atomic.Bool
}

func (b *atomicBool) set(v bool) { b.v.Store(v) }
func (b *atomicBool) get() bool  { return b.v.Load() }
