package index

import (
	"testing"

	"github.com/krotik/streamgraph/data"
)

func TestWatchPropertyAndDispatch(t *testing.T) {
	li := New()
	sub := data.Subscriber{Kind: data.SubscriberMultipleValuesSq, SqID: "sq1", Part: "p1"}

	li.WatchProperty("name", sub)

	var hit data.Subscriber
	count := 0
	li.PropertySubscribers("name", func(s data.Subscriber) bool {
		hit = s
		count++
		return false
	})

	if count != 1 || hit != sub {
		t.Fatalf("expected exactly one hit for sub, got count=%v hit=%v", count, hit)
	}

	count = 0
	li.PropertySubscribers("other", func(s data.Subscriber) bool {
		count++
		return false
	})
	if count != 0 {
		t.Errorf("expected no hits for unrelated key, got %v", count)
	}
}

func TestEdgeSubscribersIncludesAnyEdgeWatchers(t *testing.T) {
	li := New()
	labelSub := data.Subscriber{Kind: data.SubscriberMultipleValuesSq, SqID: "sq1"}
	anySub := data.Subscriber{Kind: data.SubscriberMultipleValuesSq, SqID: "sq2"}

	li.WatchEdge("knows", labelSub)
	li.WatchAnyEdge(anySub)

	hits := map[data.Subscriber]bool{}
	li.EdgeSubscribers("knows", func(s data.Subscriber) bool {
		hits[s] = true
		return false
	})

	if !hits[labelSub] || !hits[anySub] {
		t.Fatalf("expected both label-specific and any-edge subscribers to be hit, got %v", hits)
	}
}

func TestSelfHealingRemovesStaleSubscriberOnCallbackTrue(t *testing.T) {
	li := New()
	sub := data.Subscriber{Kind: data.SubscriberDomainNodeIndex, Dgn: "dgn1"}
	li.WatchProperty("x", sub)

	li.PropertySubscribers("x", func(s data.Subscriber) bool { return true })

	count := 0
	li.PropertySubscribers("x", func(s data.Subscriber) bool {
		count++
		return false
	})
	if count != 0 {
		t.Errorf("expected subscriber removed from index after callback returned true, still got %v hits", count)
	}
}

type fakeRegistry struct {
	registered map[data.DomainGraphNodeID]bool
}

func (f fakeRegistry) IsRegistered(dgn data.DomainGraphNodeID) bool {
	return f.registered[dgn]
}

func TestReconstructDetectsStaleDgns(t *testing.T) {
	registry := fakeRegistry{registered: map[data.DomainGraphNodeID]bool{"live": true}}

	_, stale := Reconstruct([]data.DomainGraphNodeID{"live", "gone"}, registry)

	if len(stale) != 1 || stale[0] != "gone" {
		t.Fatalf("expected stale=[gone], got %v", stale)
	}
}
