package domain

import (
	"testing"

	"github.com/krotik/streamgraph/data"
)

type fakeNotifier struct {
	notified []data.Subscriber
	results  []bool
	subscribedTo []data.QuineId
	cancelled    []data.QuineId
}

func (f *fakeNotifier) NotifySubscriber(sub data.Subscriber, dgn data.DomainGraphNodeID, result bool, shouldSendReplies bool) {
	f.notified = append(f.notified, sub)
	f.results = append(f.results, result)
}

func (f *fakeNotifier) SubscribeToPeer(peer data.QuineId, dgn data.DomainGraphNodeID, relatedQueries []data.StandingQueryID, shouldSendReplies bool) {
	f.subscribedTo = append(f.subscribedTo, peer)
}

func (f *fakeNotifier) CancelPeerSubscription(peer data.QuineId, dgn data.DomainGraphNodeID) {
	f.cancelled = append(f.cancelled, peer)
}

func boolEval(v bool) func(map[string]data.PropertyValue, []data.HalfEdge, map[data.QuineId]*bool) bool {
	return func(map[string]data.PropertyValue, []data.HalfEdge, map[data.QuineId]*bool) bool { return v }
}

func TestReceiveDomainNodeSubscriptionNotifiesImmediately(t *testing.T) {
	notifier := &fakeNotifier{}
	e := New(notifier)

	peer := data.QuineId{9}
	spec := DgnSpec{ID: "dgn1", RequiredEdges: []data.HalfEdge{{Peer: peer, Label: "knows"}}, Evaluate: boolEval(true)}
	sub := data.Subscriber{Kind: data.SubscriberMultipleValuesSq, SqID: "sq1"}

	e.ReceiveDomainNodeSubscription(spec, sub, "sq1", true, nil, nil)

	if len(notifier.notified) != 1 || notifier.notified[0] != sub {
		t.Fatalf("expected one notification to %v, got %v", sub, notifier.notified)
	}
	if !notifier.results[0] {
		t.Errorf("expected notified result true, got false")
	}
	if len(notifier.subscribedTo) != 1 || notifier.subscribedTo[0] != peer {
		t.Errorf("expected outgoing subscription to required peer %v, got %v", peer, notifier.subscribedTo)
	}
}

func TestUpdateAnswerOnlyNotifiesOnChange(t *testing.T) {
	notifier := &fakeNotifier{}
	e := New(notifier)

	spec := DgnSpec{ID: "dgn1", Evaluate: boolEval(true)}
	sub := data.Subscriber{Kind: data.SubscriberMultipleValuesSq, SqID: "sq1"}

	e.ReceiveDomainNodeSubscription(spec, sub, "sq1", true, nil, nil)
	if len(notifier.notified) != 1 {
		t.Fatalf("expected 1 notification after initial subscribe, got %v", len(notifier.notified))
	}

	e.UpdateAnswerAndNotifySubscribers(spec, nil, nil, true)
	if len(notifier.notified) != 1 {
		t.Fatalf("expected no additional notification when answer is unchanged, got %v total", len(notifier.notified))
	}

	spec.Evaluate = boolEval(false)
	e.UpdateAnswerAndNotifySubscribers(spec, nil, nil, true)
	if len(notifier.notified) != 2 {
		t.Fatalf("expected a notification when the answer changes, got %v total", len(notifier.notified))
	}
}

func TestCancelSubscriptionCancelsPeersWhenEmpty(t *testing.T) {
	notifier := &fakeNotifier{}
	e := New(notifier)

	peer := data.QuineId{7}
	spec := DgnSpec{ID: "dgn1", RequiredEdges: []data.HalfEdge{{Peer: peer}}, Evaluate: boolEval(true)}
	sub := data.Subscriber{Kind: data.SubscriberMultipleValuesSq, SqID: "sq1"}

	e.ReceiveDomainNodeSubscription(spec, sub, "sq1", false, nil, nil)
	e.CancelSubscription(spec, sub, false)

	if len(notifier.cancelled) != 1 || notifier.cancelled[0] != peer {
		t.Fatalf("expected peer subscription cancelled once empty, got %v", notifier.cancelled)
	}
}

func TestReceiveIndexUpdateReportsChange(t *testing.T) {
	e := New(&fakeNotifier{})
	peer := data.QuineId{1}

	changed := e.ReceiveIndexUpdate(peer, "dgn1", boolPtr(true))
	if !changed {
		t.Errorf("expected first index update to be reported as a change")
	}

	changed = e.ReceiveIndexUpdate(peer, "dgn1", boolPtr(true))
	if changed {
		t.Errorf("expected repeating the same value to not be reported as a change")
	}

	changed = e.ReceiveIndexUpdate(peer, "dgn1", boolPtr(false))
	if !changed {
		t.Errorf("expected a differing value to be reported as a change")
	}
}

func boolPtr(b bool) *bool { return &b }
