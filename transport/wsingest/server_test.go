package wsingest

import (
	"context"
	"testing"

	"github.com/krotik/streamgraph/actor"
	"github.com/krotik/streamgraph/data"
	"github.com/krotik/streamgraph/domain"
	"github.com/krotik/streamgraph/persist"
)

func TestHandleSubmitsDecodedEventsToRegistry(t *testing.T) {
	p := persist.NewInMemory()
	wall := int64(1000)
	r := actor.NewRegistry("test", actor.DefaultConfig(), p, domain.NewStaticRegistry(), nil, func() int64 { wall++; return wall })

	s := NewServer(r)

	qid := data.QuineId{1, 2, 3}
	msg := SubmitMessage{
		QuineID: qid.String(),
		Properties: []PropertyPayload{
			{Kind: "set", Key: "name", Value: "alice"},
		},
		Edges: []EdgePayload{
			{Kind: "added", Direction: "outgoing", Label: "knows", Peer: data.QuineId{9}.String()},
		},
	}

	if err := s.handle(context.Background(), msg); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	entries, err := p.GetJournalWithTime(context.Background(), qid, 0, data.MaxEventTime, false)
	if err != nil {
		t.Fatalf("GetJournalWithTime: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 journaled events (1 property + 1 edge), got %v", len(entries))
	}
}

func TestHandleRejectsMalformedQuineID(t *testing.T) {
	p := persist.NewInMemory()
	r := actor.NewRegistry("test", actor.DefaultConfig(), p, domain.NewStaticRegistry(), nil, func() int64 { return 1000 })
	s := NewServer(r)

	err := s.handle(context.Background(), SubmitMessage{QuineID: "not-valid-hex"})
	if err == nil {
		t.Fatalf("expected an error for a malformed quine id")
	}
}

func TestParseDirectionDefaultsToOutgoing(t *testing.T) {
	if parseDirection("incoming") != data.Incoming {
		t.Errorf("expected incoming to map to data.Incoming")
	}
	if parseDirection("undirected") != data.Undirected {
		t.Errorf("expected undirected to map to data.Undirected")
	}
	if parseDirection("bogus") != data.Outgoing {
		t.Errorf("expected an unrecognized direction to default to Outgoing")
	}
}
