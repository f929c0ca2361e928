/*
Package wsingest is a thin websocket front door exercising the core's
submit(NodeRef, Event|EventBatch) boundary. It is a demonstration
adapter, not an ingest pipeline: no throttling, deserialization-format
negotiation, or at-least-once bookkeeping lives here - those remain the
job of a real ingest pipeline, external to this repository.
*/
package wsingest

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/krotik/common/logutil"

	"github.com/krotik/streamgraph/actor"
	"github.com/krotik/streamgraph/data"
)

/*
PropertyPayload is the wire shape of one property mutation in an inbound
message.
*/
type PropertyPayload struct {
	Kind  string `json:"kind"` // "set" or "removed"
	Key   string `json:"key"`
	Value interface{} `json:"value,omitempty"`
}

/*
EdgePayload is the wire shape of one edge mutation in an inbound message.
*/
type EdgePayload struct {
	Kind      string `json:"kind"` // "added" or "removed"
	Direction string `json:"direction"`
	Label     string `json:"label"`
	Peer      string `json:"peer"`
}

/*
SubmitMessage is one inbound websocket frame: an event batch addressed to
a single node.
*/
type SubmitMessage struct {
	QuineID    string            `json:"quine_id"`
	Properties []PropertyPayload `json:"properties,omitempty"`
	Edges      []EdgePayload     `json:"edges,omitempty"`
}

/*
Server accepts websocket connections and forwards decoded SubmitMessages
to a Registry.
*/
type Server struct {
	registry *actor.Registry
	upgrader websocket.Upgrader
	logger   logutil.Logger
}

/*
NewServer creates a Server that forwards decoded frames to registry.
*/
func NewServer(registry *actor.Registry) *Server {
	return &Server{
		registry: registry,
		upgrader: websocket.Upgrader{},
		logger:   logutil.GetLogger("wsingest"),
	}
}

/*
ServeHTTP upgrades the connection and reads SubmitMessage frames until the
client disconnects.
*/
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed: ", err)
		return
	}
	defer conn.Close()

	for {
		var msg SubmitMessage

		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warning("websocket read failed: ", err)
			}
			return
		}

		if err := s.handle(r.Context(), msg); err != nil {
			_ = conn.WriteJSON(map[string]string{"error": err.Error()})
			continue
		}

		_ = conn.WriteJSON(map[string]string{"status": "Done"})
	}
}

func (s *Server) handle(ctx context.Context, msg SubmitMessage) error {
	qid, err := data.ParseQuineId(msg.QuineID)
	if err != nil {
		return err
	}

	propEvents := make([]data.PropertyEvent, 0, len(msg.Properties))
	for _, p := range msg.Properties {
		val, err := data.NewPropertyValue(p.Value)
		if err != nil {
			return err
		}

		kind := data.PropertySet
		if p.Kind == "removed" {
			kind = data.PropertyRemoved
		}

		propEvents = append(propEvents, data.PropertyEvent{Kind: kind, Key: p.Key, Value: val})
	}

	edgeEvents := make([]data.EdgeEvent, 0, len(msg.Edges))
	for _, e := range msg.Edges {
		peer, err := data.ParseQuineId(e.Peer)
		if err != nil {
			return err
		}

		kind := data.EdgeAdded
		if e.Kind == "removed" {
			kind = data.EdgeRemoved
		}

		edgeEvents = append(edgeEvents, data.EdgeEvent{Kind: kind, Edge: data.HalfEdge{
			Direction: parseDirection(e.Direction),
			Label:     e.Label,
			Peer:      peer,
		}})
	}

	return s.registry.Submit(ctx, qid, propEvents, edgeEvents)
}

func parseDirection(s string) data.EdgeDirection {
	switch s {
	case "incoming":
		return data.Incoming
	case "undirected":
		return data.Undirected
	default:
		return data.Outgoing
	}
}
