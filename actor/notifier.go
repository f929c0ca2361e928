package actor

import (
	"context"

	"github.com/krotik/streamgraph/data"
)

/*
PeerRouter is the minimal outbound-routing surface the domain engine needs
to subscribe through peers and notify upstream subscribers. The shard
registry supplies the concrete implementation; it is the node actor's only
dependency that reaches outside a single node's own state.
*/
type PeerRouter interface {
	NotifyDomainSubscriber(ctx context.Context, sub data.Subscriber, dgn data.DomainGraphNodeID, result bool, shouldSendReplies bool)
	SubscribeToPeer(ctx context.Context, peer data.QuineId, dgn data.DomainGraphNodeID, relatedQueries []data.StandingQueryID, shouldSendReplies bool)
	CancelPeerSubscription(ctx context.Context, peer data.QuineId, dgn data.DomainGraphNodeID)
}

/*
nodeNotifier adapts a NodeActor's PeerRouter into the domain.Notifier
interface the domain engine was built against, carrying a background
context since the domain engine's interface predates per-call contexts.
*/
type nodeNotifier struct {
	actor *NodeActor
}

func (n *nodeNotifier) NotifySubscriber(sub data.Subscriber, dgn data.DomainGraphNodeID, result bool, shouldSendReplies bool) {
	if n.actor.router == nil {
		return
	}
	n.actor.router.NotifyDomainSubscriber(context.Background(), sub, dgn, result, shouldSendReplies)
}

func (n *nodeNotifier) SubscribeToPeer(peer data.QuineId, dgn data.DomainGraphNodeID, relatedQueries []data.StandingQueryID, shouldSendReplies bool) {
	if n.actor.router == nil {
		return
	}
	n.actor.router.SubscribeToPeer(context.Background(), peer, dgn, relatedQueries, shouldSendReplies)
}

func (n *nodeNotifier) CancelPeerSubscription(peer data.QuineId, dgn data.DomainGraphNodeID) {
	if n.actor.router == nil {
		return
	}
	n.actor.router.CancelPeerSubscription(context.Background(), peer, dgn)
}

/*
SetRouter installs the PeerRouter used to reach other nodes. A node
constructed without a router (e.g. in unit tests exercising only local
post-actions) silently drops outbound calls.
*/
func (a *NodeActor) SetRouter(router PeerRouter) {
	a.router = router
}
