package actor

import (
	"sort"

	"github.com/krotik/streamgraph/data"
)

/*
DebugState is the diagnostic record returned by debug_internal_state: a
window into a single actor without requiring a query language.
*/
type DebugState struct {
	Ref                       data.NodeRef
	WakefulState              WakefulState
	PropertyCount             int
	EdgeCount                 int
	CostToSleep               int
	LatestUpdateAfterSnapshot *data.EventTime
	LastWriteMillis           int64
	PropertyKeys              []string
}

func (a *NodeActor) debugState() DebugState {
	keys := make([]string, 0, len(a.properties))
	for k := range a.properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return DebugState{
		Ref:                       a.ref,
		WakefulState:              a.wakeful.Load(),
		PropertyCount:             len(a.properties),
		EdgeCount:                 len(a.edges),
		CostToSleep:               a.costToSleep,
		LatestUpdateAfterSnapshot: a.latestUpdateAfterSnapshot,
		LastWriteMillis:           a.lastWriteMillis,
		PropertyKeys:              keys,
	}
}
