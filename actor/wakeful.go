package actor

import "sync/atomic"

/*
WakefulState is the atomic lifecycle cell every node actor carries.
*/
type WakefulState int32

const (
	Asleep WakefulState = iota
	Waking
	Awake
	GoingToSleep
)

/*
String renders the state for logs and debug dumps.
*/
func (s WakefulState) String() string {
	switch s {
	case Asleep:
		return "Asleep"
	case Waking:
		return "Waking"
	case Awake:
		return "Awake"
	case GoingToSleep:
		return "GoingToSleep"
	default:
		return "Unknown"
	}
}

/*
wakefulCell is a thin atomic wrapper around WakefulState, read by routing
decisions without acquiring actorRefLock.
*/
type wakefulCell struct {
	v atomic.Int32
}

func (c *wakefulCell) Load() WakefulState {
	return WakefulState(c.v.Load())
}

func (c *wakefulCell) Store(s WakefulState) {
	c.v.Store(int32(s))
}
