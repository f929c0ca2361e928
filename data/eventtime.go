package data

import "fmt"

/*
EventTime is a monotonic per-node logical clock. The high 44 bits carry a
wall-clock millisecond value, the low 20 bits a sequence number within that
millisecond (room for over a million events per millisecond before a
sequence wraps, which forces the clock to borrow from the next millisecond).
*/
type EventTime int64

const sequenceBits = 20
const sequenceMask = (int64(1) << sequenceBits) - 1

/*
MaxEventTime is the sentinel used by snapshot_singleton persistence: the
latest snapshot for a node is always stored under this key.
*/
const MaxEventTime = EventTime(1<<63 - 1)

/*
NewEventTime packs a wall-clock millisecond value and an intra-millisecond
sequence number into a single EventTime.
*/
func NewEventTime(wallMillis int64, sequence int64) EventTime {
	return EventTime(wallMillis<<sequenceBits | (sequence & sequenceMask))
}

/*
WallMillis returns the wall-clock millisecond component.
*/
func (t EventTime) WallMillis() int64 {
	return int64(t) >> sequenceBits
}

/*
Sequence returns the intra-millisecond sequence component.
*/
func (t EventTime) Sequence() int64 {
	return int64(t) & sequenceMask
}

/*
Before reports whether t strictly precedes other.
*/
func (t EventTime) Before(other EventTime) bool {
	return t < other
}

/*
String renders the EventTime as "millis.sequence" for logs.
*/
func (t EventTime) String() string {
	return fmt.Sprintf("%v.%v", t.WallMillis(), t.Sequence())
}

/*
ActorClock issues strictly increasing EventTimes for a single node. It is
owned exclusively by that node's actor goroutine; it is not safe for
concurrent use by design, matching the single-writer model described for
the node actor core.
*/
type ActorClock struct {
	last EventTime
	now  func() int64
}

/*
NewActorClock creates a clock using the supplied wall-clock millisecond
source. Tests pass a deterministic source; production wiring passes
time.Now().UnixMilli.
*/
func NewActorClock(nowMillis func() int64) *ActorClock {
	return &ActorClock{now: nowMillis}
}

/*
Tick returns the next EventTime, strictly greater than every EventTime
previously returned by this clock (by Tick or by Bump).
*/
func (c *ActorClock) Tick() EventTime {
	wall := c.now()
	if wall <= c.last.WallMillis() {
		// wall clock regressed or stayed flat relative to the last issued
		// time; stay on the same millisecond and bump the sequence so
		// monotonicity holds regardless of wall-clock skew.
		c.last = c.last + 1
		return c.last
	}

	c.last = NewEventTime(wall, 0)
	return c.last
}

/*
Peek returns the last EventTime issued by Tick or Bump without advancing
the clock. It returns the zero value if nothing has been issued yet.
*/
func (c *ActorClock) Peek() EventTime {
	return c.last
}

/*
Bump advances the clock so that the next Tick is guaranteed to exceed at.
Used when an event carries an explicit at_time_override, e.g. during
journal replay on wake.
*/
func (c *ActorClock) Bump(at EventTime) {
	if at > c.last {
		c.last = at
	}
}
