package actor

import (
	"context"
	"fmt"

	"github.com/krotik/common/errorutil"

	"github.com/krotik/streamgraph/util"
)

/*
Supervise runs fn and recovers a panic raised by an InternalInvariantViolation
(or any other panic reaching the actor boundary), converting it into an
error. The actor's dispatch uses this around every property, edge and
domain-index handler call so that an invariant violation - such as a
historical update reaching the mutation path - stops just that actor's
loop rather than taking the whole process down; the shard registry then
wakes a fresh actor from the last durable snapshot+journal on the next
contact, matching the recovery policy for InternalInvariantViolation.
*/
func Supervise(ctx context.Context, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &util.NodeError{Type: util.ErrInternalInvariantViolation, Detail: fmt.Sprint(r)}
		}
	}()

	return fn()
}

/*
AssertInvariant panics via errorutil.AssertTrue when condition is false,
the same assert-then-recover idiom the teacher uses around its own
transaction commit path. Supervise is expected to wrap every call site
that can reach an AssertInvariant.
*/
func AssertInvariant(condition bool, detail string) {
	errorutil.AssertTrue(condition, detail)
}
