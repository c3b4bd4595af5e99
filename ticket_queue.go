package atomsem

import (
	"sync/atomic"

	"github.com/llxisdsh/pb"
)

// ticketQueue orders the slow-path entrants of a BinarySemaphore into a
// single file without a queue data structure.
//
// Implementation:
// It is the classic "ticket" algorithm with the lock holder removed.
//   - take(): hands out the next ticket.
//   - turn(): the ticket currently allowed to attempt the claiming CAS.
//   - pass(): moves the turn to the next live ticket.
//
// Only the holder of the turn advances `tocket`, so two waiters never race
// to observe and miss the same release. A waiter that gives up (a timed
// acquire past its deadline) cannot simply leave: the turn would eventually
// stop at its ticket forever. It records the ticket as abandoned instead,
// and whoever moves the turn onto an abandoned ticket skips it. Exactly one
// party removes each record, so the turn is never handed out twice.
//
// The registry is a pb.MapOf, which uses plain loads on TSO CPUs. Under
// -race, a timed-out acquire racing a pass is reported as a data race by
// the detector even though the protocol holds.
type ticketQueue struct {
	ticket atomic.Uint32
	tocket atomic.Uint32

	// abandoned is allocated on the first abandonment.
	abandoned atomic.Pointer[pb.MapOf[uint32, struct{}]]
}

func (q *ticketQueue) take() uint32 {
	return q.ticket.Add(1) - 1
}

func (q *ticketQueue) turn() uint32 {
	return q.tocket.Load()
}

// pending estimates the number of queued waiters.
func (q *ticketQueue) pending() uint32 {
	return q.ticket.Load() - q.tocket.Load()
}

// pass hands the turn held by tick to the next ticket that is still waited
// on. The caller must hold the turn.
func (q *ticketQueue) pass(tick uint32) {
	for {
		tick++
		q.tocket.Store(tick)
		m := q.abandoned.Load()
		if m == nil {
			return
		}
		if _, ok := m.LoadAndDelete(tick); !ok {
			return
		}
	}
}

// abandon withdraws tick from the queue. It never blocks.
func (q *ticketQueue) abandon(tick uint32) {
	if q.tocket.Load() == tick {
		q.pass(tick)
		return
	}
	m := q.registry()
	m.Store(tick, struct{}{})
	// The turn may have reached tick before the record was visible to the
	// passer; then whichever side deletes the record passes the turn on.
	if q.tocket.Load() == tick {
		if _, ok := m.LoadAndDelete(tick); ok {
			q.pass(tick)
		}
	}
}

func (q *ticketQueue) registry() *pb.MapOf[uint32, struct{}] {
	if m := q.abandoned.Load(); m != nil {
		return m
	}
	m := new(pb.MapOf[uint32, struct{}])
	if q.abandoned.CompareAndSwap(nil, m) {
		return m
	}
	return q.abandoned.Load()
}

// abandonedCount reports how many abandoned tickets are still waiting to be
// skipped.
func (q *ticketQueue) abandonedCount() int {
	if m := q.abandoned.Load(); m != nil {
		return m.Size()
	}
	return 0
}
