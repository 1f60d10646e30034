// Package future implements Raccoon's cooperative async/await model: a
// single fiber runs at a time, suspending only at an explicit `await`.
// There are no real goroutines here — resolving a Future runs its
// registered continuations synchronously, in registration order, inside
// the Resolve/Reject call; only work handed to Scheduler.Enqueue waits for
// the next drain of the microtask queue.
package future

import (
	"github.com/google/uuid"

	"github.com/raccoon-lang/raccoon/internal/value"
)

type State int

const (
	Pending State = iota
	Resolved
	Rejected
)

// Future is a first-class Raccoon value representing the eventual result
// of an async computation.
type Future struct {
	ID        string
	state     State
	result    value.Value
	err       value.Value
	callbacks []func()
}

func NewFuture() *Future {
	return &Future{ID: uuid.NewString(), state: Pending}
}

func (*Future) Kind() value.Kind { return value.KindFuture }

func (f *Future) String() string {
	switch f.state {
	case Resolved:
		return "Future(resolved: " + f.result.String() + ")"
	case Rejected:
		return "Future(rejected: " + f.err.String() + ")"
	default:
		return "Future(pending)"
	}
}

func (f *Future) State() State { return f.state }

// Resolve settles f with a value and runs its continuations. Calling
// Resolve/Reject more than once on the same Future is a no-op, matching
// the usual promise-settlement idiom.
func (f *Future) Resolve(v value.Value) {
	if f.state != Pending {
		return
	}
	f.state = Resolved
	f.result = v
	f.runCallbacks()
}

func (f *Future) Reject(errVal value.Value) {
	if f.state != Pending {
		return
	}
	f.state = Rejected
	f.err = errVal
	f.runCallbacks()
}

func (f *Future) runCallbacks() {
	cbs := f.callbacks
	f.callbacks = nil
	for _, cb := range cbs {
		cb()
	}
}

// OnSettle registers a continuation to run once f settles. If f is
// already settled, the continuation runs immediately on the caller's
// stack; otherwise it runs inside the Resolve/Reject call that settles f.
func (f *Future) OnSettle(cb func()) {
	if f.state != Pending {
		cb()
		return
	}
	f.callbacks = append(f.callbacks, cb)
}

func (f *Future) Result() (value.Value, value.Value) { return f.result, f.err }

// Scheduler drains queued microtasks one at a time, in FIFO order, and
// never runs two of them concurrently. The evaluator's `await` does not
// go through it: async bodies run to completion synchronously, and
// evaluator.Run drains the queue once after the program's statements.
type Scheduler struct {
	microtasks []func()
}

func NewScheduler() *Scheduler { return &Scheduler{} }

// Enqueue schedules fn to run on a future Drain, never synchronously.
func (s *Scheduler) Enqueue(fn func()) {
	s.microtasks = append(s.microtasks, fn)
}

// Drain runs every queued microtask, including ones newly enqueued by
// tasks that ran earlier in the same Drain (so a chain of .then-style
// continuations fully unwinds before Drain returns).
func (s *Scheduler) Drain() {
	for len(s.microtasks) > 0 {
		task := s.microtasks[0]
		s.microtasks = s.microtasks[1:]
		task()
	}
}

// All resolves once every input Future resolves, with a List of their
// results in order, or rejects with the first rejection observed.
func All(inputs []*Future) *Future {
	out := NewFuture()
	if len(inputs) == 0 {
		out.Resolve(value.NewList(nil))
		return out
	}
	results := make([]value.Value, len(inputs))
	remaining := len(inputs)
	settled := false
	for i, in := range inputs {
		i := i
		in.OnSettle(func() {
			if settled {
				return
			}
			res, err := in.Result()
			if in.State() == Rejected {
				settled = true
				out.Reject(err)
				return
			}
			results[i] = res
			remaining--
			if remaining == 0 {
				out.Resolve(value.NewList(results))
			}
		})
	}
	return out
}

// Race resolves/rejects with whichever input settles first.
func Race(inputs []*Future) *Future {
	out := NewFuture()
	settled := false
	for _, in := range inputs {
		in.OnSettle(func() {
			if settled {
				return
			}
			settled = true
			res, err := in.Result()
			if in.State() == Rejected {
				out.Reject(err)
			} else {
				out.Resolve(res)
			}
		})
	}
	return out
}

// Any resolves with the first fulfilled input, or rejects once every
// input has rejected.
func Any(inputs []*Future) *Future {
	out := NewFuture()
	if len(inputs) == 0 {
		out.Reject(value.String("all futures were rejected"))
		return out
	}
	remaining := len(inputs)
	settled := false
	for _, in := range inputs {
		in.OnSettle(func() {
			if settled {
				return
			}
			if in.State() == Resolved {
				settled = true
				res, _ := in.Result()
				out.Resolve(res)
				return
			}
			remaining--
			if remaining == 0 {
				out.Reject(value.String("all futures were rejected"))
			}
		})
	}
	return out
}

// SettleResult mirrors the {status, value|reason} record AllSettled
// produces for each input.
type SettleResult struct {
	Fulfilled bool
	Value     value.Value
	Reason    value.Value
}

func AllSettled(inputs []*Future) *Future {
	out := NewFuture()
	if len(inputs) == 0 {
		out.Resolve(value.NewList(nil))
		return out
	}
	results := make([]value.Value, len(inputs))
	remaining := len(inputs)
	for i, in := range inputs {
		i := i
		in.OnSettle(func() {
			m := value.NewMap()
			res, err := in.Result()
			if in.State() == Resolved {
				m.Set(value.String("status"), value.String("fulfilled"))
				m.Set(value.String("value"), res)
			} else {
				m.Set(value.String("status"), value.String("rejected"))
				m.Set(value.String("reason"), err)
			}
			results[i] = m
			remaining--
			if remaining == 0 {
				out.Resolve(value.NewList(results))
			}
		})
	}
	return out
}
