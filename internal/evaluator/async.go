package evaluator

import (
	"github.com/raccoon-lang/raccoon/internal/future"
	"github.com/raccoon-lang/raccoon/internal/value"
)

type AwaitState int

const (
	AwaitResolved AwaitState = iota
	AwaitRejected
)

// Awaitable is implemented by FutureValue so evalAwait doesn't need to
// import internal/future directly into its switch.
type Awaitable interface {
	Settled() (value.Value, value.Value, AwaitState)
}

// FutureValue adapts a *future.Future to value.Value, since
// internal/future stays agnostic of the evaluator's own value wrappers.
type FutureValue struct {
	F *future.Future
}

func (FutureValue) Kind() value.Kind { return value.KindFuture }
func (f FutureValue) String() string { return f.F.String() }

func (f FutureValue) Settled() (value.Value, value.Value, AwaitState) {
	res, errVal := f.F.Result()
	if f.F.State() == future.Rejected {
		return nil, errVal, AwaitRejected
	}
	return res, nil, AwaitResolved
}

// runAsync executes thunk (a user async function body wrapped as a Go
// call) to completion within the single active fiber, since this
// evaluator never suspends mid-Go-call: `await` only ever appears at
// statement boundaries the tree-walker has already reached synchronously.
// The future resolves with the function's return value or rejects with
// whatever it throws.
func (ev *Evaluator) runAsync(thunk func() (value.Value, error)) value.Value {
	fut := future.NewFuture()
	result, err := thunk()
	if err != nil {
		if ts, ok := err.(throwSignal); ok {
			fut.Reject(ts.val)
			return FutureValue{F: fut}
		}
		fut.Reject(value.String(err.Error()))
		return FutureValue{F: fut}
	}
	fut.Resolve(result)
	return FutureValue{F: fut}
}
