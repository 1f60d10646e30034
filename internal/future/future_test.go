package future

import (
	"testing"

	"github.com/raccoon-lang/raccoon/internal/value"
)

func TestNewFutureStartsPending(t *testing.T) {
	f := NewFuture()
	if f.State() != Pending {
		t.Fatalf("State() = %v, want Pending", f.State())
	}
	if f.ID == "" {
		t.Fatalf("expected a non-empty generated ID")
	}
}

func TestResolveSettlesAndIsIdempotent(t *testing.T) {
	f := NewFuture()
	f.Resolve(value.Int(1))
	f.Resolve(value.Int(2))
	if f.State() != Resolved {
		t.Fatalf("State() = %v, want Resolved", f.State())
	}
	res, _ := f.Result()
	if res != value.Int(1) {
		t.Fatalf("Result() = %v, want the first Resolve's value 1 (later Resolve is a no-op)", res)
	}
}

func TestRejectSettles(t *testing.T) {
	f := NewFuture()
	f.Reject(value.String("boom"))
	if f.State() != Rejected {
		t.Fatalf("State() = %v, want Rejected", f.State())
	}
	_, errVal := f.Result()
	if errVal != value.String("boom") {
		t.Fatalf("Result() err = %v, want 'boom'", errVal)
	}
}

func TestOnSettleRunsImmediatelyIfAlreadySettled(t *testing.T) {
	f := NewFuture()
	f.Resolve(value.Int(1))
	called := false
	f.OnSettle(func() { called = true })
	if !called {
		t.Fatalf("OnSettle should invoke its callback immediately on an already-settled future")
	}
}

func TestOnSettleQueuesUntilSettlement(t *testing.T) {
	f := NewFuture()
	called := false
	f.OnSettle(func() { called = true })
	if called {
		t.Fatalf("OnSettle should not invoke its callback before the future settles")
	}
	f.Resolve(value.Int(1))
	if !called {
		t.Fatalf("OnSettle's callback should run once the future settles")
	}
}

func TestSchedulerDrainRunsQueuedAndNestedTasks(t *testing.T) {
	s := NewScheduler()
	var order []int
	s.Enqueue(func() {
		order = append(order, 1)
		s.Enqueue(func() { order = append(order, 3) })
	})
	s.Enqueue(func() { order = append(order, 2) })
	s.Drain()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("Drain() order = %v, want [1 2 3]", order)
	}
}

func TestAllResolvesInOrderOnAllSuccess(t *testing.T) {
	a, b := NewFuture(), NewFuture()
	out := All([]*Future{a, b})
	b.Resolve(value.Int(2))
	a.Resolve(value.Int(1))
	if out.State() != Resolved {
		t.Fatalf("All() state = %v, want Resolved", out.State())
	}
	res, _ := out.Result()
	list := res.(*value.List)
	if len(*list.Elems) != 2 || (*list.Elems)[0] != value.Int(1) || (*list.Elems)[1] != value.Int(2) {
		t.Fatalf("All() result = %v, want [1, 2] in input order", list)
	}
}

func TestAllRejectsOnFirstRejection(t *testing.T) {
	a, b := NewFuture(), NewFuture()
	out := All([]*Future{a, b})
	a.Reject(value.String("fail"))
	b.Resolve(value.Int(2))
	if out.State() != Rejected {
		t.Fatalf("All() state = %v, want Rejected", out.State())
	}
	_, errVal := out.Result()
	if errVal != value.String("fail") {
		t.Fatalf("All() rejection reason = %v, want 'fail'", errVal)
	}
}

func TestAllOnEmptyInputResolvesWithEmptyList(t *testing.T) {
	out := All(nil)
	if out.State() != Resolved {
		t.Fatalf("All(nil) state = %v, want Resolved", out.State())
	}
	res, _ := out.Result()
	if len(*res.(*value.List).Elems) != 0 {
		t.Fatalf("All(nil) result should be an empty list")
	}
}

func TestRaceSettlesWithFirstSettled(t *testing.T) {
	a, b := NewFuture(), NewFuture()
	out := Race([]*Future{a, b})
	b.Resolve(value.Int(2))
	a.Resolve(value.Int(1))
	if out.State() != Resolved {
		t.Fatalf("Race() state = %v, want Resolved", out.State())
	}
	res, _ := out.Result()
	if res != value.Int(2) {
		t.Fatalf("Race() result = %v, want 2 (the first to settle)", res)
	}
}

func TestAnyResolvesWithFirstFulfillment(t *testing.T) {
	a, b := NewFuture(), NewFuture()
	out := Any([]*Future{a, b})
	a.Reject(value.String("fail"))
	b.Resolve(value.Int(7))
	if out.State() != Resolved {
		t.Fatalf("Any() state = %v, want Resolved", out.State())
	}
	res, _ := out.Result()
	if res != value.Int(7) {
		t.Fatalf("Any() result = %v, want 7", res)
	}
}

func TestAnyRejectsWhenAllInputsReject(t *testing.T) {
	a, b := NewFuture(), NewFuture()
	out := Any([]*Future{a, b})
	a.Reject(value.String("one"))
	b.Reject(value.String("two"))
	if out.State() != Rejected {
		t.Fatalf("Any() state = %v, want Rejected once every input has rejected", out.State())
	}
}

func TestAllSettledReportsEachOutcome(t *testing.T) {
	a, b := NewFuture(), NewFuture()
	out := AllSettled([]*Future{a, b})
	a.Resolve(value.Int(1))
	b.Reject(value.String("bad"))
	if out.State() != Resolved {
		t.Fatalf("AllSettled() state = %v, want Resolved regardless of individual outcomes", out.State())
	}
	res, _ := out.Result()
	list := res.(*value.List)
	if len(*list.Elems) != 2 {
		t.Fatalf("AllSettled() result length = %d, want 2", len(*list.Elems))
	}
	first := (*list.Elems)[0].(*value.Map)
	status, _ := first.Get(value.String("status"))
	if status != value.String("fulfilled") {
		t.Fatalf("first entry status = %v, want 'fulfilled'", status)
	}
}
