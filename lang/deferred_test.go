package lang

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"
)

func TestFuture_Settle(t *testing.T) {
	f, settle := NewFuture()

	select {
	case <-f.Done():
		t.Fatal("future settled early")
	default:
	}

	settle("v", nil)
	settle("ignored", nil)

	got, err := f.Await(t.Context())
	if err != nil || got != "v" {
		t.Errorf("Await = (%v, %v), want (v, nil)", got, err)
	}
}

func TestFuture_Adopt(t *testing.T) {
	inner := Go(func() (any, error) {
		time.Sleep(5 * time.Millisecond)

		return 1.0, nil
	})

	got, err := Resolve(inner).Await(t.Context())
	if err != nil || got != 1.0 {
		t.Errorf("Await = (%v, %v), want (1, nil)", got, err)
	}
}

func TestFuture_AwaitCanceled(t *testing.T) {
	f, _ := NewFuture()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := f.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Await error = %v, want %v", err, context.Canceled)
	}
}

func TestThen(t *testing.T) {
	inc := func(v any) (any, error) { return ToNumber(v) + 1, nil }

	got, err := Then(1.0, inc)
	if err != nil || got != 2.0 {
		t.Errorf("Then(concrete) = (%v, %v), want (2, nil)", got, err)
	}

	got, err = Then(Resolve(1.0), inc)
	if err != nil {
		t.Fatalf("Then(deferred): %v", err)
	}

	if !IsDeferred(got) {
		t.Fatalf("Then(deferred) = %T, want *Future", got)
	}

	if v, err := got.(*Future).Await(t.Context()); err != nil || v != 2.0 {
		t.Errorf("Await = (%v, %v), want (2, nil)", v, err)
	}

	called := false

	got, _ = Then(Reject(ErrBuiltin), func(any) (any, error) {
		called = true

		return nil, nil
	})

	if _, err := got.(*Future).Await(t.Context()); !errors.Is(err, ErrBuiltin) {
		t.Errorf("rejection error = %v, want %v", err, ErrBuiltin)
	}

	if called {
		t.Error("continuation ran after rejection")
	}
}

func TestAll_PreservesOrder(t *testing.T) {
	delayed := func(v string, d time.Duration) *Future {
		return Go(func() (any, error) {
			time.Sleep(d)

			return v, nil
		})
	}

	in := []any{"a", delayed("b", 20*time.Millisecond), "c", delayed("d", time.Millisecond)}

	got, err := ResolveDeep(t.Context(), All(in))
	if err != nil {
		t.Fatalf("ResolveDeep: %v", err)
	}

	out, _ := got.([]any)
	if len(out) != 4 || out[0] != "a" || out[1] != "b" || out[2] != "c" || out[3] != "d" {
		t.Errorf("All = %v, want [a b c d]", out)
	}
}

func TestAll_Concrete(t *testing.T) {
	in := []any{"a", 1.0}

	if got, ok := All(in).([]any); !ok || len(got) != 2 {
		t.Errorf("All(concrete) = %#v", All(in))
	}
}

func TestResolveDeep_Nested(t *testing.T) {
	obj := NewObject()
	obj.Set("x", Resolve([]any{Resolve("deep")}))

	got, err := ResolveDeep(t.Context(), []any{obj})
	if err != nil {
		t.Fatalf("ResolveDeep: %v", err)
	}

	o := got.([]any)[0].(*Object)
	x, _ := o.Get("x")

	if arr, ok := x.([]any); !ok || arr[0] != "deep" {
		t.Errorf("x = %#v, want [deep]", x)
	}
}

func TestThen_PendingHoldsNoGoroutines(t *testing.T) {
	const n = 200

	pending, settle := NewFuture()
	before := runtime.NumGoroutine()

	results := make([]any, 0, 2*n)

	for i := range n {
		r, _ := Then(pending, func(v any) (any, error) { return ToNumber(v) + float64(i), nil })
		results = append(results, r)

		r, _ = ThenAll([]any{1.0, pending}, func(vs []any) (any, error) {
			return ToNumber(vs[0]) + ToNumber(vs[1]), nil
		})
		results = append(results, r)
	}

	if grown := runtime.NumGoroutine() - before; grown >= n/4 {
		t.Errorf("%d goroutines started for continuations of a pending future", grown)
	}

	settle(1.0, nil)

	for i, r := range results {
		v, err := r.(*Future).Await(t.Context())
		if err != nil {
			t.Fatalf("result %d: %v", i, err)
		}

		want := 2.0
		if i%2 == 0 {
			want = 1.0 + float64(i/2)
		}

		if v != want {
			t.Errorf("result %d = %v, want %v", i, v, want)
		}
	}
}

func TestThenAll_FirstRejectionByPosition(t *testing.T) {
	errLate := errors.New("late")

	late := Go(func() (any, error) {
		time.Sleep(10 * time.Millisecond)

		return nil, errLate
	})

	got, _ := ThenAll([]any{late, Reject(ErrBuiltin)}, func([]any) (any, error) {
		return "ran", nil
	})

	if _, err := got.(*Future).Await(t.Context()); !errors.Is(err, errLate) {
		t.Errorf("ThenAll error = %v, want %v", err, errLate)
	}
}

func TestThen_PanicRejects(t *testing.T) {
	got, _ := Then(Resolve(1.0), func(any) (any, error) { panic("boom") })

	if _, err := got.(*Future).Await(t.Context()); !errors.Is(err, ErrHostPanic) {
		t.Errorf("Then panic error = %v, want %v", err, ErrHostPanic)
	}
}
