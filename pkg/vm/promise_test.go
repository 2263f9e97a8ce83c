package vm

import "testing"

func TestPromiseResolveThenRunsAsMicrotask(t *testing.T) {
	realm := NewRealm()
	vm := NewVM(realm)

	p := NewPromise(realm.PromisePrototype)
	resolvePromise(vm, p, Number(42))

	var got Value
	onFulfilled := NewNativeFunction(realm.FunctionPrototype, "", 1, func(vm *VM, this Value, args []Value) (Value, error) {
		got = args[0]
		return Undefined, nil
	})
	promiseThen(vm, p, onFulfilled, Undefined)

	if got.typ != TypeUndefined {
		t.Fatalf("expected .then handler not to run synchronously, ran with %v", got)
	}
	if !realm.Tasks.runtime.RunUntilIdle() {
		t.Fatalf("expected a pending microtask to run")
	}
	if got.AsFloat() != 42 {
		t.Fatalf("expected handler to observe 42, got %v", got.AsFloat())
	}
}

func TestPromiseRejectRunsCatch(t *testing.T) {
	realm := NewRealm()
	vm := NewVM(realm)

	p := NewPromise(realm.PromisePrototype)
	reason := NewString("boom")
	rejectPromise(vm, p, reason)

	var caught Value
	onRejected := NewNativeFunction(realm.FunctionPrototype, "", 1, func(vm *VM, this Value, args []Value) (Value, error) {
		caught = args[0]
		return Undefined, nil
	})
	promiseThen(vm, p, Undefined, onRejected)
	for realm.Tasks.runtime.RunUntilIdle() {
	}

	s, err := caught.ToString(vm)
	if err != nil || s != "boom" {
		t.Fatalf("expected catch handler to observe %q, got %q (err=%v)", "boom", s, err)
	}
}

func TestPromiseResolveWithThenableChains(t *testing.T) {
	realm := NewRealm()
	vm := NewVM(realm)

	inner := NewPromise(realm.PromisePrototype)
	outer := NewPromise(realm.PromisePrototype)
	resolvePromise(vm, outer, inner.value())
	resolvePromise(vm, inner, Number(7))

	for realm.Tasks.runtime.RunUntilIdle() {
	}

	if outer.State != PromiseFulfilled {
		t.Fatalf("expected outer promise to adopt inner's fulfilled state, got state=%v", outer.State)
	}
	if outer.Result.AsFloat() != 7 {
		t.Fatalf("expected outer promise result 7, got %v", outer.Result.AsFloat())
	}
}

func TestPromiseDoubleResolveIsNoop(t *testing.T) {
	realm := NewRealm()
	vm := NewVM(realm)

	p := NewPromise(realm.PromisePrototype)
	resolvePromise(vm, p, Number(1))
	resolvePromise(vm, p, Number(2))

	if p.Result.AsFloat() != 1 {
		t.Fatalf("expected first resolve to win, got %v", p.Result.AsFloat())
	}
}
