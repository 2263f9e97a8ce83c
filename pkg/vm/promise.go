package vm

import "unsafe"

// PromiseState is the internal state slot of §4.3's Promise exotic kind.
type PromiseState uint8

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

// PromiseReaction is one entry queued against a pending Promise by `.then`:
// a handler pair plus the Promise returned by that `.then` call, which the
// reaction job settles once the handler runs (or once it's skipped because
// no handler of the matching kind was supplied).
type PromiseReaction struct {
	onFulfilled Value // callable, or Undefined
	onRejected  Value // callable, or Undefined
	result      *PromiseObject
}

// PromiseObject is the Promise exotic kind (§4.3, §4.7 "Task Queue" drives
// its reactions as microtasks). State transitions are one-way and final:
// pending -> fulfilled or pending -> rejected, never back.
type PromiseObject struct {
	Object
	State           PromiseState
	Result          Value
	FulfillReactions []PromiseReaction
	RejectReactions  []PromiseReaction
	handled          bool // whether a rejection has ever been observed (unused beyond bookkeeping)
}

func NewPromise(proto Value) *PromiseObject {
	return &PromiseObject{Object: newObjectBase(proto, "Promise"), State: PromisePending}
}

func (v Value) AsPromise() *PromiseObject { return (*PromiseObject)(v.obj) }
func (p *PromiseObject) value() Value     { return Value{typ: TypePromise, obj: unsafe.Pointer(p)} }

func (p *PromiseObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, p.value(), key, p.value())
}
func (p *PromiseObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, p.value(), key, value, receiver)
}
func (p *PromiseObject) Has(vm *VM, key PropertyKey) bool { return hasProperty(p.value(), key) }
func (p *PromiseObject) DebugTag() string                 { return "[object Promise]" }

// NewPromiseValue wraps a fresh pending Promise as a Value, the shape
// returned by `new Promise(executor)` and by every async function call.
func NewPromiseValue(r *Realm) Value {
	return NewPromise(r.PromisePrototype).value()
}

// resolvePromise implements the [[Resolve]] internal capability: resolving
// with a thenable chains onto it instead of fulfilling immediately
// (§4.7's "a resolved Promise adopts the state of a thenable passed to
// resolve" rule), resolving with anything else fulfills synchronously.
func resolvePromise(vm *VM, p *PromiseObject, value Value) {
	if p.State != PromisePending {
		return
	}
	if value.StrictEquals(p.value()) {
		rejectPromise(vm, p, vm.realm.NewError("TypeError", "chaining cycle detected for promise"))
		return
	}
	if value.IsObjectLike() {
		then, ok := value.ObjectProtocol().GetProperty(vm, NewStringKey("then"))
		if ok && then.IsCallable() {
			vm.realm.Tasks.EnqueueMicrotask(func() {
				resolveFn := NewNativeFunction(vm.realm.FunctionPrototype, "", 1, func(vm *VM, this Value, args []Value) (Value, error) {
					fulfillPromise(vm, p, argOrUndefined(args, 0))
					return Undefined, nil
				})
				rejectFn := NewNativeFunction(vm.realm.FunctionPrototype, "", 1, func(vm *VM, this Value, args []Value) (Value, error) {
					rejectPromise(vm, p, argOrUndefined(args, 0))
					return Undefined, nil
				})
				if _, err := vm.Call(then, value, []Value{resolveFn, rejectFn}); err != nil {
					if thrown, ok := ThrownValueOf(err); ok {
						rejectPromise(vm, p, thrown)
					}
				}
			})
			return
		}
	}
	fulfillPromise(vm, p, value)
}

func fulfillPromise(vm *VM, p *PromiseObject, value Value) {
	if p.State != PromisePending {
		return
	}
	p.State = PromiseFulfilled
	p.Result = value
	reactions := p.FulfillReactions
	p.FulfillReactions, p.RejectReactions = nil, nil
	for _, r := range reactions {
		scheduleReaction(vm, r, true, value)
	}
}

func rejectPromise(vm *VM, p *PromiseObject, reason Value) {
	if p.State != PromisePending {
		return
	}
	p.State = PromiseRejected
	p.Result = reason
	reactions := p.RejectReactions
	p.FulfillReactions, p.RejectReactions = nil, nil
	for _, r := range reactions {
		scheduleReaction(vm, r, false, reason)
	}
}

// promiseResolveValue implements Promise.resolve(value): reuse an existing
// Promise as-is, otherwise wrap value in a freshly resolved one (§4.7's
// "await always operates against a Promise, coercing via Promise.resolve").
func promiseResolveValue(vm *VM, value Value) *PromiseObject {
	if value.typ == TypePromise {
		return value.AsPromise()
	}
	p := NewPromise(vm.realm.PromisePrototype)
	resolvePromise(vm, p, value)
	return p
}

// promiseThen implements Promise.prototype.then's reaction-creation half:
// register handlers against p (queuing immediately if already settled) and
// return the derived Promise.
func promiseThen(vm *VM, p *PromiseObject, onFulfilled, onRejected Value) Value {
	result := NewPromise(vm.realm.PromisePrototype)
	reaction := PromiseReaction{onFulfilled: onFulfilled, onRejected: onRejected, result: result}
	switch p.State {
	case PromisePending:
		p.FulfillReactions = append(p.FulfillReactions, reaction)
		p.RejectReactions = append(p.RejectReactions, reaction)
	case PromiseFulfilled:
		scheduleReaction(vm, reaction, true, p.Result)
	case PromiseRejected:
		scheduleReaction(vm, reaction, false, p.Result)
	}
	return result.value()
}

// scheduleReaction queues the microtask job that runs a single `.then`
// handler and settles its derived Promise (§4.7: reactions are always
// microtasks, even against an already-settled Promise).
func scheduleReaction(vm *VM, r PromiseReaction, fulfilled bool, value Value) {
	vm.realm.Tasks.EnqueueMicrotask(func() {
		handler := r.onRejected
		if fulfilled {
			handler = r.onFulfilled
		}
		if !handler.IsCallable() {
			if fulfilled {
				resolvePromise(vm, r.result, value)
			} else {
				rejectPromise(vm, r.result, value)
			}
			return
		}
		out, err := vm.Call(handler, Undefined, []Value{value})
		if err != nil {
			if thrown, ok := ThrownValueOf(err); ok {
				rejectPromise(vm, r.result, thrown)
				return
			}
			rejectPromise(vm, r.result, vm.realm.NewError("InternalError", err.Error()))
			return
		}
		resolvePromise(vm, r.result, out)
	})
}

// installPromiseProtocol wires Promise.prototype.then/catch/finally (§4.7):
// the reaction mechanics every `await` and every user `.then` chain relies
// on, so — like installIteratorProtocols — this is core protocol, not the
// init-script-owned builtin method library (§9 Non-goal) that e.g.
// Array.prototype.map belongs to.
func installPromiseProtocol(r *Realm) {
	installNative(r, r.PromisePrototype, NewStringKey("then"), "then", func(vm *VM, this Value, args []Value) (Value, error) {
		if this.typ != TypePromise {
			return Undefined, vm.newTypeError("Promise.prototype.then called on incompatible receiver")
		}
		return promiseThen(vm, this.AsPromise(), argOrUndefined(args, 0), argOrUndefined(args, 1)), nil
	})
	installNative(r, r.PromisePrototype, NewStringKey("catch"), "catch", func(vm *VM, this Value, args []Value) (Value, error) {
		if this.typ != TypePromise {
			return Undefined, vm.newTypeError("Promise.prototype.catch called on incompatible receiver")
		}
		return promiseThen(vm, this.AsPromise(), Undefined, argOrUndefined(args, 0)), nil
	})
	installNative(r, r.PromisePrototype, NewStringKey("finally"), "finally", func(vm *VM, this Value, args []Value) (Value, error) {
		if this.typ != TypePromise {
			return Undefined, vm.newTypeError("Promise.prototype.finally called on incompatible receiver")
		}
		onFinally := argOrUndefined(args, 0)
		if !onFinally.IsCallable() {
			return promiseThen(vm, this.AsPromise(), onFinally, onFinally), nil
		}
		wrap := func(passthrough bool) NativeFn {
			return func(vm *VM, _ Value, args []Value) (Value, error) {
				v := argOrUndefined(args, 0)
				if _, err := vm.Call(onFinally, Undefined, nil); err != nil {
					return Undefined, err
				}
				if passthrough {
					return v, nil
				}
				return Undefined, vm.ThrowValue(v)
			}
		}
		onFulfilled := NewNativeFunction(vm.realm.FunctionPrototype, "", 1, wrap(true))
		onRejected := NewNativeFunction(vm.realm.FunctionPrototype, "", 1, wrap(false))
		return promiseThen(vm, this.AsPromise(), onFulfilled, onRejected), nil
	})
}

// NewPromiseConstructor builds the `new Promise(executor)` constructor
// function (§4.7): executor runs synchronously, receiving resolve/reject
// closures; an executor that throws rejects the Promise with the thrown
// value instead of propagating, per the ECMA-262 GetCapabilitiesExecutor
// algorithm this is distilled from.
func NewPromiseConstructor(r *Realm) Value {
	construct := func(vm *VM, args []Value, newTarget Value) (Value, error) {
		executor := argOrUndefined(args, 0)
		if !executor.IsCallable() {
			return Undefined, vm.newTypeError("Promise resolver is not a function")
		}
		p := NewPromise(r.PromisePrototype)
		resolveFn := NewNativeFunction(r.FunctionPrototype, "", 1, func(vm *VM, this Value, args []Value) (Value, error) {
			resolvePromise(vm, p, argOrUndefined(args, 0))
			return Undefined, nil
		})
		rejectFn := NewNativeFunction(r.FunctionPrototype, "", 1, func(vm *VM, this Value, args []Value) (Value, error) {
			rejectPromise(vm, p, argOrUndefined(args, 0))
			return Undefined, nil
		})
		if _, err := vm.Call(executor, Undefined, []Value{resolveFn, rejectFn}); err != nil {
			if thrown, ok := ThrownValueOf(err); ok {
				rejectPromise(vm, p, thrown)
			} else {
				return Undefined, err
			}
		}
		return p.value(), nil
	}
	return NewNativeConstructor(r.FunctionPrototype, "Promise", 1, func(vm *VM, this Value, args []Value) (Value, error) {
		return Undefined, vm.newTypeError("Constructor Promise requires 'new'")
	}, construct)
}

func argOrUndefined(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}
