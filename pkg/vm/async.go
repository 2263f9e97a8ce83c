package vm

// executeAsyncFunction implements calling an async function (§4.7): the
// body runs synchronously, on its own coroutine, until it either finishes
// or hits its first `await` — only then does control return to the caller,
// with the eventually-settled Promise already in hand. Everything after
// that first await resumes later as a microtask reacting to the awaited
// Promise, never blocking the caller that obtained the pending Promise.
func executeAsyncFunction(vm *VM, code *BytecodeFunctionCode, parentScope *Scope, this Value, args []Value, homeObject Value) Value {
	p := NewPromise(vm.realm.PromisePrototype)
	co := newCoroutine()

	co.start(func() {
		scope := parentScope
		if scope == nil {
			scope = vm.realm.GlobalScope
		}
		fnScope := NewFunctionScope(scope, this)
		bindParams(vm, fnScope, code, args)
		f := &frame{
			code:       code,
			scope:      fnScope,
			this:       this,
			homeObject: homeObject,
			regs:       make([]Value, code.NumRegisters),
			name:       code.Name,
			co:         co,
		}
		vm.frames = append(vm.frames, f)
		result, err := vm.run(f)
		vm.frames = vm.frames[:len(vm.frames)-1]
		if err != nil {
			if thrown, ok := ThrownValueOf(err); ok {
				co.yieldCh <- coroYield{kind: coroThrew, value: thrown, err: err}
			} else {
				co.yieldCh <- coroYield{kind: coroThrew, err: err}
			}
			return
		}
		co.yieldCh <- coroYield{kind: coroDone, value: result}
	})

	settleAsyncStep(vm, p, co, co.next())
	return p.value()
}

// settleAsyncStep reacts to one coroutine step: completion settles p
// directly, a suspension awaits the yielded value and resumes the body
// from the reaction microtask once it settles.
func settleAsyncStep(vm *VM, p *PromiseObject, co *coroutine, y coroYield) {
	switch y.kind {
	case coroDone:
		resolvePromise(vm, p, y.value)
	case coroThrew:
		if y.err != nil {
			if _, ok := ThrownValueOf(y.err); ok {
				rejectPromise(vm, p, y.value)
				return
			}
			rejectPromise(vm, p, vm.realm.NewError("InternalError", y.err.Error()))
			return
		}
		rejectPromise(vm, p, y.value)
	case coroYieldValue:
		awaited := promiseResolveValue(vm, y.value)
		onFulfilled := NewNativeFunction(vm.realm.FunctionPrototype, "", 1, func(vm *VM, this Value, args []Value) (Value, error) {
			settleAsyncStep(vm, p, co, co.resume(coroResume{value: argOrUndefined(args, 0)}))
			return Undefined, nil
		})
		onRejected := NewNativeFunction(vm.realm.FunctionPrototype, "", 1, func(vm *VM, this Value, args []Value) (Value, error) {
			settleAsyncStep(vm, p, co, co.resume(coroResume{value: argOrUndefined(args, 0), throw: true}))
			return Undefined, nil
		})
		promiseThen(vm, awaited, onFulfilled, onRejected)
	}
}
