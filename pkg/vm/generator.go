package vm

import "unsafe"

type generatorState uint8

const (
	generatorSuspendedStart generatorState = iota
	generatorSuspendedYield
	generatorRunning
	generatorCompleted
)

// GeneratorObject is the Generator exotic kind (§4.3): calling a generator
// function doesn't run its body, it returns one of these, and `.next()` /
// `.return()` / `.throw()` drive the body forward one yield at a time.
// The body runs on its own goroutine via coroutine; see coroutine.go for
// why that stays within this core's single-threaded execution model.
type GeneratorObject struct {
	Object
	state generatorState
	co    *coroutine

	code   *BytecodeFunctionCode
	scope  *Scope
	this   Value
	args   []Value
	result Value // final return value, once state == generatorCompleted
}

func NewGeneratorObject(proto Value, code *BytecodeFunctionCode, scope *Scope, this Value, args []Value) Value {
	g := &GeneratorObject{
		Object: newObjectBase(proto, "Generator"),
		state:  generatorSuspendedStart,
		code:   code,
		scope:  scope,
		this:   this,
		args:   args,
	}
	return Value{typ: TypeGenerator, obj: unsafe.Pointer(g)}
}

func (v Value) AsGenerator() *GeneratorObject { return (*GeneratorObject)(v.obj) }
func (g *GeneratorObject) value() Value       { return Value{typ: TypeGenerator, obj: unsafe.Pointer(g)} }

func (g *GeneratorObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, g.value(), key, g.value())
}
func (g *GeneratorObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, g.value(), key, value, receiver)
}
func (g *GeneratorObject) Has(vm *VM, key PropertyKey) bool { return hasProperty(g.value(), key) }
func (g *GeneratorObject) DebugTag() string                 { return "[object Generator]" }

// Next implements `.next(sent)`: resumes the body with sent as the value
// of the suspended `yield` expression, or starts the body on its first call.
func (g *GeneratorObject) Next(vm *VM, sent Value) (Value, error) {
	return g.advance(vm, coroResume{value: sent})
}

// Return implements `.return(v)`: forces the suspended `yield` expression
// to behave as an early `return v` inside the generator body. step()
// passes the resulting signalReturn straight out, so enclosing finally
// blocks are not run.
func (g *GeneratorObject) Return(vm *VM, v Value) (Value, error) {
	if g.state == generatorSuspendedStart {
		g.state = generatorCompleted
		g.result = v
		return iterResult(vm, v, true), nil
	}
	return g.advance(vm, coroResume{value: v, abrupt: true})
}

// Throw implements `.throw(v)`: forces the suspended `yield` expression to
// behave as `throw v`, letting any enclosing try/catch inside the body
// handle it exactly as it would a thrown exception at that bytecode offset.
func (g *GeneratorObject) Throw(vm *VM, v Value) (Value, error) {
	if g.state == generatorSuspendedStart || g.state == generatorCompleted {
		g.state = generatorCompleted
		return Undefined, vm.ThrowValue(v)
	}
	return g.advance(vm, coroResume{value: v, throw: true})
}

// yieldStar drives `yield* iterable` inside a generator body: forward each
// produced value up through the generator's own suspension point, forward
// sent values back down via .next(sent), and delegate an abrupt resume
// (.return()/.throw() on the outer generator) to the inner iterator's
// matching method when it has one (§4.3's generator delegation rule).
func (vm *VM) yieldStar(f *frame, iterable Value) (Value, controlSignal) {
	iterator, err := vm.getIterator(iterable)
	if err != nil {
		return Undefined, vm.throwSignal(err)
	}
	sent := Undefined
	for {
		done, value, err := vm.iteratorNextWith(iterator, sent)
		if err != nil {
			return Undefined, vm.throwSignal(err)
		}
		if done {
			return value, controlSignal{}
		}

		resume := f.co.suspend(value)
		switch {
		case resume.throw:
			method, err := vm.getProperty(iterator, NewStringKey("throw"))
			if err != nil {
				return Undefined, vm.throwSignal(err)
			}
			if !method.IsCallable() {
				vm.closeIterator(iterator)
				return Undefined, vm.throwSignal(vm.ThrowValue(resume.value))
			}
			result, err := vm.Call(method, iterator, []Value{resume.value})
			if err != nil {
				return Undefined, vm.throwSignal(err)
			}
			d, v, err := decodeIterResult(vm, result)
			if err != nil {
				return Undefined, vm.throwSignal(err)
			}
			if d {
				return v, controlSignal{}
			}
			sent = f.co.suspend(v).value
		case resume.abrupt:
			vm.closeIterator(iterator)
			return Undefined, controlSignal{kind: signalReturn, value: resume.value}
		default:
			sent = resume.value
		}
	}
}

func (vm *VM) iteratorNextWith(iterator, sent Value) (done bool, value Value, err error) {
	nextFn, err := vm.getProperty(iterator, NewStringKey("next"))
	if err != nil {
		return false, Undefined, err
	}
	if !nextFn.IsCallable() {
		return false, Undefined, vm.newTypeError("iterator.next is not a function")
	}
	result, err := vm.Call(nextFn, iterator, []Value{sent})
	if err != nil {
		return false, Undefined, err
	}
	return decodeIterResult(vm, result)
}

func decodeIterResult(vm *VM, result Value) (done bool, value Value, err error) {
	d, err := vm.getProperty(result, NewStringKey("done"))
	if err != nil {
		return false, Undefined, err
	}
	value, err = vm.getProperty(result, NewStringKey("value"))
	if err != nil {
		return false, Undefined, err
	}
	return d.ToBoolean(), value, nil
}

// installGeneratorProtocol wires Generator.prototype.next/return/throw
// (§4.3): the driving surface `for...of` and manual iteration use against
// any generator instance, installed as core protocol for the same reason
// installIteratorProtocols is (§9's builtin-method-library Non-goal is
// about things like Array.prototype.map, not the iteration protocol
// itself).
func installGeneratorProtocol(r *Realm) {
	installNative(r, r.GeneratorPrototype, NewStringKey("next"), "next", func(vm *VM, this Value, args []Value) (Value, error) {
		if this.typ != TypeGenerator {
			return Undefined, vm.newTypeError("Generator.prototype.next called on incompatible receiver")
		}
		return this.AsGenerator().Next(vm, argOrUndefined(args, 0))
	})
	installNative(r, r.GeneratorPrototype, NewStringKey("return"), "return", func(vm *VM, this Value, args []Value) (Value, error) {
		if this.typ != TypeGenerator {
			return Undefined, vm.newTypeError("Generator.prototype.return called on incompatible receiver")
		}
		return this.AsGenerator().Return(vm, argOrUndefined(args, 0))
	})
	installNative(r, r.GeneratorPrototype, NewStringKey("throw"), "throw", func(vm *VM, this Value, args []Value) (Value, error) {
		if this.typ != TypeGenerator {
			return Undefined, vm.newTypeError("Generator.prototype.throw called on incompatible receiver")
		}
		return this.AsGenerator().Throw(vm, argOrUndefined(args, 0))
	})
	iterKey := NewSymbolKey(r.WellKnown.Iterator)
	installNative(r, r.GeneratorPrototype, iterKey, "[Symbol.iterator]", func(vm *VM, this Value, args []Value) (Value, error) {
		return this, nil
	})
}

func (g *GeneratorObject) advance(vm *VM, msg coroResume) (Value, error) {
	if g.state == generatorCompleted {
		return iterResult(vm, Undefined, true), nil
	}

	g.state = generatorRunning
	var y coroYield
	if g.co == nil {
		g.co = newCoroutine()
		co := g.co
		g.co.start(func() {
			parentScope := g.scope
			if parentScope == nil {
				parentScope = vm.realm.GlobalScope
			}
			scope := NewFunctionScope(parentScope, g.this)
			bindParams(vm, scope, g.code, g.args)
			f := &frame{
				code:  g.code,
				scope: scope,
				this:  g.this,
				regs:  make([]Value, g.code.NumRegisters),
				name:  g.code.Name,
				co:    co,
			}
			// f stays pushed on vm.frames for the coroutine's whole
			// lifetime, including while suspended: a stack trace taken
			// during that window would show it, but the only reader of
			// vm.frames is currentPosition(), and a suspended generator
			// can't be the source of a concurrently-thrown error.
			vm.frames = append(vm.frames, f)
			result, err := vm.run(f)
			vm.frames = vm.frames[:len(vm.frames)-1]
			if err != nil {
				if thrown, ok := ThrownValueOf(err); ok {
					co.yieldCh <- coroYield{kind: coroThrew, err: err, value: thrown}
				} else {
					co.yieldCh <- coroYield{kind: coroThrew, err: err}
				}
				return
			}
			co.yieldCh <- coroYield{kind: coroDone, value: result}
		})
		y = g.co.next()
	} else {
		y = g.co.resume(msg)
	}

	switch y.kind {
	case coroYieldValue:
		g.state = generatorSuspendedYield
		return iterResult(vm, y.value, false), nil
	case coroDone:
		g.state = generatorCompleted
		g.result = y.value
		return iterResult(vm, y.value, true), nil
	default: // coroThrew
		g.state = generatorCompleted
		return Undefined, y.err
	}
}
