package vm

import "jscore/pkg/errors"

// frame is one activation record on the VM's Go-native call stack: a
// register window, the lexical Scope the body executes in, the `this`
// binding already resolved by the caller, and enough bookkeeping to
// produce a stack trace entry and to resume a suspended generator/async
// frame (§4.6 "Calls", §4.7's reuse of suspended frames for await).
type frame struct {
	code       *BytecodeFunctionCode
	scope      *Scope
	this       Value
	homeObject Value
	regs       []Value
	pc         int
	line       int32
	name       string

	// co is non-nil when this frame belongs to a generator or async
	// function body: OpYield/OpAwait hand control back to whichever
	// goroutine is driving the coroutine (generator.go/async.go) through
	// it instead of erroring out.
	co *coroutine
}

func (f *frame) pos() errors.Position { return errors.Position{Line: int(f.line)} }

// invokeBytecode runs one function body to completion (or to its first
// unhandled throw), the Call implementation every callable object kind
// shares. parentScope is nil for a plain (non-closure) FunctionObject,
// which roots its own scope at the Realm's global scope instead of
// capturing anything.
func (vm *VM) invokeBytecode(code *BytecodeFunctionCode, parentScope *Scope, this Value, args []Value, homeObject Value) (Value, error) {
	if parentScope == nil {
		parentScope = vm.realm.GlobalScope
	}
	scope := NewFunctionScope(parentScope, this)
	bindParams(vm, scope, code, args)

	f := &frame{
		code:       code,
		scope:      scope,
		this:       this,
		homeObject: homeObject,
		regs:       make([]Value, code.NumRegisters),
		name:       code.Name,
	}
	vm.frames = append(vm.frames, f)
	defer func() { vm.frames = vm.frames[:len(vm.frames)-1] }()

	return vm.run(f)
}

// bindParams declares each parameter name against the incoming arguments
// (missing trailing arguments bind to undefined, per §4.6's "Calls" rule
// that JS never arity-checks a plain call) and exposes the full argument
// list as the non-strict `arguments` object.
func bindParams(vm *VM, scope *Scope, code *BytecodeFunctionCode, args []Value) {
	for i, name := range code.Data.VarNames[:min(code.ParamCount, len(code.Data.VarNames))] {
		var v Value
		if i < len(args) {
			v = args[i]
		} else {
			v = Undefined
		}
		scope.DeclareWith(name, BindingParam, v)
	}
	mapped := make([]Value, min(code.ParamCount, len(args)))
	copy(mapped, args)
	var unmapped []Value
	if len(args) > code.ParamCount {
		unmapped = args[code.ParamCount:]
	}
	argsObj := NewArguments(vm.realm.ObjectPrototype, mapped, unmapped)
	scope.DeclareWith("arguments", BindingVar, argsObj)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// controlSignal is how run() communicates a non-local jump up to its
// caller or to a surrounding try region: every bytecode OpReturn/OpThrow
// resolves to one of these rather than using Go panics for control flow.
type controlSignal struct {
	kind  signalKind
	value Value
	err   error
}

type signalKind uint8

const (
	signalNone signalKind = iota
	signalReturn
	signalThrow
)

// run executes f's instruction stream to completion. It is the single
// dispatch loop every call, generator resume, and top-level script
// evaluation goes through.
func (vm *VM) run(f *frame) (Value, error) {
	for {
		sig := vm.step(f)
		switch sig.kind {
		case signalReturn:
			return sig.value, nil
		case signalThrow:
			return Undefined, sig.err
		case signalNone:
			if f.pc >= len(f.code.Instructions) {
				return Undefined, nil
			}
		}
	}
}

// step executes instructions starting at f.pc until a return/throw
// signal, or until it falls off the end of the instruction stream
// (treated as an implicit `return undefined`), handling any try region
// covering a thrown pc by jumping to its catch/finally target instead of
// propagating.
func (vm *VM) step(f *frame) controlSignal {
	for f.pc < len(f.code.Instructions) {
		ins := f.code.Instructions[f.pc]
		f.line = ins.Line
		next, sig := vm.exec(f, ins)
		if sig.kind == signalThrow {
			if region, ok := findTryRegion(f.code.TryRegions, f.pc); ok {
				if region.CatchPC >= 0 {
					if thrown, ok := ThrownValueOf(sig.err); ok {
						f.scope.DeclareWith("__exception__", BindingVar, thrown)
					}
					f.pc = region.CatchPC
					continue
				}
				if region.FinallyPC >= 0 {
					f.pc = region.FinallyPC
					continue
				}
			}
			return sig
		}
		if sig.kind == signalReturn {
			return sig
		}
		f.pc = next
	}
	return controlSignal{kind: signalReturn, value: Undefined}
}

func findTryRegion(regions []TryRegion, pc int) (TryRegion, bool) {
	for _, r := range regions {
		if pc >= r.Start && pc < r.End {
			return r, true
		}
	}
	return TryRegion{}, false
}
