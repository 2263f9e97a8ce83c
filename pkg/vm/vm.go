package vm

import (
	"jscore/pkg/errors"
)

// currentPosition returns the VM's best-effort source position for error
// construction. The full position-tracking plumbing (mapping a bytecode pc
// back to a source line via the compiler's debug table) lives on the
// compiler side, out of this core's scope; until a frame is active this is
// simply the zero Position.
func (vm *VM) currentPosition() errors.Position {
	if len(vm.frames) == 0 {
		return errors.Position{}
	}
	return vm.frames[len(vm.frames)-1].pos()
}

// maxRegisters bounds a single call frame's register window (§4.6
// "Calls"): the compiler is expected to never emit a function needing
// more than this many live registers at once.
const maxRegisters = 256

// VM is the register/accumulator machine of §4.6: one accumulator, a
// fixed-size register file per active frame, an explicit operand stack
// for values that outlive a single instruction's accumulator slot
// (function arguments being assembled, spread elements), and a pointer to
// the lexical Scope the current frame executes in.
type VM struct {
	realm *Realm

	acc  Value
	regs []Value // allocated by NewVM; frames do not use it, each allocates its own register window

	frames []*frame

	argBuf []Value // pending call-argument assembly buffer (OpPushArg/OpSpreadArg/OpCall)

	callDepth int
}

const maxCallDepth = 2000 // guards the Go stack against unbounded JS recursion

// globalVM is set by every NewVM call (the most recently created VM wins). A handful of ObjectLike methods the
// spec's exotic-object protocol requires (Prototype, GetOwnProperty,
// OwnKeys, Delete) carry no *VM parameter, yet Proxy's traps for those
// operations must still invoke into JS. Since this core targets single-
// threaded execution only (§9 Non-goal: multi-threaded execution), one
// package-level active-VM pointer is a safe, deliberate simplification
// rather than threading a VM handle through every protocol method.
var globalVM *VM

func NewVM(realm *Realm) *VM {
	v := &VM{realm: realm, regs: make([]Value, 4096)}
	globalVM = v
	return v
}

func (vm *VM) Realm() *Realm { return vm.realm }

// --- error construction (§4.6 "Exceptions") ---

func (vm *VM) newTypeError(msg string) error      { return vm.newError("TypeError", msg) }
func (vm *VM) newRangeError(msg string) error      { return vm.newError("RangeError", msg) }
func (vm *VM) newSyntaxError(msg string) error      { return vm.newError("SyntaxError", msg) }
func (vm *VM) newReferenceError(msg string) error  { return vm.newError("ReferenceError", msg) }
func (vm *VM) newInternalError(msg string) error    { return vm.newError("InternalError", msg) }

func (vm *VM) newError(kind, msg string) error {
	return &thrownValue{value: vm.realm.NewError(kind, msg), vm: vm, pos: vm.currentPosition(), kind: kind}
}

// thrownValue adapts a thrown JS Value to Go's error interface and to
// pkg/errors.Thrown, so callers outside pkg/vm (a host embedding this
// core) can render a throw without importing pkg/vm's Value type.
type thrownValue struct {
	value Value
	vm    *VM
	pos   errors.Position
	kind  string
}

func (t *thrownValue) Pos() errors.Position { return t.pos }
func (t *thrownValue) Kind() string {
	if t.kind != "" {
		return t.kind
	}
	return "Throw"
}
func (t *thrownValue) Message() string { return t.Error() }

func (t *thrownValue) Error() string {
	if t.value.IsObjectLike() {
		if msg, ok := t.value.ObjectProtocol().GetProperty(t.vm, NewStringKey("message")); ok {
			s, err := msg.ToString(t.vm)
			if err == nil {
				name := "Error"
				if n, ok := t.value.ObjectProtocol().GetProperty(t.vm, NewStringKey("name")); ok {
					if ns, err := n.ToString(t.vm); err == nil {
						name = ns
					}
				}
				return name + ": " + s
			}
		}
	}
	s, err := t.value.ToString(t.vm)
	if err != nil {
		return "uncatchable throw"
	}
	return s
}

func (t *thrownValue) ThrownValue() any { return t.value }

var _ errors.Thrown = (*thrownValue)(nil)

// ThrowValue wraps an arbitrary JS Value as a Go error for the VM's
// internal control flow (§4.6 "throw")).
func (vm *VM) ThrowValue(v Value) error {
	return &thrownValue{value: v, vm: vm, pos: vm.currentPosition()}
}

// ThrownValueOf extracts the JS Value from an error produced by this VM,
// or ok=false if err didn't originate from a JS throw.
func ThrownValueOf(err error) (Value, bool) {
	if t, ok := err.(*thrownValue); ok {
		return t.value, true
	}
	return Undefined, false
}

// wrapPrimitive implements ToObject for primitives (§4.1): a Boolean,
// Number, String, Symbol, or BigInt wrapped in an ordinary object whose
// internal slot GetProperty/ToPrimitive consult. Modeled as a plain object
// carrying the primitive in a hidden own property, avoiding a dedicated
// wrapper exotic kind the core has no other use for.
func (vm *VM) wrapPrimitive(v Value) Value {
	var proto Value
	switch v.typ {
	case TypeBoolean:
		proto = vm.realm.BooleanPrototype
	case TypeFloatNumber, TypeIntegerNumber:
		proto = vm.realm.NumberPrototype
	case TypeString:
		proto = vm.realm.StringPrototype
	case TypeSymbol:
		proto = vm.realm.SymbolPrototype
	case TypeBigInt:
		proto = vm.realm.BigIntPrototype
	default:
		proto = vm.realm.ObjectPrototype
	}
	obj := NewObject(proto).AsPlainObject()
	obj.SetOwn("__primitiveValue__", v)
	return obj.value()
}

// --- calling convention (§4.6 "Calls") ---

func (vm *VM) Call(callee, this Value, args []Value) (Value, error) {
	if !callee.IsCallable() {
		return Undefined, vm.newTypeError("value is not a function")
	}
	vm.callDepth++
	if vm.callDepth > maxCallDepth {
		vm.callDepth--
		return Undefined, vm.newRangeError("Maximum call stack size exceeded")
	}
	defer func() { vm.callDepth-- }()
	return callee.ObjectProtocol().Call(vm, this, args)
}

func (vm *VM) Construct(callee Value, args []Value, newTarget Value) (Value, error) {
	if !callee.IsObjectLike() {
		return Undefined, vm.newTypeError("value is not a constructor")
	}
	vm.callDepth++
	if vm.callDepth > maxCallDepth {
		vm.callDepth--
		return Undefined, vm.newRangeError("Maximum call stack size exceeded")
	}
	defer func() { vm.callDepth-- }()
	if newTarget.IsUndefined() {
		newTarget = callee
	}
	return callee.ObjectProtocol().Construct(vm, args, newTarget)
}
