package vm

import "unsafe"

// FunctionObject is a compiled (bytecode-backed) function, the Function
// exotic kind of §4.3: it adds Call, and — when constructible — Construct,
// allocating `this` from the `prototype` slot (§4.6 "Calls").
type FunctionObject struct {
	Object
	Name         string
	Code         *BytecodeFunctionCode
	IsArrow      bool
	IsGenerator  bool
	IsAsync      bool
	Constructible bool
	HomeObject   Value // [[HomeObject]] for super property access
}

func NewFunction(proto Value, name string, code *BytecodeFunctionCode) Value {
	fn := &FunctionObject{Object: newObjectBase(proto, "Function"), Name: name, Code: code, Constructible: true}
	fn.SetOwn("length", Number(float64(code.ParamCount)))
	fn.SetOwn("name", NewString(name))
	return Value{typ: TypeFunction, obj: unsafe.Pointer(fn)}
}

func (v Value) AsFunction() *FunctionObject { return (*FunctionObject)(v.obj) }
func (f *FunctionObject) value() Value      { return Value{typ: TypeFunction, obj: unsafe.Pointer(f)} }

func (f *FunctionObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, f.value(), key, f.value())
}
func (f *FunctionObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, f.value(), key, value, receiver)
}
func (f *FunctionObject) Has(vm *VM, key PropertyKey) bool { return hasProperty(f.value(), key) }

func (f *FunctionObject) Call(vm *VM, this Value, args []Value) (Value, error) {
	if f.IsGenerator {
		return NewGeneratorObject(vm.realm.GeneratorPrototype, f.Code, nil, this, args), nil
	}
	if f.IsAsync {
		return executeAsyncFunction(vm, f.Code, nil, this, args, f.HomeObject), nil
	}
	return vm.invokeBytecode(f.Code, nil, this, args, f.HomeObject)
}

func (f *FunctionObject) Construct(vm *VM, args []Value, newTarget Value) (Value, error) {
	if !f.Constructible {
		return Undefined, vm.newTypeError(f.Name + " is not a constructor")
	}
	protoVal, _ := f.GetOwn("prototype")
	if !protoVal.IsObjectLike() {
		protoVal = vm.realm.ObjectPrototype
	}
	this := NewObject(protoVal)
	result, err := vm.invokeBytecode(f.Code, nil, this, args, f.HomeObject)
	if err != nil {
		return Undefined, err
	}
	if result.IsObjectLike() {
		return result, nil
	}
	return this, nil
}

func (f *FunctionObject) DebugTag() string { return "[Function: " + f.Name + "]" }

// ClosureObject pairs a FunctionObject with the Scope it closes over
// (§3 "Scope"/§4.6 "Function blueprints are lazily inflated ... capture
// the current scope"). This is what OpMakeClosure materializes.
type ClosureObject struct {
	Object
	Fn    *FunctionObject
	Scope *Scope
}

func NewClosure(fn *FunctionObject, scope *Scope) Value {
	c := &ClosureObject{Object: newObjectBase(fn.Prototype(), "Function"), Fn: fn, Scope: scope}
	for _, k := range fn.OwnKeys() {
		if v, ok := fn.GetOwnProperty(k); ok {
			c.named[k.mapKey()] = &propSlot{desc: v, order: c.nextOrder}
			c.nextOrder++
		}
	}
	return Value{typ: TypeClosure, obj: unsafe.Pointer(c)}
}

func (v Value) AsClosure() *ClosureObject { return (*ClosureObject)(v.obj) }
func (c *ClosureObject) value() Value     { return Value{typ: TypeClosure, obj: unsafe.Pointer(c)} }

func (c *ClosureObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, c.value(), key, c.value())
}
func (c *ClosureObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, c.value(), key, value, receiver)
}
func (c *ClosureObject) Has(vm *VM, key PropertyKey) bool { return hasProperty(c.value(), key) }

func (c *ClosureObject) Call(vm *VM, this Value, args []Value) (Value, error) {
	if c.Fn.IsGenerator {
		return NewGeneratorObject(vm.realm.GeneratorPrototype, c.Fn.Code, c.Scope, this, args), nil
	}
	if c.Fn.IsAsync {
		return executeAsyncFunction(vm, c.Fn.Code, c.Scope, this, args, c.Fn.HomeObject), nil
	}
	return vm.invokeBytecode(c.Fn.Code, c.Scope, this, args, c.Fn.HomeObject)
}

func (c *ClosureObject) Construct(vm *VM, args []Value, newTarget Value) (Value, error) {
	if !c.Fn.Constructible {
		return Undefined, vm.newTypeError(c.Fn.Name + " is not a constructor")
	}
	protoVal, _ := c.GetOwn("prototype")
	if !protoVal.IsObjectLike() {
		protoVal = vm.realm.ObjectPrototype
	}
	this := NewObject(protoVal)
	result, err := vm.invokeBytecode(c.Fn.Code, c.Scope, this, args, c.Fn.HomeObject)
	if err != nil {
		return Undefined, err
	}
	if result.IsObjectLike() {
		return result, nil
	}
	return this, nil
}

func (c *ClosureObject) DebugTag() string { return "[Function: " + c.Fn.Name + "]" }

// NativeFn is the signature every native (host-implemented) function
// supplies; builtins live outside this core, but the call shape they plug
// into is part of the core's embedding surface (§6).
type NativeFn func(vm *VM, this Value, args []Value) (Value, error)

type NativeConstructFn func(vm *VM, args []Value, newTarget Value) (Value, error)

// NativeObject wraps a NativeFn as a callable object (§4.3 "Function —
// adds Call").
type NativeObject struct {
	Object
	Name      string
	Fn        NativeFn
	ConstructFn NativeConstructFn
}

func NewNativeFunction(proto Value, name string, arity int, fn NativeFn) Value {
	n := &NativeObject{Object: newObjectBase(proto, "Function"), Name: name, Fn: fn}
	n.SetOwn("name", NewString(name))
	n.SetOwn("length", Number(float64(arity)))
	return Value{typ: TypeNative, obj: unsafe.Pointer(n)}
}

func NewNativeConstructor(proto Value, name string, arity int, fn NativeFn, construct NativeConstructFn) Value {
	n := &NativeObject{Object: newObjectBase(proto, "Function"), Name: name, Fn: fn, ConstructFn: construct}
	n.SetOwn("name", NewString(name))
	n.SetOwn("length", Number(float64(arity)))
	return Value{typ: TypeNative, obj: unsafe.Pointer(n)}
}

func (v Value) AsNative() *NativeObject { return (*NativeObject)(v.obj) }
func (n *NativeObject) value() Value    { return Value{typ: TypeNative, obj: unsafe.Pointer(n)} }

func (n *NativeObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, n.value(), key, n.value())
}
func (n *NativeObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, n.value(), key, value, receiver)
}
func (n *NativeObject) Has(vm *VM, key PropertyKey) bool { return hasProperty(n.value(), key) }

func (n *NativeObject) Call(vm *VM, this Value, args []Value) (Value, error) {
	return n.Fn(vm, this, args)
}

func (n *NativeObject) Construct(vm *VM, args []Value, newTarget Value) (Value, error) {
	if n.ConstructFn == nil {
		return Undefined, vm.newTypeError(n.Name + " is not a constructor")
	}
	return n.ConstructFn(vm, args, newTarget)
}

func (n *NativeObject) DebugTag() string { return "[Function (native): " + n.Name + "]" }

// BoundObject implements Function.prototype.bind: a target, a bound this,
// and a prefix of bound arguments.
type BoundObject struct {
	Object
	Target   Value
	BoundThis Value
	BoundArgs []Value
}

func NewBoundFunction(proto, target, boundThis Value, boundArgs []Value) Value {
	b := &BoundObject{Object: newObjectBase(proto, "Function"), Target: target, BoundThis: boundThis, BoundArgs: boundArgs}
	return Value{typ: TypeBound, obj: unsafe.Pointer(b)}
}

func (v Value) AsBound() *BoundObject { return (*BoundObject)(v.obj) }
func (b *BoundObject) value() Value   { return Value{typ: TypeBound, obj: unsafe.Pointer(b)} }

func (b *BoundObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, b.value(), key, b.value())
}
func (b *BoundObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, b.value(), key, value, receiver)
}
func (b *BoundObject) Has(vm *VM, key PropertyKey) bool { return hasProperty(b.value(), key) }

func (b *BoundObject) Call(vm *VM, this Value, args []Value) (Value, error) {
	return vm.Call(b.Target, b.BoundThis, append(append([]Value(nil), b.BoundArgs...), args...))
}

func (b *BoundObject) Construct(vm *VM, args []Value, newTarget Value) (Value, error) {
	return vm.Construct(b.Target, append(append([]Value(nil), b.BoundArgs...), args...), newTarget)
}

func (b *BoundObject) DebugTag() string { return "[Function (bound)]" }

// ArgumentsObject is the Arguments exotic object of §4.3. Its indexed
// slots hold a copy of the call's arguments (see bindParams): writing
// `arguments[0]` is not seen through the named parameter, and assigning
// the parameter does not change `arguments[0]`.
type ArgumentsObject struct {
	Object
	mapped   []Value // arguments at parameter positions (a copy, not shared with the parameter bindings)
	unmapped []Value // overflow args beyond the mapped parameter count
	length   int
}

func NewArguments(proto Value, mapped, unmapped []Value) Value {
	a := &ArgumentsObject{Object: newObjectBase(proto, "Arguments"), mapped: mapped, unmapped: unmapped, length: len(mapped) + len(unmapped)}
	return Value{typ: TypeArguments, obj: unsafe.Pointer(a)}
}

func (v Value) AsArguments() *ArgumentsObject { return (*ArgumentsObject)(v.obj) }
func (a *ArgumentsObject) value() Value       { return Value{typ: TypeArguments, obj: unsafe.Pointer(a)} }

func (a *ArgumentsObject) GetOwnProperty(key PropertyKey) (PropertyDescriptor, bool) {
	if !key.IsSymbol() && key.name == "length" {
		return DataProperty(Number(float64(a.length)), true, false, true), true
	}
	if idx, ok := arrayIndex(key); ok {
		if idx < len(a.mapped) {
			return DataProperty(a.mapped[idx], true, true, true), true
		}
		if j := idx - len(a.mapped); j >= 0 && j < len(a.unmapped) {
			return DataProperty(a.unmapped[j], true, true, true), true
		}
		return PropertyDescriptor{}, false
	}
	return a.Object.GetOwnProperty(key)
}

func (a *ArgumentsObject) DefineProperty(vm *VM, key PropertyKey, desc PropertyDescriptor) error {
	if idx, ok := arrayIndex(key); ok && !desc.IsAccessor {
		if idx < len(a.mapped) {
			a.mapped[idx] = desc.Value
			return nil
		}
		if j := idx - len(a.mapped); j >= 0 && j < len(a.unmapped) {
			a.unmapped[j] = desc.Value
			return nil
		}
	}
	return a.Object.DefineProperty(vm, key, desc)
}

func (a *ArgumentsObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, a.value(), key, a.value())
}
func (a *ArgumentsObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, a.value(), key, value, receiver)
}
func (a *ArgumentsObject) Has(vm *VM, key PropertyKey) bool { return hasProperty(a.value(), key) }
func (a *ArgumentsObject) DebugTag() string                { return "[object Arguments]" }
