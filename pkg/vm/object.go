package vm

import (
	"sort"
	"unsafe"
)

// KeyKind discriminates a PropertyKey's payload (§3 "Properties ... Property
// keys are strings or symbols").
type KeyKind uint8

const (
	KeyString KeyKind = iota
	KeyPrivate
)

// PropertyKey is a property key: either a string or a symbol Value. Using
// the raw Value (rather than a separate symbol-id type) for the symbol
// case lets us key maps on it directly, since Value is a comparable struct.
type PropertyKey struct {
	kind KeyKind
	name string
	sym  Value // valid iff sym.Type() == TypeSymbol; kind left as zero value either way
}

func NewStringKey(name string) PropertyKey { return PropertyKey{kind: KeyString, name: name} }
func NewSymbolKey(sym Value) PropertyKey   { return PropertyKey{sym: sym} }

func (k PropertyKey) IsSymbol() bool { return k.sym.typ == TypeSymbol }
func (k PropertyKey) String() string {
	if k.IsSymbol() {
		return "Symbol(" + k.sym.AsSymbol().description + ")"
	}
	return k.name
}

// mapKey is the comparable form used as a Go map key for the named part.
type mapKey struct {
	name string
	sym  Value
}

func (k PropertyKey) mapKey() mapKey { return mapKey{name: k.name, sym: k.sym} }

// DataDescriptor and AccessorDescriptor are the two property descriptor
// shapes of §3 "Descriptor". PropertyDescriptor holds exactly one of them,
// selected by IsAccessor, mirroring the ECMAScript abstract Property
// Descriptor record.
type PropertyDescriptor struct {
	IsAccessor bool

	Value      Value
	Writable   bool
	Getter     Value
	Setter     Value
	Enumerable bool
	Configurable bool
}

func DataProperty(value Value, writable, enumerable, configurable bool) PropertyDescriptor {
	return PropertyDescriptor{Value: value, Writable: writable, Enumerable: enumerable, Configurable: configurable}
}

func AccessorProperty(getter, setter Value, enumerable, configurable bool) PropertyDescriptor {
	return PropertyDescriptor{IsAccessor: true, Getter: getter, Setter: setter, Enumerable: enumerable, Configurable: configurable}
}

// propSlot is the named-part storage cell: the descriptor plus its
// insertion index, so OwnKeys() can return string keys in insertion order
// (§4.3 "OwnKeys()").
type propSlot struct {
	desc  PropertyDescriptor
	order int
}

// Object is the ordinary-object base embedded by every object kind
// (PlainObject, ArrayObject, FunctionObject, ...). It carries the GC
// header, the prototype slot, the named-property storage (§3/§4.3; the
// array part lives in ArrayObject, not here), and the
// extensible/sealed/frozen bits. Ordinary
// protocol methods are defined on *Object so every embedder gets them for
// free; exotic kinds override individual hooks by redeclaring the same
// method name on their own concrete type (Go's normal shadowing rule).
type Object struct {
	GCHeader
	proto Value // Object | Null

	named    map[mapKey]*propSlot
	nextOrder int

	extensible bool
	sealed     bool
	frozen     bool

	class string // debug/downcast tag, e.g. "Array", "Promise"
}

func newObjectBase(proto Value, class string) Object {
	return Object{proto: proto, named: make(map[mapKey]*propSlot), extensible: true, class: class}
}

// ObjectLike is the canonical protocol of §4.3: every value with
// Type() >= TypeObject implements it via ObjectProtocol().
type ObjectLike interface {
	Prototype() Value
	SetPrototype(vm *VM, proto Value) error
	IsExtensible() bool
	PreventExtensions()

	DefineProperty(vm *VM, key PropertyKey, desc PropertyDescriptor) error
	GetOwnProperty(key PropertyKey) (PropertyDescriptor, bool)
	GetProperty(vm *VM, key PropertyKey) (Value, bool)
	SetProperty(vm *VM, key PropertyKey, value, receiver Value) error
	Has(vm *VM, key PropertyKey) bool
	Delete(key PropertyKey) bool
	OwnKeys() []PropertyKey

	Call(vm *VM, this Value, args []Value) (Value, error)
	Construct(vm *VM, args []Value, newTarget Value) (Value, error)

	DebugTag() string
	header() *GCHeader
}

// ObjectProtocol recovers the ObjectLike view for any object-kind Value.
// This is the typed downcast point of §4.3 "Downcasting": callers that
// need a specific exotic kind's native state go through a further
// As<Kind>() accessor (AsArray, AsProxy, ...), each a direct unsafe cast
// guarded by the Value's type tag rather than a runtime type assertion.
func (v Value) ObjectProtocol() ObjectLike {
	switch v.typ {
	case TypeObject:
		return v.AsPlainObject()
	case TypeArray:
		return v.AsArray()
	case TypeFunction:
		return v.AsFunction()
	case TypeClosure:
		return v.AsClosure()
	case TypeNative:
		return v.AsNative()
	case TypeBound:
		return v.AsBound()
	case TypeArguments:
		return v.AsArguments()
	case TypeProxy:
		return v.AsProxy()
	case TypeRegExp:
		return v.AsRegExp()
	case TypeMap:
		return v.AsMap()
	case TypeSet:
		return v.AsSet()
	case TypeWeakMap:
		return v.AsWeakMap()
	case TypeWeakSet:
		return v.AsWeakSet()
	case TypeWeakRef:
		return v.AsWeakRef()
	case TypeArrayBuffer:
		return v.AsArrayBuffer()
	case TypeTypedArray:
		return v.AsTypedArray()
	case TypeGenerator:
		return v.AsGenerator()
	case TypePromise:
		return v.AsPromise()
	default:
		return nil
	}
}

// PlainObject is the ordinary object: no exotic hooks, just Object's base
// behavior. It has no callable slot: Call and Construct fall through to
// Object's, which fail with TypeError; callable objects are the function
// kinds in function.go.
type PlainObject struct {
	Object
}

func NewObject(proto Value) Value {
	obj := &PlainObject{Object: newObjectBase(proto, "Object")}
	return Value{typ: TypeObject, obj: unsafe.Pointer(obj)}
}

func (v Value) AsPlainObject() *PlainObject { return (*PlainObject)(v.obj) }

func (p *PlainObject) value() Value { return Value{typ: TypeObject, obj: unsafe.Pointer(p)} }

func (p *PlainObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, p.value(), key, p.value())
}

func (p *PlainObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, p.value(), key, value, receiver)
}

func (p *PlainObject) Has(vm *VM, key PropertyKey) bool {
	return hasProperty(p.value(), key)
}

func (o *Object) header() *GCHeader { return &o.GCHeader }
func (o *Object) Prototype() Value  { return o.proto }

func (o *Object) SetPrototype(vm *VM, proto Value) error {
	if !o.extensible {
		return vm.newTypeError("#<Object> is not extensible")
	}
	// §3 invariant 6: prototype chains are acyclic.
	for p := proto; p.IsObjectLike(); {
		if p.obj == unsafe.Pointer(o) {
			return vm.newTypeError("Cyclic __proto__ value")
		}
		p = p.ObjectProtocol().Prototype()
	}
	o.proto = proto
	return nil
}

func (o *Object) IsExtensible() bool { return o.extensible }
func (o *Object) PreventExtensions() { o.extensible = false }

func (o *Object) Seal() {
	o.sealed = true
	o.extensible = false
	for _, slot := range o.named {
		slot.desc.Configurable = false
	}
}

func (o *Object) Freeze() {
	o.Seal()
	o.frozen = true
	for _, slot := range o.named {
		if !slot.desc.IsAccessor {
			slot.desc.Writable = false
		}
	}
}

func (o *Object) IsSealed() bool { return o.sealed }
func (o *Object) IsFrozen() bool { return o.frozen }

// DefineProperty implements §4.3's DefineProperty for the named part,
// honoring invariants 1-4 of §3.
func (o *Object) DefineProperty(vm *VM, key PropertyKey, desc PropertyDescriptor) error {
	mk := key.mapKey()
	existing, has := o.named[mk]
	if !has {
		if !o.extensible {
			return vm.newTypeError("Cannot define property " + key.String() + ", object is not extensible")
		}
		o.named[mk] = &propSlot{desc: desc, order: o.nextOrder}
		o.nextOrder++
		return nil
	}
	if !existing.desc.Configurable {
		if desc.Configurable {
			return vm.newTypeError("Cannot redefine property: " + key.String())
		}
		if existing.desc.IsAccessor != desc.IsAccessor {
			return vm.newTypeError("Cannot redefine property: " + key.String())
		}
		if !existing.desc.IsAccessor {
			if !existing.desc.Writable {
				if desc.Writable {
					return vm.newTypeError("Cannot redefine property: " + key.String())
				}
				if !desc.Value.StrictEquals(existing.desc.Value) {
					return vm.newTypeError("Cannot redefine property: " + key.String())
				}
			}
		}
	}
	existing.desc = desc
	return nil
}

func (o *Object) GetOwnProperty(key PropertyKey) (PropertyDescriptor, bool) {
	if slot, ok := o.named[key.mapKey()]; ok {
		return slot.desc, true
	}
	return PropertyDescriptor{}, false
}

// getPropertyFrom is the shared prototype-walk helper every exotic kind's
// GetProperty override can call after checking its own exotic slots.
func getPropertyFrom(vm *VM, start Value, key PropertyKey, receiver Value) (Value, bool) {
	cur := start
	for cur.IsObjectLike() {
		proto := cur.ObjectProtocol()
		if desc, ok := proto.GetOwnProperty(key); ok {
			if desc.IsAccessor {
				if desc.Getter.IsUndefined() {
					return Undefined, true
				}
				result, err := vm.Call(desc.Getter, receiver, nil)
				if err != nil {
					return Undefined, false
				}
				return result, true
			}
			return desc.Value, true
		}
		cur = proto.Prototype()
	}
	return Undefined, false
}

// setPropertyOn implements §4.3's Set, including the rule that a prototype
// accessor overrides an own data write (§4.3 "Accessor dispatch"). Each
// concrete object kind's SetProperty calls this with its own Value as
// `start` (mirroring getPropertyFrom above).
func setPropertyOn(vm *VM, start Value, key PropertyKey, value, receiver Value) error {
	cur := start
	for cur.IsObjectLike() {
		proto := cur.ObjectProtocol()
		if desc, ok := proto.GetOwnProperty(key); ok {
			if desc.IsAccessor {
				if desc.Setter.IsUndefined() {
					return nil // silently ignored, like a non-writable data property in sloppy mode
				}
				_, err := vm.Call(desc.Setter, receiver, []Value{value})
				return err
			}
			if cur.obj == receiver.obj {
				if !desc.Writable {
					return nil
				}
				return receiver.ObjectProtocol().DefineProperty(vm, key, DataProperty(value, desc.Writable, desc.Enumerable, desc.Configurable))
			}
			break
		}
		cur = proto.Prototype()
	}
	recv := receiver.ObjectProtocol()
	if !recv.IsExtensible() {
		return nil
	}
	return recv.DefineProperty(vm, key, DataProperty(value, true, true, true))
}

// hasProperty walks the prototype chain looking for an own property
// (§4.3 "Has(key)"); each concrete kind's Has calls this with its own Value.
func hasProperty(start Value, key PropertyKey) bool {
	cur := start
	for cur.IsObjectLike() {
		proto := cur.ObjectProtocol()
		if _, ok := proto.GetOwnProperty(key); ok {
			return true
		}
		cur = proto.Prototype()
	}
	return false
}

func (o *Object) Delete(key PropertyKey) bool {
	mk := key.mapKey()
	slot, ok := o.named[mk]
	if !ok {
		return true
	}
	if !slot.desc.Configurable {
		return false
	}
	delete(o.named, mk)
	return true
}

// OwnKeys returns string keys in insertion order followed by symbol keys
// in insertion order (§4.3 "OwnKeys()").
func (o *Object) OwnKeys() []PropertyKey {
	type entry struct {
		key   PropertyKey
		order int
	}
	var strs, syms []entry
	for mk, slot := range o.named {
		k := PropertyKey{name: mk.name, sym: mk.sym}
		if k.IsSymbol() {
			syms = append(syms, entry{k, slot.order})
		} else {
			strs = append(strs, entry{k, slot.order})
		}
	}
	sort.Slice(strs, func(i, j int) bool { return strs[i].order < strs[j].order })
	sort.Slice(syms, func(i, j int) bool { return syms[i].order < syms[j].order })
	keys := make([]PropertyKey, 0, len(strs)+len(syms))
	for _, e := range strs {
		keys = append(keys, e.key)
	}
	for _, e := range syms {
		keys = append(keys, e.key)
	}
	return keys
}

// SetOwn is a convenience used by the realm bootstrap and native builtins:
// define an enumerable, writable, configurable own data property.
func (o *Object) SetOwn(name string, value Value) {
	o.named[mapKey{name: name}] = &propSlot{desc: DataProperty(value, true, true, true), order: o.nextOrder}
	o.nextOrder++
}

func (o *Object) GetOwn(name string) (Value, bool) {
	if slot, ok := o.named[mapKey{name: name}]; ok {
		return slot.desc.Value, true
	}
	return Undefined, false
}

func (o *Object) Call(vm *VM, this Value, args []Value) (Value, error) {
	return Undefined, vm.newTypeError(o.class + " is not a function")
}

func (o *Object) Construct(vm *VM, args []Value, newTarget Value) (Value, error) {
	return Undefined, vm.newTypeError(o.class + " is not a constructor")
}

func (o *Object) DebugTag() string { return "[object " + o.class + "]" }

// ToPropertyDescriptorObject round-trips a PropertyDescriptor into the
// "property descriptor object" representation of §4.3, used by
// Object.getOwnPropertyDescriptor.
func ToPropertyDescriptorObject(vm *VM, desc PropertyDescriptor) Value {
	obj := NewObject(vm.realm.ObjectPrototype).AsPlainObject()
	if desc.IsAccessor {
		obj.SetOwn("get", desc.Getter)
		obj.SetOwn("set", desc.Setter)
	} else {
		obj.SetOwn("value", desc.Value)
		obj.SetOwn("writable", Bool(desc.Writable))
	}
	obj.SetOwn("enumerable", Bool(desc.Enumerable))
	obj.SetOwn("configurable", Bool(desc.Configurable))
	return Value{typ: TypeObject, obj: unsafe.Pointer(obj)}
}

// FromPropertyDescriptorObject is the inverse of ToPropertyDescriptorObject,
// completing the round-trip invariant of spec.md §8.
func FromPropertyDescriptorObject(vm *VM, v Value) (PropertyDescriptor, error) {
	if !v.IsObjectLike() {
		return PropertyDescriptor{}, vm.newTypeError("Property description must be an object")
	}
	obj := v.ObjectProtocol()
	getV, hasGet := obj.GetProperty(vm, NewStringKey("get"))
	setV, hasSet := obj.GetProperty(vm, NewStringKey("set"))
	if hasGet || hasSet {
		enumerable, _ := obj.GetProperty(vm, NewStringKey("enumerable"))
		configurable, _ := obj.GetProperty(vm, NewStringKey("configurable"))
		return AccessorProperty(getV, setV, enumerable.ToBoolean(), configurable.ToBoolean()), nil
	}
	value, _ := obj.GetProperty(vm, NewStringKey("value"))
	writable, _ := obj.GetProperty(vm, NewStringKey("writable"))
	enumerable, _ := obj.GetProperty(vm, NewStringKey("enumerable"))
	configurable, _ := obj.GetProperty(vm, NewStringKey("configurable"))
	return DataProperty(value, writable.ToBoolean(), enumerable.ToBoolean(), configurable.ToBoolean()), nil
}
