package vm

import (
	"math"
	"unsafe"
)

// sameValueZeroKey normalizes a Value for Map/Set keying under the
// SameValueZero rule (§3 "Value"): -0 and +0 compare equal, and NaN
// compares equal to itself, unlike StrictEquals.
func sameValueZeroKey(v Value) Value {
	if v.IsNumber() {
		f := v.numberBits()
		if f == 0 {
			return Number(0)
		}
		if f != f { // NaN
			return Number(math.NaN())
		}
		return Number(f) // an Integer and a Float of equal value are one key
	}
	return v
}

// mapSlot holds one Map/Set entry plus its insertion order, mirroring the
// named-property ordering scheme in object.go.
type mapSlot struct {
	key   Value
	value Value
	order int
}

// MapObject implements the Map exotic kind (§4.3 family): insertion-ordered
// key/value pairs compared with SameValueZero.
type MapObject struct {
	Object
	entries map[Value]*mapSlot
	next    int
}

func NewMap(proto Value) Value {
	m := &MapObject{Object: newObjectBase(proto, "Map"), entries: make(map[Value]*mapSlot)}
	return Value{typ: TypeMap, obj: unsafe.Pointer(m)}
}

func (v Value) AsMap() *MapObject { return (*MapObject)(v.obj) }
func (m *MapObject) value() Value { return Value{typ: TypeMap, obj: unsafe.Pointer(m)} }

func (m *MapObject) Get(key Value) (Value, bool) {
	if slot, ok := m.entries[sameValueZeroKey(key)]; ok {
		return slot.value, true
	}
	return Undefined, false
}

func (m *MapObject) Set(key, value Value) {
	k := sameValueZeroKey(key)
	if slot, ok := m.entries[k]; ok {
		slot.value = value
		return
	}
	m.entries[k] = &mapSlot{key: key, value: value, order: m.next}
	m.next++
}

func (m *MapObject) Delete(key Value) bool {
	k := sameValueZeroKey(key)
	if _, ok := m.entries[k]; ok {
		delete(m.entries, k)
		return true
	}
	return false
}

func (m *MapObject) Contains(key Value) bool {
	_, ok := m.entries[sameValueZeroKey(key)]
	return ok
}

func (m *MapObject) Size() int { return len(m.entries) }

// OrderedEntries returns entries in insertion order, the iteration order
// Map.prototype.forEach/entries/keys/values must preserve (§4.3).
func (m *MapObject) OrderedEntries() []mapSlot {
	slots := make([]mapSlot, 0, len(m.entries))
	for _, s := range m.entries {
		slots = append(slots, *s)
	}
	sortSlotsByOrder(slots)
	return slots
}

func sortSlotsByOrder(s []mapSlot) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1].order > s[j].order; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func (m *MapObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, m.value(), key, m.value())
}
func (m *MapObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, m.value(), key, value, receiver)
}
func (m *MapObject) Has(vm *VM, key PropertyKey) bool { return hasProperty(m.value(), key) }
func (m *MapObject) DebugTag() string                 { return "[object Map]" }

// SetObject implements the Set exotic kind: insertion-ordered unique
// values compared with SameValueZero.
type SetObject struct {
	Object
	entries map[Value]*mapSlot
	next    int
}

func NewSet(proto Value) Value {
	s := &SetObject{Object: newObjectBase(proto, "Set"), entries: make(map[Value]*mapSlot)}
	return Value{typ: TypeSet, obj: unsafe.Pointer(s)}
}

func (v Value) AsSet() *SetObject { return (*SetObject)(v.obj) }
func (s *SetObject) value() Value { return Value{typ: TypeSet, obj: unsafe.Pointer(s)} }

func (s *SetObject) Add(v Value) {
	k := sameValueZeroKey(v)
	if _, ok := s.entries[k]; ok {
		return
	}
	s.entries[k] = &mapSlot{key: v, value: v, order: s.next}
	s.next++
}

func (s *SetObject) Contains(v Value) bool {
	_, ok := s.entries[sameValueZeroKey(v)]
	return ok
}

func (s *SetObject) Delete(v Value) bool {
	k := sameValueZeroKey(v)
	if _, ok := s.entries[k]; ok {
		delete(s.entries, k)
		return true
	}
	return false
}

func (s *SetObject) Size() int { return len(s.entries) }

func (s *SetObject) OrderedValues() []Value {
	slots := make([]mapSlot, 0, len(s.entries))
	for _, v := range s.entries {
		slots = append(slots, *v)
	}
	sortSlotsByOrder(slots)
	out := make([]Value, len(slots))
	for i, sl := range slots {
		out[i] = sl.key
	}
	return out
}

func (s *SetObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, s.value(), key, s.value())
}
func (s *SetObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, s.value(), key, value, receiver)
}
func (s *SetObject) Has(vm *VM, key PropertyKey) bool { return hasProperty(s.value(), key) }
func (s *SetObject) DebugTag() string                 { return "[object Set]" }

// WeakMapObject keys on object identity through WeakHandle, per §4.2's
// description of WeakMap/WeakSet as the JS-visible surface of weak
// handles: entries whose key has become unreachable are simply absent the
// next time anyone looks, with no observable finalization order.
type WeakMapObject struct {
	Object
	entries map[unsafe.Pointer]*weakMapSlot
}

type weakMapSlot struct {
	keyHandle WeakHandle
	value     Value
}

func NewWeakMap(proto Value) Value {
	w := &WeakMapObject{Object: newObjectBase(proto, "WeakMap"), entries: make(map[unsafe.Pointer]*weakMapSlot)}
	return Value{typ: TypeWeakMap, obj: unsafe.Pointer(w)}
}

func (v Value) AsWeakMap() *WeakMapObject { return (*WeakMapObject)(v.obj) }
func (w *WeakMapObject) value() Value     { return Value{typ: TypeWeakMap, obj: unsafe.Pointer(w)} }

func (w *WeakMapObject) Set(vm *VM, key, value Value) error {
	if !key.IsObjectLike() {
		return vm.newTypeError("Invalid value used as weak map key")
	}
	h := key.ObjectProtocol().header()
	w.entries[key.obj] = &weakMapSlot{keyHandle: NewWeakHandle(h, key.obj), value: value}
	return nil
}

func (w *WeakMapObject) Get(key Value) (Value, bool) {
	if slot, ok := w.entries[key.obj]; ok {
		if _, live := slot.keyHandle.Upgrade(); live {
			return slot.value, true
		}
	}
	return Undefined, false
}

func (w *WeakMapObject) Contains(key Value) bool {
	_, ok := w.Get(key)
	return ok
}

func (w *WeakMapObject) Delete(key Value) bool {
	if _, ok := w.entries[key.obj]; ok {
		delete(w.entries, key.obj)
		return true
	}
	return false
}

func (w *WeakMapObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, w.value(), key, w.value())
}
func (w *WeakMapObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, w.value(), key, value, receiver)
}
func (w *WeakMapObject) Has(vm *VM, key PropertyKey) bool { return hasProperty(w.value(), key) }
func (w *WeakMapObject) DebugTag() string                 { return "[object WeakMap]" }

// WeakSetObject mirrors WeakMapObject for unique weakly-held members.
type WeakSetObject struct {
	Object
	entries map[unsafe.Pointer]WeakHandle
}

func NewWeakSet(proto Value) Value {
	w := &WeakSetObject{Object: newObjectBase(proto, "WeakSet"), entries: make(map[unsafe.Pointer]WeakHandle)}
	return Value{typ: TypeWeakSet, obj: unsafe.Pointer(w)}
}

func (v Value) AsWeakSet() *WeakSetObject { return (*WeakSetObject)(v.obj) }
func (w *WeakSetObject) value() Value     { return Value{typ: TypeWeakSet, obj: unsafe.Pointer(w)} }

func (w *WeakSetObject) Add(vm *VM, v Value) error {
	if !v.IsObjectLike() {
		return vm.newTypeError("Invalid value used in weak set")
	}
	w.entries[v.obj] = NewWeakHandle(v.ObjectProtocol().header(), v.obj)
	return nil
}

func (w *WeakSetObject) Contains(v Value) bool {
	if h, ok := w.entries[v.obj]; ok {
		_, live := h.Upgrade()
		return live
	}
	return false
}

func (w *WeakSetObject) Delete(v Value) bool {
	if _, ok := w.entries[v.obj]; ok {
		delete(w.entries, v.obj)
		return true
	}
	return false
}

func (w *WeakSetObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, w.value(), key, w.value())
}
func (w *WeakSetObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, w.value(), key, value, receiver)
}
func (w *WeakSetObject) Has(vm *VM, key PropertyKey) bool { return hasProperty(w.value(), key) }
func (w *WeakSetObject) DebugTag() string                 { return "[object WeakSet]" }

// WeakRefObject is a single weak reference with a `deref` operation, §4.2's
// simplest WeakHandle consumer.
type WeakRefObject struct {
	Object
	target WeakHandle
	kind   ValueType
}

func NewWeakRef(vm *VM, proto, target Value) (Value, error) {
	if !target.IsObjectLike() {
		return Undefined, vm.newTypeError("Invalid target for WeakRef")
	}
	w := &WeakRefObject{Object: newObjectBase(proto, "WeakRef"), target: NewWeakHandle(target.ObjectProtocol().header(), target.obj), kind: target.typ}
	return Value{typ: TypeWeakRef, obj: unsafe.Pointer(w)}, nil
}

func (v Value) AsWeakRef() *WeakRefObject { return (*WeakRefObject)(v.obj) }
func (w *WeakRefObject) value() Value     { return Value{typ: TypeWeakRef, obj: unsafe.Pointer(w)} }

func (w *WeakRefObject) Deref() (Value, bool) {
	ptr, live := w.target.Upgrade()
	if !live {
		return Undefined, false
	}
	return Value{typ: w.kind, obj: ptr}, true
}

func (w *WeakRefObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, w.value(), key, w.value())
}
func (w *WeakRefObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, w.value(), key, value, receiver)
}
func (w *WeakRefObject) Has(vm *VM, key PropertyKey) bool { return hasProperty(w.value(), key) }
func (w *WeakRefObject) DebugTag() string                 { return "[object WeakRef]" }
