package vm

import (
	"strconv"
	"unsafe"
)

// ArrayObject is the Array exotic object of §4.3: a dense "continuous"
// array part with a length slot linked to it, promoted to a sparse
// index->descriptor map once a hole or a non-default descriptor appears.
// Which demotion threshold to use is left to us by spec.md §9's open
// question; we demote as soon as either condition is observed, the
// simplest rule that preserves the required observable behavior.
type ArrayObject struct {
	Object
	elements   []Value // continuous storage with no holes; undefined values are stored as-is
	continuous bool
	sparse     map[int]PropertyDescriptor
	length     int
}

func NewArray(proto Value) Value {
	arr := &ArrayObject{
		Object:     newObjectBase(proto, "Array"),
		continuous: true,
	}
	return Value{typ: TypeArray, obj: unsafe.Pointer(arr)}
}

func (v Value) AsArray() *ArrayObject { return (*ArrayObject)(v.obj) }

func (a *ArrayObject) value() Value { return Value{typ: TypeArray, obj: unsafe.Pointer(a)} }

func (a *ArrayObject) Length() int { return a.length }

// Append pushes onto the continuous part when possible, matching §4.3's
// "O(1) slot write or push" rule.
func (a *ArrayObject) Append(v Value) {
	if a.continuous {
		a.elements = append(a.elements, v)
		a.length = len(a.elements)
		return
	}
	a.sparse[a.length] = DataProperty(v, true, true, true)
	a.length++
}

func arrayIndex(key PropertyKey) (int, bool) {
	if key.IsSymbol() {
		return 0, false
	}
	n, err := strconv.ParseUint(key.name, 10, 32)
	if err != nil {
		return 0, false
	}
	if strconv.FormatUint(n, 10) != key.name { // reject "01", "+1", etc.
		return 0, false
	}
	if n >= 1<<32-1 {
		return 0, false
	}
	return int(n), true
}

// demoteToSparse migrates the continuous part into the index map, used the
// first time a hole or a non-default descriptor is written.
func (a *ArrayObject) demoteToSparse() {
	if !a.continuous {
		return
	}
	a.sparse = make(map[int]PropertyDescriptor, len(a.elements))
	for i, v := range a.elements {
		a.sparse[i] = DataProperty(v, true, true, true)
	}
	a.elements = nil
	a.continuous = false
}

// GetOwnProperty overrides Object's to also answer for integer indices
// (routed to the array part, never the named map, per §9 "Property-key
// hashing") and the linked `length` property.
func (a *ArrayObject) GetOwnProperty(key PropertyKey) (PropertyDescriptor, bool) {
	if !key.IsSymbol() && key.name == "length" {
		return DataProperty(Number(float64(a.length)), true, false, false), true
	}
	if idx, ok := arrayIndex(key); ok {
		if a.continuous {
			if idx < len(a.elements) {
				return DataProperty(a.elements[idx], true, true, true), true
			}
			return PropertyDescriptor{}, false
		}
		desc, ok := a.sparse[idx]
		return desc, ok
	}
	return a.Object.GetOwnProperty(key)
}

// DefineProperty implements the array-part write rule of §4.3 item 1, plus
// the length-linkage invariants of §3 invariant 5.
func (a *ArrayObject) DefineProperty(vm *VM, key PropertyKey, desc PropertyDescriptor) error {
	if !key.IsSymbol() && key.name == "length" {
		if desc.IsAccessor {
			return vm.newTypeError("Cannot redefine array length as an accessor")
		}
		newLen, err := desc.Value.ToUint32(vm)
		if err != nil {
			return err
		}
		return a.setLength(vm, int(newLen))
	}
	if idx, ok := arrayIndex(key); ok {
		isDefault := !desc.IsAccessor && desc.Writable && desc.Enumerable && desc.Configurable
		if a.continuous && isDefault && idx <= len(a.elements) {
			if idx == len(a.elements) {
				a.elements = append(a.elements, desc.Value)
			} else {
				a.elements[idx] = desc.Value
			}
			if idx+1 > a.length {
				a.length = idx + 1
			}
			return nil
		}
		a.demoteToSparse()
		a.sparse[idx] = desc
		if idx+1 > a.length {
			a.length = idx + 1
		}
		return nil
	}
	return a.Object.DefineProperty(vm, key, desc)
}

// setLength implements §3 invariant 5's truncation rule: setting length=N
// deletes all index properties >= N.
func (a *ArrayObject) setLength(vm *VM, n int) error {
	if n < 0 {
		return vm.newRangeError("Invalid array length")
	}
	if n < a.length {
		if a.continuous {
			if n < len(a.elements) {
				a.elements = a.elements[:n]
			}
		} else {
			for idx := range a.sparse {
				if idx >= n {
					delete(a.sparse, idx)
				}
			}
		}
	} else if n > a.length && a.continuous {
		// growing past the continuous tail leaves a hole: demote.
		if n > len(a.elements) {
			a.demoteToSparse()
		}
	}
	a.length = n
	return nil
}

func (a *ArrayObject) Delete(key PropertyKey) bool {
	if idx, ok := arrayIndex(key); ok {
		a.demoteToSparse()
		delete(a.sparse, idx)
		return true
	}
	return a.Object.Delete(key)
}

func (a *ArrayObject) OwnKeys() []PropertyKey {
	keys := make([]PropertyKey, 0, a.length+1)
	if a.continuous {
		for i := range a.elements {
			keys = append(keys, NewStringKey(strconv.Itoa(i)))
		}
	} else {
		indices := make([]int, 0, len(a.sparse))
		for idx := range a.sparse {
			indices = append(indices, idx)
		}
		sortInts(indices)
		for _, idx := range indices {
			keys = append(keys, NewStringKey(strconv.Itoa(idx)))
		}
	}
	keys = append(keys, NewStringKey("length"))
	return append(keys, a.Object.OwnKeys()...)
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func (a *ArrayObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, a.value(), key, a.value())
}

func (a *ArrayObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, a.value(), key, value, receiver)
}

func (a *ArrayObject) Has(vm *VM, key PropertyKey) bool {
	return hasProperty(a.value(), key)
}

func (a *ArrayObject) DebugTag() string { return "[object Array]" }
