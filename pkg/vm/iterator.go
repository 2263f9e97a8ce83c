package vm

// iterResult builds the {value, done} record the iterator protocol of
// §4.1 ("for-of / spread drive any iterable through @@iterator") returns
// from each `next()` call.
func iterResult(vm *VM, value Value, done bool) Value {
	obj := NewObject(vm.realm.ObjectPrototype).AsPlainObject()
	obj.SetOwn("value", value)
	obj.SetOwn("done", Bool(done))
	return obj.value()
}

// installIteratorProtocols wires a default @@iterator onto the Array,
// String, Map, Set and TypedArray prototypes. Arguments objects are created
// with ObjectPrototype and get no @@iterator here; Array's iterator accepts
// an Arguments receiver only when called on one explicitly. A full Iterator
// helper surface (map/filter/take on the iterator itself) is an init-script
// concern, out of this core's scope (§9 Non-goal: builtin method library).
func installIteratorProtocols(r *Realm) {
	iterKey := NewSymbolKey(r.WellKnown.Iterator)

	installNative(r, r.ArrayPrototype, iterKey, "[Symbol.iterator]", func(vm *VM, this Value, args []Value) (Value, error) {
		if this.typ != TypeArray && this.typ != TypeArguments {
			return Undefined, vm.newTypeError("Array iterator called on incompatible receiver")
		}
		i := 0
		return makeNativeIterator(vm, func() (Value, bool) {
			length := arrayLikeLength(this)
			if i >= length {
				return Undefined, true
			}
			v, _ := vm.getProperty(this, NewStringKey(itoaIter(i)))
			i++
			return v, false
		}), nil
	})

	installNative(r, r.StringPrototype, iterKey, "[Symbol.iterator]", func(vm *VM, this Value, args []Value) (Value, error) {
		s, err := this.ToString(vm)
		if err != nil {
			return Undefined, err
		}
		runes := []rune(s)
		i := 0
		return makeNativeIterator(vm, func() (Value, bool) {
			if i >= len(runes) {
				return Undefined, true
			}
			v := NewString(string(runes[i]))
			i++
			return v, false
		}), nil
	})

	installNative(r, r.MapPrototype, iterKey, "[Symbol.iterator]", func(vm *VM, this Value, args []Value) (Value, error) {
		if this.typ != TypeMap {
			return Undefined, vm.newTypeError("Map iterator called on incompatible receiver")
		}
		entries := this.AsMap().OrderedEntries()
		i := 0
		return makeNativeIterator(vm, func() (Value, bool) {
			if i >= len(entries) {
				return Undefined, true
			}
			e := entries[i]
			i++
			pair := NewArray(r.ArrayPrototype).AsArray()
			pair.Append(e.key)
			pair.Append(e.value)
			return pair.value(), false
		}), nil
	})

	installNative(r, r.SetPrototype, iterKey, "[Symbol.iterator]", func(vm *VM, this Value, args []Value) (Value, error) {
		if this.typ != TypeSet {
			return Undefined, vm.newTypeError("Set iterator called on incompatible receiver")
		}
		values := this.AsSet().OrderedValues()
		i := 0
		return makeNativeIterator(vm, func() (Value, bool) {
			if i >= len(values) {
				return Undefined, true
			}
			v := values[i]
			i++
			return v, false
		}), nil
	})

	installNative(r, r.TypedArrayPrototype, iterKey, "[Symbol.iterator]", func(vm *VM, this Value, args []Value) (Value, error) {
		if this.typ != TypeTypedArray {
			return Undefined, vm.newTypeError("TypedArray iterator called on incompatible receiver")
		}
		ta := this.AsTypedArray()
		i := 0
		return makeNativeIterator(vm, func() (Value, bool) {
			v, ok := ta.At(i)
			if !ok {
				return Undefined, true
			}
			i++
			return v, false
		}), nil
	})
}

// installNative adds a non-enumerable own method to a fresh intrinsic
// prototype during bootstrap, before a *VM exists to drive the general
// DefineProperty path (whose error branch needs one only for already-
// occupied/non-extensible slots, never true here).
func installNative(r *Realm, proto Value, key PropertyKey, name string, fn NativeFn) {
	o := proto.AsPlainObject()
	nf := NewNativeFunction(r.FunctionPrototype, name, 0, fn)
	o.named[key.mapKey()] = &propSlot{desc: DataProperty(nf, true, false, true), order: o.nextOrder}
	o.nextOrder++
}

func arrayLikeLength(v Value) int {
	switch v.typ {
	case TypeArray:
		return v.AsArray().Length()
	case TypeArguments:
		l, _ := v.ObjectProtocol().GetProperty(globalVM, NewStringKey("length"))
		return int(l.AsFloat())
	default:
		return 0
	}
}

func itoaIter(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// makeNativeIterator wraps a Go closure producing (value, done) pairs as a
// JS iterator object: a plain object whose own `next` method calls back
// into the closure, matching how real engines implement a "native
// iterator" without allocating a full user-visible class for it.
func makeNativeIterator(vm *VM, nextFn func() (Value, bool)) Value {
	obj := NewObject(vm.realm.ObjectPrototype).AsPlainObject()
	next := NewNativeFunction(vm.realm.FunctionPrototype, "next", 0, func(vm *VM, this Value, args []Value) (Value, error) {
		v, done := nextFn()
		return iterResult(vm, v, done), nil
	})
	obj.SetOwn("next", next)
	selfIter := NewNativeFunction(vm.realm.FunctionPrototype, "[Symbol.iterator]", 0, func(vm *VM, this Value, args []Value) (Value, error) {
		return this, nil
	})
	obj.DefineProperty(vm, NewSymbolKey(vm.realm.WellKnown.Iterator), DataProperty(selfIter, true, false, true))
	return obj.value()
}

// getIterator resolves v's @@iterator and invokes it (§4.1's iteration
// protocol entry point), boxing primitives as needed so String's
// @@iterator is reachable on a bare string value.
func (vm *VM) getIterator(v Value) (Value, error) {
	method, err := vm.getProperty(v, NewSymbolKey(vm.realm.WellKnown.Iterator))
	if err != nil {
		return Undefined, err
	}
	if !method.IsCallable() {
		return Undefined, vm.newTypeError(v.TypeOf() + " is not iterable")
	}
	return vm.Call(method, v, nil)
}

// iteratorNext drives one step of an iterator object, returning its
// done/value pair.
func (vm *VM) iteratorNext(iterator Value) (done bool, value Value, err error) {
	nextFn, err := vm.getProperty(iterator, NewStringKey("next"))
	if err != nil {
		return false, Undefined, err
	}
	if !nextFn.IsCallable() {
		return false, Undefined, vm.newTypeError("iterator.next is not a function")
	}
	result, err := vm.Call(nextFn, iterator, nil)
	if err != nil {
		return false, Undefined, err
	}
	return decodeIterResult(vm, result)
}

// forOfEach drives an iterable to completion, calling fn for each
// produced value; an error returned by fn closes the iterator (calling
// .return() if present) before propagating, per §4.1's loop-exit rule.
func (vm *VM) forOfEach(iterable Value, fn func(Value) error) error {
	iterator, err := vm.getIterator(iterable)
	if err != nil {
		return err
	}
	for {
		done, value, err := vm.iteratorNext(iterator)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err := fn(value); err != nil {
			vm.closeIterator(iterator)
			return err
		}
	}
}

func (vm *VM) closeIterator(iterator Value) {
	ret, err := vm.getProperty(iterator, NewStringKey("return"))
	if err != nil || !ret.IsCallable() {
		return
	}
	_, _ = vm.Call(ret, iterator, nil)
}
