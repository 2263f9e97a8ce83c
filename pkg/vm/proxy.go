package vm

import "unsafe"

// ProxyObject is the Proxy exotic object of §4.3: every protocol operation
// is first offered to the matching trap on handler, falling back to the
// same operation on target when the trap is absent. Revoke sets the
// revoked flag: trap lookup then reports every trap absent, and
// SetPrototype, DefineProperty, SetProperty, Call and Construct fail with
// TypeError.
type ProxyObject struct {
	GCHeader
	target   Value
	handler  Value
	callable bool
	revoked  bool
}

func NewProxy(target, handler Value) Value {
	p := &ProxyObject{target: target, handler: handler, callable: target.IsCallable()}
	return Value{typ: TypeProxy, obj: unsafe.Pointer(p)}
}

func (v Value) AsProxy() *ProxyObject { return (*ProxyObject)(v.obj) }
func (p *ProxyObject) value() Value   { return Value{typ: TypeProxy, obj: unsafe.Pointer(p)} }
func (p *ProxyObject) header() *GCHeader { return &p.GCHeader }

func (p *ProxyObject) Revoke() { p.revoked = true }

func (p *ProxyObject) trap(vm *VM, name string) (Value, bool) {
	if p.revoked || p.handler.IsNullish() {
		return Undefined, false
	}
	fn, ok := p.handler.ObjectProtocol().GetProperty(vm, NewStringKey(name))
	if !ok || !fn.IsCallable() {
		return Undefined, false
	}
	return fn, true
}

func (p *ProxyObject) checkRevoked(vm *VM) error {
	if p.revoked {
		return vm.newTypeError("Cannot perform operation on a proxy that has been revoked")
	}
	return nil
}

func (p *ProxyObject) Prototype() Value {
	if fn, ok := p.trap(nil, "getPrototypeOf"); ok {
		result, err := globalVM.Call(fn, p.handler, []Value{p.target})
		if err == nil {
			return result
		}
	}
	return p.target.ObjectProtocol().Prototype()
}

func (p *ProxyObject) SetPrototype(vm *VM, proto Value) error {
	if err := p.checkRevoked(vm); err != nil {
		return err
	}
	if fn, ok := p.trap(vm, "setPrototypeOf"); ok {
		_, err := vm.Call(fn, p.handler, []Value{p.target, proto})
		return err
	}
	return p.target.ObjectProtocol().SetPrototype(vm, proto)
}

func (p *ProxyObject) IsExtensible() bool {
	return p.target.ObjectProtocol().IsExtensible()
}

func (p *ProxyObject) PreventExtensions() {
	p.target.ObjectProtocol().PreventExtensions()
}

func (p *ProxyObject) DefineProperty(vm *VM, key PropertyKey, desc PropertyDescriptor) error {
	if err := p.checkRevoked(vm); err != nil {
		return err
	}
	if fn, ok := p.trap(vm, "defineProperty"); ok {
		descObj := ToPropertyDescriptorObject(vm, desc)
		_, err := vm.Call(fn, p.handler, []Value{p.target, keyToValue(key), descObj})
		return err
	}
	return p.target.ObjectProtocol().DefineProperty(vm, key, desc)
}

func keyToValue(key PropertyKey) Value {
	if key.IsSymbol() {
		return key.sym
	}
	return NewString(key.name)
}

func (p *ProxyObject) GetOwnProperty(key PropertyKey) (PropertyDescriptor, bool) {
	if fn, ok := p.trap(globalVM, "getOwnPropertyDescriptor"); ok {
		result, err := globalVM.Call(fn, p.handler, []Value{p.target, keyToValue(key)})
		if err != nil || result.IsUndefined() {
			return PropertyDescriptor{}, false
		}
		desc, err := FromPropertyDescriptorObject(globalVM, result)
		if err != nil {
			return PropertyDescriptor{}, false
		}
		return desc, true
	}
	return p.target.ObjectProtocol().GetOwnProperty(key)
}

func (p *ProxyObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	if fn, ok := p.trap(vm, "get"); ok {
		result, err := vm.Call(fn, p.handler, []Value{p.target, keyToValue(key), p.value()})
		if err != nil {
			return Undefined, false
		}
		return result, true
	}
	return p.target.ObjectProtocol().GetProperty(vm, key)
}

func (p *ProxyObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	if err := p.checkRevoked(vm); err != nil {
		return err
	}
	if fn, ok := p.trap(vm, "set"); ok {
		_, err := vm.Call(fn, p.handler, []Value{p.target, keyToValue(key), value, receiver})
		return err
	}
	return p.target.ObjectProtocol().SetProperty(vm, key, value, receiver)
}

func (p *ProxyObject) Has(vm *VM, key PropertyKey) bool {
	if fn, ok := p.trap(vm, "has"); ok {
		result, err := vm.Call(fn, p.handler, []Value{p.target, keyToValue(key)})
		if err != nil {
			return false
		}
		return result.ToBoolean()
	}
	return p.target.ObjectProtocol().Has(vm, key)
}

func (p *ProxyObject) Delete(key PropertyKey) bool {
	if fn, ok := p.trap(globalVM, "deleteProperty"); ok {
		result, err := globalVM.Call(fn, p.handler, []Value{p.target, keyToValue(key)})
		if err != nil {
			return false
		}
		return result.ToBoolean()
	}
	return p.target.ObjectProtocol().Delete(key)
}

func (p *ProxyObject) OwnKeys() []PropertyKey {
	if fn, ok := p.trap(globalVM, "ownKeys"); ok {
		result, err := globalVM.Call(fn, p.handler, []Value{p.target})
		if err == nil && result.typ == TypeArray {
			arr := result.AsArray()
			keys := make([]PropertyKey, 0, arr.Length())
			for i := 0; i < arr.Length(); i++ {
				if v, ok := arr.GetOwnProperty(NewStringKey(itoa(i))); ok {
					if v.Value.typ == TypeString {
						keys = append(keys, NewStringKey(v.Value.AsJSString().String()))
					} else if v.Value.typ == TypeSymbol {
						keys = append(keys, NewSymbolKey(v.Value))
					}
				}
			}
			return keys
		}
	}
	return p.target.ObjectProtocol().OwnKeys()
}

func (p *ProxyObject) Call(vm *VM, this Value, args []Value) (Value, error) {
	if err := p.checkRevoked(vm); err != nil {
		return Undefined, err
	}
	if fn, ok := p.trap(vm, "apply"); ok {
		argArr := NewArray(vm.realm.ArrayPrototype).AsArray()
		for _, a := range args {
			argArr.Append(a)
		}
		return vm.Call(fn, p.handler, []Value{p.target, this, argArr.value()})
	}
	return vm.Call(p.target, this, args)
}

func (p *ProxyObject) Construct(vm *VM, args []Value, newTarget Value) (Value, error) {
	if err := p.checkRevoked(vm); err != nil {
		return Undefined, err
	}
	if fn, ok := p.trap(vm, "construct"); ok {
		argArr := NewArray(vm.realm.ArrayPrototype).AsArray()
		for _, a := range args {
			argArr.Append(a)
		}
		return vm.Call(fn, p.handler, []Value{p.target, argArr.value(), newTarget})
	}
	return vm.Construct(p.target, args, newTarget)
}

func (p *ProxyObject) DebugTag() string { return "[object Proxy]" }

func itoa(i int) string {
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
