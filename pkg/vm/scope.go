package vm

// BindingKind distinguishes var/let/const/param bindings, governing the
// redeclaration and temporal-dead-zone rules of §4.4 "Scope".
type BindingKind uint8

const (
	BindingVar BindingKind = iota
	BindingLet
	BindingConst
	BindingParam
	BindingFunction
)

// binding is one slot in a Scope: its current value, its kind, and whether
// it has been initialized yet (false between scope entry and the
// `let`/`const` declaration executing — the temporal dead zone of §4.4).
type binding struct {
	value       Value
	kind        BindingKind
	initialized bool
}

// Scope is a lexical environment record (§4.4): a flat map of bindings, a
// parent link for the enclosing scope, and a `this` slot materialized only
// where a function scope actually binds one (arrow functions skip it and
// resolve `this` through the parent chain instead).
type Scope struct {
	parent   *Scope
	bindings map[string]*binding
	this     Value
	hasThis  bool
	isModule bool
	labels   map[string]bool

	// global is set only on a Realm's root scope: a name Resolve/Assign
	// can't find in any lexical binding falls through to the global
	// object's own properties, matching §4.4's "the global scope's
	// bindings and the global object's properties are the same names".
	global *PlainObject
}

func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, bindings: make(map[string]*binding)}
}

// NewGlobalScope creates the root scope of a Realm, backed by its global
// object for unresolved lookups.
func NewGlobalScope(global *PlainObject) *Scope {
	return &Scope{bindings: make(map[string]*binding), global: global, this: global.value(), hasThis: true}
}

func NewFunctionScope(parent *Scope, this Value) *Scope {
	return &Scope{parent: parent, bindings: make(map[string]*binding), this: this, hasThis: true}
}

func NewModuleScope(parent *Scope) *Scope {
	s := NewScope(parent)
	s.isModule = true
	s.hasThis = true // module `this` is undefined, but resolved locally not via parent
	s.this = Undefined
	return s
}

// Declare creates a new binding in this scope. Redeclaring an existing
// `let`/`const` name in the same scope is a compile-time error the
// compiler is expected to have already rejected (§9 "Non-goal: compiler
// wiring"); at the VM level Declare simply overwrites, matching `var`'s
// own redeclaration-is-fine semantics and trusting upstream validation for
// the stricter kinds.
func (s *Scope) Declare(name string, kind BindingKind, initialized bool) {
	s.bindings[name] = &binding{kind: kind, initialized: initialized}
}

func (s *Scope) DeclareWith(name string, kind BindingKind, value Value) {
	s.bindings[name] = &binding{value: value, kind: kind, initialized: true}
}

// Resolve walks the scope chain outward looking for name, per §4.4
// "Resolve(name)". Returns ok=false only once the chain is exhausted
// (global unresolved bindings are a ReferenceError the caller raises).
func (s *Scope) Resolve(name string) (Value, error, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.bindings[name]; ok {
			if !b.initialized {
				return Undefined, errTDZ{name}, true
			}
			return b.value, nil, true
		}
		if sc.global != nil {
			if v, ok := sc.global.GetOwn(name); ok {
				return v, nil, true
			}
		}
	}
	return Undefined, nil, false
}

type errTDZ struct{ name string }

func (e errTDZ) Error() string { return "Cannot access '" + e.name + "' before initialization" }

// Assign walks the scope chain looking for an existing binding to write
// to, honoring const's write-once rule. When the walk reaches a Realm's
// global scope without finding one, the name is written as an own
// property of the global object and ok=true; there is no strict-mode
// check. ok=false comes only from a chain with no global scope.
func (s *Scope) Assign(vm *VM, name string, value Value) (ok bool, err error) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, found := sc.bindings[name]; found {
			if !b.initialized {
				return true, errTDZ{name}
			}
			if b.kind == BindingConst {
				return true, vm.newTypeError("Assignment to constant variable.")
			}
			b.value = value
			b.initialized = true
			return true, nil
		}
		if sc.global != nil {
			sc.global.SetOwn(name, value)
			return true, nil
		}
	}
	return false, nil
}

// Initialize marks a `let`/`const` binding's declaration as having run,
// exiting the temporal dead zone.
func (s *Scope) Initialize(name string, value Value) {
	if b, ok := s.bindings[name]; ok {
		b.value = value
		b.initialized = true
	}
}

func (s *Scope) Child() *Scope { return NewScope(s) }

// This resolves the nearest function-scope `this`, skipping arrow scopes
// that don't bind their own (§4.4 "This()").
func (s *Scope) This() Value {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.hasThis {
			return sc.this
		}
	}
	return Undefined
}

func (s *Scope) HasLabel(name string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.labels != nil && sc.labels[name] {
			return true
		}
	}
	return false
}

func (s *Scope) AddLabel(name string) {
	if s.labels == nil {
		s.labels = make(map[string]bool)
	}
	s.labels[name] = true
}
