package vm

import (
	"jscore/pkg/modules"
)

// LogSink is the structured-logging surface a host embeds to observe
// engine internals without this core depending on any particular logging
// library. The task queue reports uncaught async-task errors through it;
// nothing else in this core logs.
type LogSink interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogSink struct{}

func (nopLogSink) Debugf(string, ...any) {}
func (nopLogSink) Warnf(string, ...any)  {}
func (nopLogSink) Errorf(string, ...any) {}

// Realm is the global execution context of §4.4 "Realm": one global
// object, one set of intrinsic prototypes, one well-known-symbol set, one
// module registry, and the task queue every async operation enqueues onto.
// Two Realms never share object identity even for intrinsics that look
// identical (`{}` from realm A has a different Object.prototype than `{}`
// from realm B) — the well-known per-Realm isolation rule of §9.
type Realm struct {
	Global      *PlainObject
	GlobalScope *Scope

	ObjectPrototype   Value
	FunctionPrototype Value
	ArrayPrototype    Value
	StringPrototype   Value
	NumberPrototype   Value
	BooleanPrototype  Value
	SymbolPrototype   Value
	BigIntPrototype   Value
	ErrorPrototype    Value
	RegExpPrototype   Value
	MapPrototype      Value
	SetPrototype      Value
	WeakMapPrototype  Value
	WeakSetPrototype  Value
	WeakRefPrototype  Value
	PromisePrototype  Value
	GeneratorPrototype Value
	ArrayBufferPrototype Value
	TypedArrayPrototype  Value

	ErrorConstructors map[string]Value // "TypeError" -> that kind's prototype object (chained to ErrorPrototype), etc.

	WellKnown      WellKnownSymbols
	SymbolRegistry *SymbolRegistry
	SymbolToPrimitive Value // == WellKnown.ToPrimitive, hoisted for value.go's hot path

	Modules  *modules.Registry
	Resolver *modules.Chain

	Tasks *TaskQueue
	Log   LogSink

	GC *Collector
}

// NewRealm allocates a Realm with its two-phase intrinsic bootstrap:
// phase one allocates Object.prototype first and every other prototype
// object already linked to it, plus the well-known symbols, the global
// object and the global scope; phase two adds the Error subclass
// prototypes and installs the iterator, Promise and generator protocols.
func NewRealm() *Realm {
	r := &Realm{
		ErrorConstructors: make(map[string]Value),
		SymbolRegistry:    newSymbolRegistry(),
		Modules:           modules.NewRegistry(),
		Resolver:          modules.NewChain(),
		GC:                NewCollector(),
		Log:               nopLogSink{},
	}
	r.bootstrapPhaseOne()
	r.Tasks = NewTaskQueue(r)
	r.bootstrapPhaseTwo()
	return r
}

// bootstrapPhaseOne allocates Object.prototype with a Null prototype link
// and every other intrinsic prototype object linked directly to it.
func (r *Realm) bootstrapPhaseOne() {
	r.ObjectPrototype = NewObject(Null)
	r.FunctionPrototype = NewObject(r.ObjectPrototype)
	r.ArrayPrototype = NewObject(r.ObjectPrototype)
	r.StringPrototype = NewObject(r.ObjectPrototype)
	r.NumberPrototype = NewObject(r.ObjectPrototype)
	r.BooleanPrototype = NewObject(r.ObjectPrototype)
	r.SymbolPrototype = NewObject(r.ObjectPrototype)
	r.BigIntPrototype = NewObject(r.ObjectPrototype)
	r.ErrorPrototype = NewObject(r.ObjectPrototype)
	r.RegExpPrototype = NewObject(r.ObjectPrototype)
	r.MapPrototype = NewObject(r.ObjectPrototype)
	r.SetPrototype = NewObject(r.ObjectPrototype)
	r.WeakMapPrototype = NewObject(r.ObjectPrototype)
	r.WeakSetPrototype = NewObject(r.ObjectPrototype)
	r.WeakRefPrototype = NewObject(r.ObjectPrototype)
	r.PromisePrototype = NewObject(r.ObjectPrototype)
	r.GeneratorPrototype = NewObject(r.ObjectPrototype)
	r.ArrayBufferPrototype = NewObject(r.ObjectPrototype)
	r.TypedArrayPrototype = NewObject(r.ObjectPrototype)

	r.WellKnown = newWellKnownSymbols()
	r.SymbolToPrimitive = r.WellKnown.ToPrimitive

	r.Global = NewObject(r.ObjectPrototype).AsPlainObject()
	r.GlobalScope = NewGlobalScope(r.Global)
}

// bootstrapPhaseTwo installs the handful of cross-prototype wirings that
// need every prototype object to already exist (e.g. Error subclass
// prototypes chaining to Error.prototype). Intrinsic *methods* (e.g.
// Array.prototype.map) are installed by the embedder's init script, out
// of this core's scope (§9 Non-goals).
func (r *Realm) bootstrapPhaseTwo() {
	for _, name := range []string{"TypeError", "RangeError", "ReferenceError", "SyntaxError", "URIError", "EvalError"} {
		proto := NewObject(r.ErrorPrototype)
		r.ErrorConstructors[name] = proto
	}
	installIteratorProtocols(r)
	installPromiseProtocol(r)
	installGeneratorProtocol(r)
}

// NewError constructs a plain Error-kind object with a message property,
// the shape pkg/errors.Thrown implementations wrap into a throw value.
func (r *Realm) NewError(kind, message string) Value {
	proto := r.ErrorPrototype
	if p, ok := r.ErrorConstructors[kind]; ok {
		proto = p
	}
	obj := NewObject(proto).AsPlainObject()
	obj.SetOwn("message", NewString(message))
	obj.SetOwn("name", NewString(kind))
	return obj.value()
}
