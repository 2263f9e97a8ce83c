package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unsafe"
)

// ValueType tags a Value with both its ECMAScript type and, for objects,
// the exotic kind that dispatch needs in order to pick the right protocol
// override. Folding the exotic kind into the primary tag (rather than
// boxing every object behind one TypeObject and re-discriminating through
// a further type switch) keeps the common paths — property get/set,
// typeof, equality — a single dense switch.
type ValueType uint8

const (
	TypeUndefined ValueType = iota
	TypeNull
	TypeBoolean
	TypeFloatNumber
	TypeIntegerNumber // small-int fast path; numerically interchangeable with TypeFloatNumber
	TypeBigInt
	TypeString
	TypeSymbol

	// Object kinds. All satisfy the ordinary object protocol (object.go);
	// each additionally overrides some hooks (§4.3).
	TypeObject // ordinary (PlainObject)
	TypeArray
	TypeFunction // ordinary compiled function
	TypeClosure  // function + captured scope
	TypeNative   // native (host-implemented) function
	TypeBound    // bound function
	TypeArguments
	TypeRegExp
	TypeMap
	TypeSet
	TypeWeakMap
	TypeWeakSet
	TypeWeakRef
	TypeArrayBuffer
	TypeTypedArray
	TypeProxy
	TypeGenerator
	TypePromise
)

func (t ValueType) String() string {
	switch t {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeFloatNumber, TypeIntegerNumber:
		return "number"
	case TypeBigInt:
		return "bigint"
	case TypeString:
		return "string"
	case TypeSymbol:
		return "symbol"
	case TypeFunction, TypeClosure, TypeNative, TypeBound:
		return "function"
	default:
		return "object"
	}
}

// Value is a tagged union: a type tag, an inline scalar payload (bool and
// float64 bit patterns packed into payload), and a heap pointer used by
// every variant whose state doesn't fit inline (string, symbol, bigint,
// and every object kind). See DESIGN.md for why we don't also steal the
// pointer's low bit the way spec.md §4.2 allows as an option — Go's
// garbage collector cannot tolerate a tagged pointer aliasing a live heap
// object, unlike the manually-managed original this was distilled from.
type Value struct {
	typ     ValueType
	payload uint64
	obj     unsafe.Pointer
}

func (v Value) Type() ValueType { return v.typ }

var (
	Undefined = Value{typ: TypeUndefined}
	Null      = Value{typ: TypeNull}
	True      = Value{typ: TypeBoolean, payload: 1}
	False     = Value{typ: TypeBoolean, payload: 0}
)

func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

func Number(f float64) Value {
	return Value{typ: TypeFloatNumber, payload: math.Float64bits(f)}
}

func Integer(i int32) Value {
	return Value{typ: TypeIntegerNumber, payload: uint64(uint32(i))}
}

func (v Value) numberBits() float64 {
	switch v.typ {
	case TypeFloatNumber:
		return math.Float64frombits(v.payload)
	case TypeIntegerNumber:
		return float64(int32(uint32(v.payload)))
	default:
		return math.NaN()
	}
}

func (v Value) AsBool() bool     { return v.payload != 0 }
func (v Value) AsFloat() float64 { return v.numberBits() }

func (v Value) IsUndefined() bool { return v.typ == TypeUndefined }
func (v Value) IsNull() bool      { return v.typ == TypeNull }
func (v Value) IsNullish() bool   { return v.typ == TypeUndefined || v.typ == TypeNull }
func (v Value) IsNumber() bool    { return v.typ == TypeFloatNumber || v.typ == TypeIntegerNumber }
func (v Value) IsObjectLike() bool {
	return v.typ >= TypeObject
}

func (v Value) IsCallable() bool {
	switch v.typ {
	case TypeFunction, TypeClosure, TypeNative, TypeBound:
		return true
	case TypeProxy:
		return v.AsProxy().callable
	default:
		return false
	}
}

// --- ToBoolean (§4.1) ---

func (v Value) ToBoolean() bool {
	switch v.typ {
	case TypeUndefined, TypeNull:
		return false
	case TypeBoolean:
		return v.AsBool()
	case TypeFloatNumber, TypeIntegerNumber:
		f := v.numberBits()
		return f != 0 && !math.IsNaN(f)
	case TypeBigInt:
		return v.AsBigInt().Sign() != 0
	case TypeString:
		return v.AsJSString().Length() > 0
	default:
		return true // every object, including exotic kinds, is truthy
	}
}

// --- typeof (§4.1 unary) ---

func (v Value) TypeOf() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "object" // historical ECMAScript quirk, intentionally preserved
	case TypeBoolean:
		return "boolean"
	case TypeFloatNumber, TypeIntegerNumber:
		return "number"
	case TypeBigInt:
		return "bigint"
	case TypeString:
		return "string"
	case TypeSymbol:
		return "symbol"
	case TypeFunction, TypeClosure, TypeNative, TypeBound:
		return "function"
	case TypeProxy:
		if v.AsProxy().callable {
			return "function"
		}
		return "object"
	default:
		return "object"
	}
}

// --- ToPrimitive / ToNumber / ToString / ToNumeric (§4.1) ---

type hint uint8

const (
	hintDefault hint = iota
	hintNumber
	hintString
)

// ToPrimitive implements ECMA-262 §7.1.1: for objects, try @@toPrimitive,
// else valueOf then toString (or the reverse order for hintString),
// accepting the first call that returns a primitive.
func (v Value) ToPrimitive(vm *VM, h hint) (Value, error) {
	if !v.IsObjectLike() {
		return v, nil
	}
	obj := v.ObjectProtocol()
	if toPrim, ok := lookupSymbolMethod(vm, obj, vm.realm.SymbolToPrimitive); ok {
		hintStr := "default"
		switch h {
		case hintNumber:
			hintStr = "number"
		case hintString:
			hintStr = "string"
		}
		result, err := vm.Call(toPrim, v, []Value{NewString(hintStr)})
		if err != nil {
			return Undefined, err
		}
		if result.IsObjectLike() {
			return Undefined, vm.newTypeError("Cannot convert object to primitive value")
		}
		return result, nil
	}
	methods := [2]string{"valueOf", "toString"}
	if h == hintString {
		methods = [2]string{"toString", "valueOf"}
	}
	for _, name := range methods {
		m, ok := obj.GetProperty(vm, NewStringKey(name))
		if ok && m.IsCallable() {
			result, err := vm.Call(m, v, nil)
			if err != nil {
				return Undefined, err
			}
			if !result.IsObjectLike() {
				return result, nil
			}
		}
	}
	return Undefined, vm.newTypeError("Cannot convert object to primitive value")
}

func lookupSymbolMethod(vm *VM, obj ObjectLike, sym Value) (Value, bool) {
	if sym.IsUndefined() {
		return Undefined, false
	}
	m, ok := obj.GetProperty(vm, NewSymbolKey(sym))
	if !ok || !m.IsCallable() {
		return Undefined, false
	}
	return m, true
}

func (v Value) ToNumber(vm *VM) (float64, error) {
	switch v.typ {
	case TypeUndefined:
		return math.NaN(), nil
	case TypeNull:
		return 0, nil
	case TypeBoolean:
		if v.AsBool() {
			return 1, nil
		}
		return 0, nil
	case TypeFloatNumber, TypeIntegerNumber:
		return v.numberBits(), nil
	case TypeBigInt:
		return 0, vm.newTypeError("Cannot convert a BigInt value to a number")
	case TypeString:
		return stringToNumber(v.AsJSString().String()), nil
	default:
		prim, err := v.ToPrimitive(vm, hintNumber)
		if err != nil {
			return 0, err
		}
		if prim.IsObjectLike() {
			return math.NaN(), nil
		}
		return prim.ToNumber(vm)
	}
}

func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if iv, err := strconv.ParseUint(s[2:], 16, 64); err == nil {
			return float64(iv)
		}
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ToNumeric implements §7.1.3: like ToNumber, but a BigInt operand passes
// through unconverted instead of becoming NaN.
func (v Value) ToNumeric(vm *VM) (Value, error) {
	if v.typ == TypeBigInt {
		return v, nil
	}
	if v.IsObjectLike() {
		prim, err := v.ToPrimitive(vm, hintNumber)
		if err != nil {
			return Undefined, err
		}
		return prim.ToNumeric(vm)
	}
	f, err := v.ToNumber(vm)
	if err != nil {
		return Undefined, err
	}
	return Number(f), nil
}

func (v Value) ToString(vm *VM) (string, error) {
	switch v.typ {
	case TypeUndefined:
		return "undefined", nil
	case TypeNull:
		return "null", nil
	case TypeBoolean:
		return strconv.FormatBool(v.AsBool()), nil
	case TypeFloatNumber, TypeIntegerNumber:
		return formatNumber(v.numberBits()), nil
	case TypeBigInt:
		return v.AsBigInt().String(), nil
	case TypeString:
		return v.AsJSString().String(), nil
	case TypeSymbol:
		return "", vm.newTypeError("Cannot convert a Symbol value to a string")
	default:
		prim, err := v.ToPrimitive(vm, hintString)
		if err != nil {
			return "", err
		}
		if prim.IsObjectLike() {
			return "", vm.newTypeError("Cannot convert object to primitive value")
		}
		return prim.ToString(vm)
	}
}

func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if f == 0 {
		return "0" // both +0 and -0 stringify as "0"
	}
	return cleanExponentialFormat(strconv.FormatFloat(f, 'g', -1, 64))
}

// cleanExponentialFormat normalizes Go's exponent formatting ("1e-07") to
// the JS convention ("1e-7").
func cleanExponentialFormat(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == 'e' || s[i] == 'E' {
			if i+1 < len(s) && (s[i+1] == '+' || s[i+1] == '-') {
				sign := s[i+1]
				j := i + 2
				for j < len(s) && s[j] == '0' {
					j++
				}
				if j >= len(s) {
					return s[:i+2] + "0"
				}
				return s[:i+1] + string(sign) + s[j:]
			}
			break
		}
	}
	return s
}

func (v Value) ToObject(vm *VM) (Value, error) {
	if v.typ == TypeUndefined || v.typ == TypeNull {
		return Undefined, vm.newTypeError("Cannot convert undefined or null to object")
	}
	if v.IsObjectLike() {
		return v, nil
	}
	return vm.wrapPrimitive(v), nil
}

func (v Value) ToInt32(vm *VM) (int32, error) {
	f, err := v.ToNumber(vm)
	if err != nil {
		return 0, err
	}
	return toInt32(f), nil
}

func (v Value) ToUint32(vm *VM) (uint32, error) {
	f, err := v.ToNumber(vm)
	if err != nil {
		return 0, err
	}
	return toUint32(f), nil
}

func toInt32(f float64) int32 { return int32(toUint32(f)) }

func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
		return 0
	}
	m := math.Mod(math.Trunc(f), 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return uint32(m)
}

// --- Equality (§3, §8 invariant 5) ---

// StrictEquals implements `===`: variant+bit equality, NaN != NaN, +0 == -0.
func (a Value) StrictEquals(b Value) bool {
	if a.typ != b.typ {
		if a.IsNumber() && b.IsNumber() {
			return a.numberBits() == b.numberBits()
		}
		return false
	}
	switch a.typ {
	case TypeUndefined, TypeNull:
		return true
	case TypeBoolean:
		return a.payload == b.payload
	case TypeFloatNumber, TypeIntegerNumber:
		return a.numberBits() == b.numberBits() // NaN != NaN falls out of IEEE754 comparison
	case TypeBigInt:
		return a.AsBigInt().Cmp(b.AsBigInt()) == 0
	case TypeString:
		return a.AsJSString().String() == b.AsJSString().String()
	case TypeSymbol:
		return a.obj == b.obj // interned: identity compare
	default:
		return a.obj == b.obj // objects compare by handle identity
	}
}

// AbstractEquals implements `==` coercion rules (ECMA-262 §7.2.13).
func (a Value) AbstractEquals(vm *VM, b Value) (bool, error) {
	if a.typ == b.typ || (a.IsNumber() && b.IsNumber()) {
		return a.StrictEquals(b), nil
	}
	if a.IsNullish() && b.IsNullish() {
		return true, nil
	}
	if a.IsNullish() || b.IsNullish() {
		return false, nil
	}
	if a.IsNumber() && b.typ == TypeString {
		bn, err := b.ToNumber(vm)
		if err != nil {
			return false, err
		}
		return a.numberBits() == bn, nil
	}
	if a.typ == TypeString && b.IsNumber() {
		return b.AbstractEquals(vm, a)
	}
	if a.typ == TypeBigInt && b.typ == TypeString {
		bi, ok := parseBigInt(b.AsJSString().String())
		if !ok {
			return false, nil
		}
		return a.AsBigInt().Cmp(bi) == 0, nil
	}
	if a.typ == TypeString && b.typ == TypeBigInt {
		return b.AbstractEquals(vm, a)
	}
	if a.typ == TypeBoolean {
		an, _ := a.ToNumber(vm)
		return Number(an).AbstractEquals(vm, b)
	}
	if b.typ == TypeBoolean {
		bn, _ := b.ToNumber(vm)
		return a.AbstractEquals(vm, Number(bn))
	}
	if (a.IsNumber() || a.typ == TypeBigInt || a.typ == TypeString || a.typ == TypeSymbol) && b.IsObjectLike() {
		bp, err := b.ToPrimitive(vm, hintDefault)
		if err != nil {
			return false, err
		}
		return a.AbstractEquals(vm, bp)
	}
	if a.IsObjectLike() && (b.IsNumber() || b.typ == TypeBigInt || b.typ == TypeString || b.typ == TypeSymbol) {
		ap, err := a.ToPrimitive(vm, hintDefault)
		if err != nil {
			return false, err
		}
		return ap.AbstractEquals(vm, b)
	}
	if a.typ == TypeBigInt && b.IsNumber() {
		return bigIntEqualsFloat(a.AsBigInt(), b.numberBits()), nil
	}
	if a.IsNumber() && b.typ == TypeBigInt {
		return b.AbstractEquals(vm, a)
	}
	return false, nil
}

func (v Value) Inspect() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return strconv.FormatBool(v.AsBool())
	case TypeFloatNumber, TypeIntegerNumber:
		return formatNumber(v.numberBits())
	case TypeBigInt:
		return v.AsBigInt().String() + "n"
	case TypeString:
		return fmt.Sprintf("%q", v.AsJSString().String())
	case TypeSymbol:
		return "Symbol(" + v.AsSymbol().description + ")"
	default:
		return v.ObjectProtocol().DebugTag()
	}
}
