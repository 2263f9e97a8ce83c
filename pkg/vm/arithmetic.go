package vm

import (
	"math"
	"math/big"
)

// binaryOp implements the arithmetic/bitwise operators of §4.1 for the
// AccReg instruction family (lhs, rhs already resolved to Values). String
// concatenation for `+` and the Number/BigInt split for every operator are
// handled here so both the AccReg and RegReg opcode families share one
// implementation.
func (vm *VM) binaryOp(op OpCode, lhs, rhs Value) (Value, error) {
	if op == OpAdd {
		lp, err := lhs.ToPrimitive(vm, hintDefault)
		if err != nil {
			return Undefined, err
		}
		rp, err := rhs.ToPrimitive(vm, hintDefault)
		if err != nil {
			return Undefined, err
		}
		if lp.typ == TypeString || rp.typ == TypeString {
			ls, err := lp.ToString(vm)
			if err != nil {
				return Undefined, err
			}
			rs, err := rp.ToString(vm)
			if err != nil {
				return Undefined, err
			}
			return NewString(ls + rs), nil
		}
		lhs, rhs = lp, rp
	}

	ln, err := lhs.ToNumeric(vm)
	if err != nil {
		return Undefined, err
	}
	rn, err := rhs.ToNumeric(vm)
	if err != nil {
		return Undefined, err
	}
	if ln.typ == TypeBigInt || rn.typ == TypeBigInt {
		if ln.typ != rn.typ {
			return Undefined, vm.newTypeError("Cannot mix BigInt and other types, use explicit conversions")
		}
		return bigIntBinaryOp(vm, op, ln.AsBigInt(), rn.AsBigInt())
	}

	a, b := ln.AsFloat(), rn.AsFloat()
	switch op {
	case OpAdd:
		return Number(a + b), nil
	case OpSub:
		return Number(a - b), nil
	case OpMul:
		return Number(a * b), nil
	case OpDiv:
		return Number(a / b), nil
	case OpMod:
		return Number(math.Mod(a, b)), nil
	case OpExp:
		return Number(math.Pow(a, b)), nil
	case OpBitAnd:
		return Integer(toInt32(a) & toInt32(b)), nil
	case OpBitOr:
		return Integer(toInt32(a) | toInt32(b)), nil
	case OpBitXor:
		return Integer(toInt32(a) ^ toInt32(b)), nil
	case OpShl:
		return Integer(toInt32(a) << (toUint32(b) & 31)), nil
	case OpShr:
		return Integer(toInt32(a) >> (toUint32(b) & 31)), nil
	case OpUShr:
		return Number(float64(toUint32(a) >> (toUint32(b) & 31))), nil
	default:
		return Undefined, vm.newInternalError("unsupported binary operator")
	}
}

// compare implements the relational operators of §4.1 via ECMA-262's
// abstract relational comparison (§7.2.12): string operands compare
// lexicographically, everything else coerces to Numeric first.
func (vm *VM) compare(op OpCode, lhs, rhs Value) (Value, error) {
	lp, err := lhs.ToPrimitive(vm, hintNumber)
	if err != nil {
		return Undefined, err
	}
	rp, err := rhs.ToPrimitive(vm, hintNumber)
	if err != nil {
		return Undefined, err
	}
	if lp.typ == TypeString && rp.typ == TypeString {
		ls, rs := lp.AsJSString().String(), rp.AsJSString().String()
		var less, equal bool
		if ls < rs {
			less = true
		} else if ls == rs {
			equal = true
		}
		return Bool(relResult(op, less, equal, false)), nil
	}
	ln, err := lp.ToNumeric(vm)
	if err != nil {
		return Undefined, err
	}
	rn, err := rp.ToNumeric(vm)
	if err != nil {
		return Undefined, err
	}
	if ln.typ == TypeBigInt || rn.typ == TypeBigInt {
		if ln.typ == rn.typ {
			c := ln.AsBigInt().Cmp(rn.AsBigInt())
			return Bool(relResult(op, c < 0, c == 0, false)), nil
		}
		// mixed BigInt/Number comparison is allowed (only arithmetic forbids it)
		lf := bigIntOrFloat(ln)
		rf := bigIntOrFloat(rn)
		if math.IsNaN(lf) || math.IsNaN(rf) {
			return Bool(relResult(op, false, false, true)), nil
		}
		return Bool(relResult(op, lf < rf, lf == rf, false)), nil
	}
	a, b := ln.AsFloat(), rn.AsFloat()
	if math.IsNaN(a) || math.IsNaN(b) {
		return Bool(relResult(op, false, false, true)), nil
	}
	return Bool(relResult(op, a < b, a == b, false)), nil
}

func bigIntOrFloat(v Value) float64 {
	if v.typ == TypeBigInt {
		f := new(big.Float).SetInt(v.AsBigInt())
		r, _ := f.Float64()
		return r
	}
	return v.AsFloat()
}

func relResult(op OpCode, less, equal, nan bool) bool {
	if nan {
		return false
	}
	switch op {
	case OpLt:
		return less
	case OpLte:
		return less || equal
	case OpGt:
		return !less && !equal
	case OpGte:
		return !less
	default:
		return false
	}
}

// instanceOf implements the `instanceof` operator: Symbol.hasInstance on
// the RHS if present (§4.1), else the default walk of LHS's prototype
// chain against RHS's `prototype` own property.
func (vm *VM) instanceOf(lhs, rhs Value) (bool, error) {
	if !rhs.IsObjectLike() {
		return false, vm.newTypeError("Right-hand side of 'instanceof' is not an object")
	}
	if hasInst, ok := rhs.ObjectProtocol().GetProperty(vm, NewSymbolKey(vm.realm.WellKnown.HasInstance)); ok && hasInst.IsCallable() {
		result, err := vm.Call(hasInst, rhs, []Value{lhs})
		if err != nil {
			return false, err
		}
		return result.ToBoolean(), nil
	}
	if !rhs.IsCallable() {
		return false, vm.newTypeError("Right-hand side of 'instanceof' is not callable")
	}
	protoVal, ok := rhs.ObjectProtocol().GetProperty(vm, NewStringKey("prototype"))
	if !ok || !protoVal.IsObjectLike() {
		return false, vm.newTypeError("Function has non-object prototype in instanceof check")
	}
	if !lhs.IsObjectLike() {
		return false, nil
	}
	for p := lhs.ObjectProtocol().Prototype(); p.IsObjectLike(); p = p.ObjectProtocol().Prototype() {
		if p.StrictEquals(protoVal) {
			return true, nil
		}
	}
	return false, nil
}
