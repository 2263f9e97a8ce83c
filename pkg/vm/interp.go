package vm

import "math/big"

// Register-pair operand packing: several opcodes need more than one
// register/constant index per instruction word. Rather than widening
// Instruction, two 16-bit halves of the B operand carry a pair — plenty
// for maxRegisters (256) and the constant pool sizes a single function
// body produces.
func packAB(a, b int32) int32      { return (a << 16) | (b & 0xFFFF) }
func unpackAB(x int32) (int32, int32) { return x >> 16, int32(int16(x & 0xFFFF)) }

// exec executes one instruction and returns the next pc (for a plain
// fallthrough, f.pc+1) together with a control signal. Jumps set next
// directly and continue. OpReturn and OpHalt produce signalReturn;
// OpThrow and any instruction that fails produce signalThrow; OpYield,
// OpAwait and OpYieldStar produce either when resumed with a return or a
// throw.
func (vm *VM) exec(f *frame, ins Instruction) (int, controlSignal) {
	next := f.pc + 1
	none := controlSignal{}

	switch ins.Op {
	case OpNop:
		// no-op

	case OpLoadConst:
		v, err := vm.loadConst(f, ins.A)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		vm.acc = v
	case OpLoadReg:
		vm.acc = f.regs[ins.A]
	case OpStoreReg:
		f.regs[ins.A] = vm.acc
	case OpLoadVar:
		name := f.code.Data.VarNames[ins.A]
		v, err, ok := f.scope.Resolve(name)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		if !ok {
			return next, vm.throwSignal(vm.newReferenceError(name + " is not defined"))
		}
		vm.acc = v
	case OpStoreVar:
		name := f.code.Data.VarNames[ins.A]
		ok, err := f.scope.Assign(vm, name, vm.acc)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		if !ok {
			f.scope.DeclareWith(name, BindingVar, vm.acc)
		}
	case OpDeclareVar:
		name := f.code.Data.VarNames[ins.A]
		kind := BindingKind(ins.B)
		if kind == BindingVar || kind == BindingFunction {
			f.scope.DeclareWith(name, kind, vm.acc)
		} else {
			f.scope.Declare(name, kind, false)
		}
	case OpLoadUndefined:
		vm.acc = Undefined
	case OpLoadNull:
		vm.acc = Null
	case OpLoadTrue:
		vm.acc = True
	case OpLoadFalse:
		vm.acc = False
	case OpLoadThis:
		vm.acc = f.scope.This()

	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpExp,
		OpBitAnd, OpBitOr, OpBitXor, OpShl, OpShr, OpUShr:
		r, err := vm.binaryOp(ins.Op, f.regs[ins.A], vm.acc)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		vm.acc = r
	case OpAddRR, OpSubRR, OpMulRR, OpDivRR, OpModRR, OpExpRR,
		OpBitAndRR, OpBitOrRR, OpBitXorRR, OpShlRR, OpShrRR, OpUShrRR:
		dest := ins.A
		lreg, rreg := unpackAB(ins.B)
		r, err := vm.binaryOp(rrBaseOp(ins.Op), f.regs[lreg], f.regs[rreg])
		if err != nil {
			return next, vm.throwSignal(err)
		}
		f.regs[dest] = r

	case OpNeg:
		n, err := vm.acc.ToNumeric(vm)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		if n.typ == TypeBigInt {
			vm.acc = NewBigInt(new(big.Int).Neg(n.AsBigInt()))
		} else {
			vm.acc = Number(-n.AsFloat())
		}
	case OpBitNot:
		n, err := vm.acc.ToNumeric(vm)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		if n.typ == TypeBigInt {
			vm.acc = NewBigInt(new(big.Int).Not(n.AsBigInt()))
		} else {
			i, _ := n.ToInt32(vm)
			vm.acc = Integer(^i)
		}
	case OpNot:
		vm.acc = Bool(!vm.acc.ToBoolean())
	case OpTypeof:
		vm.acc = NewString(vm.acc.TypeOf())
	case OpInc:
		n, err := vm.acc.ToNumeric(vm)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		if n.typ == TypeBigInt {
			vm.acc = NewBigInt(new(big.Int).Add(n.AsBigInt(), big.NewInt(1)))
		} else {
			vm.acc = Number(n.AsFloat() + 1)
		}
	case OpDec:
		n, err := vm.acc.ToNumeric(vm)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		if n.typ == TypeBigInt {
			vm.acc = NewBigInt(new(big.Int).Sub(n.AsBigInt(), big.NewInt(1)))
		} else {
			vm.acc = Number(n.AsFloat() - 1)
		}

	case OpEq:
		eq, err := f.regs[ins.A].AbstractEquals(vm, vm.acc)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		vm.acc = Bool(eq)
	case OpNeq:
		eq, err := f.regs[ins.A].AbstractEquals(vm, vm.acc)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		vm.acc = Bool(!eq)
	case OpStrictEq:
		vm.acc = Bool(f.regs[ins.A].StrictEquals(vm.acc))
	case OpStrictNeq:
		vm.acc = Bool(!f.regs[ins.A].StrictEquals(vm.acc))
	case OpLt, OpLte, OpGt, OpGte:
		r, err := vm.compare(ins.Op, f.regs[ins.A], vm.acc)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		vm.acc = r
	case OpInstanceOf:
		r, err := vm.instanceOf(f.regs[ins.A], vm.acc)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		vm.acc = Bool(r)
	case OpIn:
		if !vm.acc.IsObjectLike() {
			return next, vm.throwSignal(vm.newTypeError("Cannot use 'in' operator on a non-object"))
		}
		key, err := toPropertyKey(vm, f.regs[ins.A])
		if err != nil {
			return next, vm.throwSignal(err)
		}
		vm.acc = Bool(vm.acc.ObjectProtocol().Has(vm, key))

	case OpJump:
		return int(ins.A), none
	case OpJumpIfFalse:
		if !vm.acc.ToBoolean() {
			return int(ins.A), none
		}
	case OpJumpIfTrue:
		if vm.acc.ToBoolean() {
			return int(ins.A), none
		}
	case OpJumpIfNullish:
		if vm.acc.IsNullish() {
			return int(ins.A), none
		}
	case OpJumpIfNotNullish:
		if !vm.acc.IsNullish() {
			return int(ins.A), none
		}

	case OpNewObject:
		vm.acc = NewObject(vm.realm.ObjectPrototype)
	case OpNewArray:
		arr := NewArray(vm.realm.ArrayPrototype)
		a := arr.AsArray()
		for _, v := range vm.popArgs(int(ins.A)) {
			a.Append(v)
		}
		vm.acc = arr

	case OpGetProp:
		key, err := vm.constKey(f, ins.A)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		v, err := vm.getProperty(vm.acc, key)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		vm.acc = v
	case OpSetProp:
		key, err := vm.constKey(f, ins.A)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		if err := vm.setProperty(vm.acc, key, f.regs[ins.B]); err != nil {
			return next, vm.throwSignal(err)
		}
	case OpGetPropReg:
		obj := f.regs[ins.A]
		key, err := toPropertyKey(vm, f.regs[ins.B])
		if err != nil {
			return next, vm.throwSignal(err)
		}
		v, err := vm.getProperty(obj, key)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		vm.acc = v
	case OpSetPropReg:
		keyReg, valReg := unpackAB(ins.B)
		obj := f.regs[ins.A]
		key, err := toPropertyKey(vm, f.regs[keyReg])
		if err != nil {
			return next, vm.throwSignal(err)
		}
		if err := vm.setProperty(obj, key, f.regs[valReg]); err != nil {
			return next, vm.throwSignal(err)
		}
	case OpDeleteProp:
		key, err := vm.constKey(f, ins.A)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		if vm.acc.IsObjectLike() {
			vm.acc = Bool(vm.acc.ObjectProtocol().Delete(key))
		} else {
			vm.acc = True
		}
	case OpGetIterator:
		it, err := vm.getIterator(vm.acc)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		vm.acc = it
	case OpIteratorNext:
		done, value, err := vm.iteratorNext(vm.acc)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		f.regs[ins.A] = Bool(done)
		vm.acc = value

	case OpMakeClosure:
		c := f.code.Data.Constants[ins.A]
		fn := NewFunction(vm.realm.FunctionPrototype, c.Blueprint.Name, c.Blueprint.Code).AsFunction()
		fn.IsArrow = c.Blueprint.IsArrow
		fn.IsGenerator = c.Blueprint.IsGenerator
		fn.IsAsync = c.Blueprint.IsAsync
		fn.Constructible = !c.Blueprint.IsArrow && !c.Blueprint.IsGenerator && !c.Blueprint.IsAsync
		vm.acc = NewClosure(fn, f.scope)

	case OpCall:
		thisReg, argc := unpackAB(ins.B)
		callee := f.regs[ins.A]
		this := Undefined
		if thisReg >= 0 {
			this = f.regs[thisReg]
		}
		args := vm.popArgs(int(argc))
		v, err := vm.Call(callee, this, args)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		vm.acc = v
	case OpCallMethod:
		obj := f.regs[ins.A]
		keyConst, argc := unpackAB(ins.B)
		key, err := vm.constKey(f, keyConst)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		callee, err := vm.getProperty(obj, key)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		args := vm.popArgs(int(argc))
		v, err := vm.Call(callee, obj, args)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		vm.acc = v
	case OpNew:
		callee := f.regs[ins.A]
		args := vm.popArgs(int(ins.B))
		v, err := vm.Construct(callee, args, callee)
		if err != nil {
			return next, vm.throwSignal(err)
		}
		vm.acc = v
	case OpReturn:
		return next, controlSignal{kind: signalReturn, value: vm.acc}
	case OpThrow:
		return next, vm.throwSignal(vm.ThrowValue(vm.acc))

	case OpPushScope:
		f.scope = f.scope.Child()
	case OpPopScope:
		if f.scope.parent != nil {
			f.scope = f.scope.parent
		}

	case OpYield, OpAwait:
		if f.co == nil {
			return next, vm.throwSignal(vm.newInternalError("yield/await outside generator or async function"))
		}
		resume := f.co.suspend(vm.acc)
		if resume.throw {
			return next, vm.throwSignal(vm.ThrowValue(resume.value))
		}
		if resume.abrupt {
			return next, controlSignal{kind: signalReturn, value: resume.value}
		}
		vm.acc = resume.value

	case OpYieldStar:
		if f.co == nil {
			return next, vm.throwSignal(vm.newInternalError("yield outside generator"))
		}
		result, sig := vm.yieldStar(f, vm.acc)
		if sig.kind != signalNone {
			return next, sig
		}
		vm.acc = result

	case OpPushArg:
		vm.argBuf = append(vm.argBuf, vm.acc)
	case OpSpreadArg:
		if err := vm.spreadInto(vm.acc); err != nil {
			return next, vm.throwSignal(err)
		}
	case OpDup:
		f.regs[ins.A] = vm.acc
	case OpPop:
		if len(vm.argBuf) > 0 {
			vm.argBuf = vm.argBuf[:len(vm.argBuf)-1]
		}
	case OpHalt:
		return next, controlSignal{kind: signalReturn, value: vm.acc}

	default:
		return next, vm.throwSignal(vm.newInternalError("unimplemented opcode"))
	}

	return next, none
}

func (vm *VM) throwSignal(err error) controlSignal {
	return controlSignal{kind: signalThrow, err: err}
}

func (vm *VM) loadConst(f *frame, idx int32) (Value, error) {
	c := f.code.Data.Constants[idx]
	switch c.Kind {
	case ConstNumber:
		return Number(c.Number), nil
	case ConstBigInt:
		n, ok := parseBigInt(c.BigIntLit)
		if !ok {
			return Undefined, vm.newSyntaxError("invalid BigInt literal")
		}
		return NewBigInt(n), nil
	case ConstString:
		return NewString(c.Str), nil
	case ConstPropertyKey:
		return NewString(c.Str), nil
	case ConstFunctionBlueprint:
		fn := NewFunction(vm.realm.FunctionPrototype, c.Blueprint.Name, c.Blueprint.Code)
		return fn, nil
	case ConstRegExp:
		return NewRegExp(vm, vm.realm.RegExpPrototype, c.RegexSrc, c.RegexFlags)
	default:
		return Undefined, vm.newInternalError("unknown constant kind")
	}
}

func (vm *VM) constKey(f *frame, idx int32) (PropertyKey, error) {
	c := f.code.Data.Constants[idx]
	return NewStringKey(c.Str), nil
}

func (vm *VM) popArgs(argc int) []Value {
	if argc <= 0 {
		return nil
	}
	n := len(vm.argBuf)
	if argc > n {
		argc = n
	}
	args := make([]Value, argc)
	copy(args, vm.argBuf[n-argc:])
	vm.argBuf = vm.argBuf[:n-argc]
	return args
}

func (vm *VM) spreadInto(v Value) error {
	return vm.forOfEach(v, func(item Value) error {
		vm.argBuf = append(vm.argBuf, item)
		return nil
	})
}

func rrBaseOp(op OpCode) OpCode {
	switch op {
	case OpAddRR:
		return OpAdd
	case OpSubRR:
		return OpSub
	case OpMulRR:
		return OpMul
	case OpDivRR:
		return OpDiv
	case OpModRR:
		return OpMod
	case OpExpRR:
		return OpExp
	case OpBitAndRR:
		return OpBitAnd
	case OpBitOrRR:
		return OpBitOr
	case OpBitXorRR:
		return OpBitXor
	case OpShlRR:
		return OpShl
	case OpShrRR:
		return OpShr
	case OpUShrRR:
		return OpUShr
	default:
		return op
	}
}

func toPropertyKey(vm *VM, v Value) (PropertyKey, error) {
	if v.typ == TypeSymbol {
		return NewSymbolKey(v), nil
	}
	s, err := v.ToString(vm)
	if err != nil {
		return PropertyKey{}, err
	}
	return NewStringKey(s), nil
}

func (vm *VM) getProperty(obj Value, key PropertyKey) (Value, error) {
	if obj.IsNullish() {
		return Undefined, vm.newTypeError("Cannot read properties of " + obj.TypeOf() + " (reading '" + key.String() + "')")
	}
	if !obj.IsObjectLike() {
		boxed, err := obj.ToObject(vm)
		if err != nil {
			return Undefined, err
		}
		obj = boxed
	}
	v, _ := obj.ObjectProtocol().GetProperty(vm, key)
	return v, nil
}

func (vm *VM) setProperty(obj Value, key PropertyKey, value Value) error {
	if obj.IsNullish() {
		return vm.newTypeError("Cannot set properties of " + obj.TypeOf())
	}
	if !obj.IsObjectLike() {
		return nil // primitive receivers silently discard writes in sloppy mode
	}
	return obj.ObjectProtocol().SetProperty(vm, key, value, obj)
}
