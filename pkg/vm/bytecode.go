package vm

// OpCode is the instruction tag of §4.5 "Bytecode". Arithmetic and
// comparison opcodes are operand-kind polymorphic: rather than one fixed
// three-register ADD instruction, each operator gets a family of variants
// distinguished by where its operands live (accumulator, a register, a
// named variable, or an immediate constant) and where the result goes.
// This mirrors the instruction-variant design of the Rust bytecode this
// core's instruction set was distilled from (yavashark_bytecode), which
// favors "AddAccReg(Reg)" / "AddRegReg(Reg,Reg)" style variants over a
// single fixed-arity opcode plus an operand-addressing mode byte.
type OpCode uint16

const (
	OpNop OpCode = iota

	// Loads and stores: accumulator <-> register <-> variable <-> constant.
	OpLoadConst   // Acc = Data.Constants[operand]
	OpLoadReg     // Acc = R[operand]
	OpStoreReg    // R[operand] = Acc
	OpLoadVar     // Acc = Scope.Resolve(Data.VarNames[operand])
	OpStoreVar    // Scope.Assign(Data.VarNames[operand], Acc)
	OpDeclareVar  // Scope.Declare(Data.VarNames[operand], kind, Acc if initialized)
	OpLoadUndefined
	OpLoadNull
	OpLoadTrue
	OpLoadFalse
	OpLoadThis

	// Arithmetic: each has an AccReg (Acc = R[operand] op Acc, the same
	// orientation as the comparisons) and a RegReg
	// (R[A] = R[hi16(B)] op R[lo16(B)]) form.
	OpAdd
	OpAddRR
	OpSub
	OpSubRR
	OpMul
	OpMulRR
	OpDiv
	OpDivRR
	OpMod
	OpModRR
	OpExp
	OpExpRR
	OpBitAnd
	OpBitAndRR
	OpBitOr
	OpBitOrRR
	OpBitXor
	OpBitXorRR
	OpShl
	OpShlRR
	OpShr
	OpShrRR
	OpUShr
	OpUShrRR
	OpNeg
	OpBitNot
	OpNot
	OpTypeof
	OpInc
	OpDec

	// Comparisons, all Acc = R[operand] <op> Acc form (operand is the LHS
	// register, Acc holds the RHS and receives the boolean result).
	OpEq
	OpNeq
	OpStrictEq
	OpStrictNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpInstanceOf
	OpIn

	// Control flow.
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpJumpIfNullish // for ?? short-circuit
	OpJumpIfNotNullish

	// Objects/arrays.
	OpNewObject
	OpNewArray   // Acc = Array(argBuf[top-A:]), consuming the top A pending args
	OpGetProp    // Acc = Acc[Data.Constants[A] as key]
	OpSetProp    // Acc[Data.Constants[A] as key] = R[B]
	OpGetPropReg // Acc = R[A][ToPropertyKey(R[B])]
	OpSetPropReg // R[A][ToPropertyKey(R[hi16(B)])] = R[lo16(B)]
	OpDeleteProp
	OpGetIterator
	OpIteratorNext

	// Functions and calls.
	OpMakeClosure // Acc = Closure(Data.Constants[A].(*FunctionBlueprint), currentScope)
	OpCall        // Acc = Call(R[A] callee, this=R[hi16(B)] (-1 => undefined), args=popArgs(lo16(B)))
	OpCallMethod  // Acc = Call(R[A][Data.Constants[hi16(B)]], this=R[A], args=popArgs(lo16(B)))
	OpNew         // Acc = Construct(R[A] callee, args=popArgs(B))
	OpReturn
	OpThrow

	// Scopes.
	OpPushScope
	OpPopScope

	// Generators/async.
	OpYield
	OpYieldStar
	OpAwait

	// Misc.
	OpPushArg  // push Acc onto the pending call-argument buffer
	OpSpreadArg
	OpDup
	OpPop
	OpHalt
)

// Instruction is one bytecode unit: an opcode plus up to two packed
// operand words. Which fields are meaningful depends entirely on Op — the
// polymorphism lives in which *variant* of an operator was selected at
// compile time, not in a runtime operand-kind tag, so the dispatch loop
// never branches on operand shape at execution time.
type Instruction struct {
	Op   OpCode
	A    int32
	B    int32
	Line int32 // source line, for stack traces (§4.5's debug metadata)
}
