package vm

// ConstKind discriminates the constant-pool entry shapes a compiled
// function's data section can hold (§4.5 "Data section").
type ConstKind uint8

const (
	ConstNumber ConstKind = iota
	ConstBigInt
	ConstString
	ConstPropertyKey
	ConstFunctionBlueprint
	ConstRegExp
)

// ConstValue is one constant-pool entry. Only the field matching Kind is
// meaningful; this mirrors the Instruction operand-word packing above in
// spirit (one tagged slot, many payload shapes) rather than using an
// `any`, keeping constant lookups a plain slice index with no type
// assertion on the hot path.
type ConstValue struct {
	Kind ConstKind

	Number    float64
	BigIntLit string
	Str       string
	Blueprint *FunctionBlueprint
	RegexSrc  string
	RegexFlags string
}

// FunctionBlueprint is the compile-time description of a function body:
// its own instruction stream and data section, plus the metadata OpMakeClosure
// needs to materialize a ClosureObject over the current Scope (§4.6
// "Function blueprints are lazily inflated"). The compiler that produces
// these from an AST is out of this core's scope (§9 Non-goal); this type
// is the handoff point such a compiler targets.
type FunctionBlueprint struct {
	Name        string
	ParamNames  []string
	ParamCount  int
	IsArrow     bool
	IsGenerator bool
	IsAsync     bool
	Code        *BytecodeFunctionCode
}

// BytecodeFunctionCode is one function's compiled body: its instructions,
// its data section, and the register file size the compiler decided it
// needs (§4.6 "Calls" — each call frame gets its own register window).
type BytecodeFunctionCode struct {
	Instructions []Instruction
	Data         *DataSection
	NumRegisters int
	ParamCount   int
	Name         string
	TryRegions   []TryRegion
}

// DataSection holds everything an instruction stream indexes into by
// integer operand rather than carrying inline: variable names (for
// OpLoadVar/OpStoreVar/OpDeclareVar) and the constant pool. It has no
// label table: jump operands such as OpJump's are absolute instruction
// indices.
type DataSection struct {
	VarNames  []string
	Constants []ConstValue
}

// TryRegion marks a protected instruction range: an exception raised at
// pc in [Start,End) transfers control to CatchPC (if >= 0) and always
// runs FinallyPC (if >= 0) on the way out, matching the try/catch/finally
// contract of §4.6 "Exceptions".
type TryRegion struct {
	Start, End int
	CatchPC    int // -1 if this region has no catch
	FinallyPC  int // -1 if this region has no finally
}
