package vm

import "testing"

// asyncAddOneCode builds the body of:
//
//	async function f(p) { return (await p) + 1; }
//
// p is parameter 0, bound in the function scope as VarNames[0]; the body
// loads it, awaits it,
// adds 1, and returns.
func asyncAddOneCode() *BytecodeFunctionCode {
	return &BytecodeFunctionCode{
		Instructions: []Instruction{
			{Op: OpLoadVar, A: 0}, // Acc = p
			{Op: OpAwait},         // Acc = resolved value of p
			{Op: OpStoreReg, A: 0},
			{Op: OpLoadConst, A: 0}, // Acc = 1
			{Op: OpAdd, A: 0},       // Acc = R[0] + 1
			{Op: OpReturn},
		},
		Data: &DataSection{
			VarNames:  []string{"p"},
			Constants: []ConstValue{{Kind: ConstNumber, Number: 1}},
		},
		NumRegisters: 2,
		ParamCount:   1,
		Name:         "f",
	}
}

func TestAsyncFunctionAwaitsAndResolves(t *testing.T) {
	realm := NewRealm()
	vm := NewVM(realm)

	inputResolved := NewPromise(realm.PromisePrototype)
	resultPromise := executeAsyncFunction(vm, asyncAddOneCode(), nil, Undefined, []Value{inputResolved.value()}, Undefined)
	result := resultPromise.AsPromise()

	if result.State != PromisePending {
		t.Fatalf("expected the returned promise to start pending, got state=%v", result.State)
	}

	resolvePromise(vm, inputResolved, Number(41))
	for realm.Tasks.runtime.RunUntilIdle() {
	}

	if result.State != PromiseFulfilled {
		t.Fatalf("expected the async function's promise to fulfill, got state=%v", result.State)
	}
	if result.Result.AsFloat() != 42 {
		t.Fatalf("expected 41 + 1 == 42, got %v", result.Result.AsFloat())
	}
}

func TestAsyncFunctionPropagatesRejection(t *testing.T) {
	realm := NewRealm()
	vm := NewVM(realm)

	inputRejected := NewPromise(realm.PromisePrototype)
	resultPromise := executeAsyncFunction(vm, asyncAddOneCode(), nil, Undefined, []Value{inputRejected.value()}, Undefined)
	result := resultPromise.AsPromise()

	rejectPromise(vm, inputRejected, NewString("network error"))
	for realm.Tasks.runtime.RunUntilIdle() {
	}

	if result.State != PromiseRejected {
		t.Fatalf("expected the async function's promise to reject, got state=%v", result.State)
	}
	s, err := result.Result.ToString(vm)
	if err != nil || s != "network error" {
		t.Fatalf("expected rejection reason %q, got %q (err=%v)", "network error", s, err)
	}
}
