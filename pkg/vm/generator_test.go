package vm

import "testing"

// genCode builds a tiny hand-assembled generator body equivalent to:
//
//	function* g() { yield 1; return 2; }
func genCode() *BytecodeFunctionCode {
	return &BytecodeFunctionCode{
		Instructions: []Instruction{
			{Op: OpLoadConst, A: 0}, // Acc = 1
			{Op: OpYield},
			{Op: OpLoadConst, A: 1}, // Acc = 2
			{Op: OpReturn},
		},
		Data: &DataSection{
			Constants: []ConstValue{
				{Kind: ConstNumber, Number: 1},
				{Kind: ConstNumber, Number: 2},
			},
		},
		NumRegisters: 2,
		Name:         "g",
	}
}

func TestGeneratorYieldThenReturn(t *testing.T) {
	realm := NewRealm()
	vm := NewVM(realm)

	genVal := NewGeneratorObject(realm.GeneratorPrototype, genCode(), nil, Undefined, nil)
	g := genVal.AsGenerator()

	first, err := g.Next(vm, Undefined)
	if err != nil {
		t.Fatalf("first Next errored: %v", err)
	}
	value, _ := first.ObjectProtocol().GetProperty(vm, NewStringKey("value"))
	done, _ := first.ObjectProtocol().GetProperty(vm, NewStringKey("done"))
	if done.ToBoolean() {
		t.Fatalf("expected done=false after first yield")
	}
	if value.AsFloat() != 1 {
		t.Fatalf("expected yielded value 1, got %v", value.AsFloat())
	}

	second, err := g.Next(vm, Undefined)
	if err != nil {
		t.Fatalf("second Next errored: %v", err)
	}
	value2, _ := second.ObjectProtocol().GetProperty(vm, NewStringKey("value"))
	done2, _ := second.ObjectProtocol().GetProperty(vm, NewStringKey("done"))
	if !done2.ToBoolean() {
		t.Fatalf("expected done=true after return")
	}
	if value2.AsFloat() != 2 {
		t.Fatalf("expected return value 2, got %v", value2.AsFloat())
	}

	third, err := g.Next(vm, Undefined)
	if err != nil {
		t.Fatalf("Next after completion errored: %v", err)
	}
	done3, _ := third.ObjectProtocol().GetProperty(vm, NewStringKey("done"))
	if !done3.ToBoolean() {
		t.Fatalf("expected done=true once a generator is completed")
	}
}

func TestGeneratorReturnBeforeStart(t *testing.T) {
	realm := NewRealm()
	vm := NewVM(realm)

	genVal := NewGeneratorObject(realm.GeneratorPrototype, genCode(), nil, Undefined, nil)
	g := genVal.AsGenerator()

	result, err := g.Return(vm, Number(99))
	if err != nil {
		t.Fatalf("Return errored: %v", err)
	}
	value, _ := result.ObjectProtocol().GetProperty(vm, NewStringKey("value"))
	done, _ := result.ObjectProtocol().GetProperty(vm, NewStringKey("done"))
	if !done.ToBoolean() || value.AsFloat() != 99 {
		t.Fatalf("expected {value: 99, done: true}, got {value: %v, done: %v}", value.AsFloat(), done.ToBoolean())
	}
}
