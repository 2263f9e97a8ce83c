package vm

import (
	"math"
	"unsafe"
)

// ArrayBufferObject is the raw byte-storage exotic object backing every
// TypedArray view (§4.3's TypedArray family). Detaching sets data to nil;
// every view must consult Detached() before touching bytes.
type ArrayBufferObject struct {
	Object
	data     []byte
	detached bool
}

func NewArrayBuffer(proto Value, byteLength int) Value {
	buf := &ArrayBufferObject{Object: newObjectBase(proto, "ArrayBuffer"), data: make([]byte, byteLength)}
	return Value{typ: TypeArrayBuffer, obj: unsafe.Pointer(buf)}
}

func (v Value) AsArrayBuffer() *ArrayBufferObject { return (*ArrayBufferObject)(v.obj) }
func (b *ArrayBufferObject) value() Value {
	return Value{typ: TypeArrayBuffer, obj: unsafe.Pointer(b)}
}

func (b *ArrayBufferObject) ByteLength() int {
	if b.detached {
		return 0
	}
	return len(b.data)
}

func (b *ArrayBufferObject) Detach() { b.data = nil; b.detached = true }
func (b *ArrayBufferObject) Detached() bool { return b.detached }

// Slice implements ArrayBuffer.prototype.slice's byte-copy semantics.
func (b *ArrayBufferObject) Slice(start, end int) []byte {
	if b.detached {
		return nil
	}
	return append([]byte(nil), b.data[start:end]...)
}

func (b *ArrayBufferObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, b.value(), key, b.value())
}
func (b *ArrayBufferObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, b.value(), key, value, receiver)
}
func (b *ArrayBufferObject) Has(vm *VM, key PropertyKey) bool { return hasProperty(b.value(), key) }
func (b *ArrayBufferObject) DebugTag() string                { return "[object ArrayBuffer]" }

// TypedArrayKind enumerates the element formats §4.3 names for the
// TypedArray family (bytes in, numeric JS Values out).
type TypedArrayKind uint8

const (
	TAInt8 TypedArrayKind = iota
	TAUint8
	TAUint8Clamped
	TAInt16
	TAUint16
	TAInt32
	TAUint32
	TAFloat32
	TAFloat64
	TABigInt64
	TABigUint64
)

func (k TypedArrayKind) ElementSize() int {
	switch k {
	case TAInt8, TAUint8, TAUint8Clamped:
		return 1
	case TAInt16, TAUint16:
		return 2
	case TAInt32, TAUint32, TAFloat32:
		return 4
	case TAFloat64, TABigInt64, TABigUint64:
		return 8
	default:
		return 1
	}
}

// TypedArrayObject is an integer-indexed exotic object (§4.3): reads and
// writes of in-range indices go straight to the backing ArrayBuffer, and
// out-of-range numeric indices are silently ignored per spec.md's "no
// exceptions from typed array OOB access" rule.
type TypedArrayObject struct {
	Object
	Buffer     *ArrayBufferObject
	ByteOffset int
	Kind       TypedArrayKind
	length     int
}

func NewTypedArray(proto Value, buf *ArrayBufferObject, byteOffset, length int, kind TypedArrayKind) Value {
	ta := &TypedArrayObject{Object: newObjectBase(proto, "TypedArray"), Buffer: buf, ByteOffset: byteOffset, Kind: kind, length: length}
	return Value{typ: TypeTypedArray, obj: unsafe.Pointer(ta)}
}

func (v Value) AsTypedArray() *TypedArrayObject { return (*TypedArrayObject)(v.obj) }
func (t *TypedArrayObject) value() Value {
	return Value{typ: TypeTypedArray, obj: unsafe.Pointer(t)}
}

func (t *TypedArrayObject) Length() int {
	if t.Buffer.detached {
		return 0
	}
	return t.length
}

// At reads element i as a JS Value, per the element-kind conversions of
// §4.3's TypedArray family. Out-of-range returns (Undefined, false).
func (t *TypedArrayObject) At(i int) (Value, bool) {
	if i < 0 || i >= t.Length() {
		return Undefined, false
	}
	off := t.ByteOffset + i*t.Kind.ElementSize()
	data := t.Buffer.data
	switch t.Kind {
	case TAInt8:
		return Integer(int32(int8(data[off]))), true
	case TAUint8, TAUint8Clamped:
		return Integer(int32(data[off])), true
	case TAInt16:
		return Integer(int32(int16(le16(data, off)))), true
	case TAUint16:
		return Integer(int32(le16(data, off))), true
	case TAInt32:
		return Integer(int32(le32(data, off))), true
	case TAUint32:
		return Number(float64(le32(data, off))), true
	case TAFloat32:
		return Number(float64(math.Float32frombits(le32(data, off)))), true
	case TAFloat64:
		return Number(math.Float64frombits(le64(data, off))), true
	case TABigInt64:
		return NewBigIntFromInt64(int64(le64(data, off))), true
	case TABigUint64:
		return NewBigIntFromUint64(le64(data, off)), true
	default:
		return Undefined, false
	}
}

// Put writes element i, clamping/truncating per the element kind's
// conversion rule. Out-of-range indices are a no-op, never an error.
func (t *TypedArrayObject) Put(vm *VM, i int, value Value) error {
	if i < 0 || i >= t.Length() {
		return nil
	}
	off := t.ByteOffset + i*t.Kind.ElementSize()
	data := t.Buffer.data
	if t.Kind == TABigInt64 || t.Kind == TABigUint64 {
		bi, err := value.ToNumeric(vm)
		if err != nil {
			return err
		}
		if bi.typ != TypeBigInt {
			return vm.newTypeError("Cannot convert a non-BigInt value to a BigInt typed array element")
		}
		putLE64(data, off, bi.AsBigInt().Uint64())
		return nil
	}
	f, err := value.ToNumber(vm)
	if err != nil {
		return err
	}
	switch t.Kind {
	case TAInt8:
		data[off] = byte(toInt32(f))
	case TAUint8:
		data[off] = byte(toUint32(f))
	case TAUint8Clamped:
		data[off] = clampUint8(f)
	case TAInt16:
		putLE16(data, off, uint16(toInt32(f)))
	case TAUint16:
		putLE16(data, off, uint16(toUint32(f)))
	case TAInt32:
		putLE32(data, off, uint32(toInt32(f)))
	case TAUint32:
		putLE32(data, off, toUint32(f))
	case TAFloat32:
		putLE32(data, off, math.Float32bits(float32(f)))
	case TAFloat64:
		putLE64(data, off, math.Float64bits(f))
	}
	return nil
}

func clampUint8(f float64) byte {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= 255 {
		return 255
	}
	return byte(math.Round(f))
}

func le16(b []byte, off int) uint16 { return uint16(b[off]) | uint16(b[off+1])<<8 }
func le32(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}
func le64(b []byte, off int) uint64 {
	return uint64(le32(b, off)) | uint64(le32(b, off+4))<<32
}
func putLE16(b []byte, off int, v uint16) { b[off] = byte(v); b[off+1] = byte(v >> 8) }
func putLE32(b []byte, off int, v uint32) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}
func putLE64(b []byte, off int, v uint64) {
	putLE32(b, off, uint32(v))
	putLE32(b, off+4, uint32(v>>32))
}

func (t *TypedArrayObject) GetOwnProperty(key PropertyKey) (PropertyDescriptor, bool) {
	if !key.IsSymbol() && key.name == "length" {
		return DataProperty(Number(float64(t.Length())), false, false, false), true
	}
	if idx, ok := arrayIndex(key); ok {
		if v, ok := t.At(idx); ok {
			return DataProperty(v, true, true, false), true
		}
		return PropertyDescriptor{}, false
	}
	return t.Object.GetOwnProperty(key)
}

func (t *TypedArrayObject) DefineProperty(vm *VM, key PropertyKey, desc PropertyDescriptor) error {
	if idx, ok := arrayIndex(key); ok && !desc.IsAccessor {
		return t.Put(vm, idx, desc.Value)
	}
	return t.Object.DefineProperty(vm, key, desc)
}

func (t *TypedArrayObject) GetProperty(vm *VM, key PropertyKey) (Value, bool) {
	return getPropertyFrom(vm, t.value(), key, t.value())
}
func (t *TypedArrayObject) SetProperty(vm *VM, key PropertyKey, value, receiver Value) error {
	return setPropertyOn(vm, t.value(), key, value, receiver)
}
func (t *TypedArrayObject) Has(vm *VM, key PropertyKey) bool { return hasProperty(t.value(), key) }
func (t *TypedArrayObject) DebugTag() string                { return "[object TypedArray]" }
