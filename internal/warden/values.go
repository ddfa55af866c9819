package warden

import (
	"fmt"
	"strconv"

	"github.com/tetratelabs/wazero/api"
)

// Kind enumerates the types of the result values a workload can produce.
type Kind uint8

const (
	KindI32 Kind = iota
	KindI64
	KindF32
	KindF64
)

func (k Kind) String() string {
	switch k {
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	default:
		return "i32"
	}
}

// Value is one typed result returned by a workload entry point. Values are
// comparable, so slices of them work with the usual test helpers.
type Value struct {
	kind Kind
	bits uint64
}

func I32(v int32) Value   { return Value{kind: KindI32, bits: api.EncodeI32(v)} }
func I64(v int64) Value   { return Value{kind: KindI64, bits: api.EncodeI64(v)} }
func F32(v float32) Value { return Value{kind: KindF32, bits: api.EncodeF32(v)} }
func F64(v float64) Value { return Value{kind: KindF64, bits: api.EncodeF64(v)} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) I32() int32   { return api.DecodeI32(v.bits) }
func (v Value) I64() int64   { return int64(v.bits) }
func (v Value) F32() float32 { return api.DecodeF32(v.bits) }
func (v Value) F64() float64 { return api.DecodeF64(v.bits) }

func (v Value) String() string {
	switch v.kind {
	case KindI64:
		return strconv.FormatInt(v.I64(), 10)
	case KindF32:
		return strconv.FormatFloat(float64(v.F32()), 'g', -1, 32)
	case KindF64:
		return strconv.FormatFloat(v.F64(), 'g', -1, 64)
	default:
		return strconv.FormatInt(int64(v.I32()), 10)
	}
}

// decodeValues converts the raw result stack of a call into typed values
// using the declared result types of the entry point.
func decodeValues(types []api.ValueType, raw []uint64) ([]Value, error) {
	if len(types) == 0 {
		return nil, nil
	}
	if len(raw) != len(types) {
		return nil, fmt.Errorf("%w: %d results for %d declared types", ErrCall, len(raw), len(types))
	}
	values := make([]Value, len(types))
	for i, t := range types {
		var kind Kind
		switch t {
		case api.ValueTypeI32:
			kind = KindI32
		case api.ValueTypeI64:
			kind = KindI64
		case api.ValueTypeF32:
			kind = KindF32
		case api.ValueTypeF64:
			kind = KindF64
		default:
			return nil, fmt.Errorf("%w: unsupported result type %s", ErrCall, api.ValueTypeName(t))
		}
		values[i] = Value{kind: kind, bits: raw[i]}
	}
	return values, nil
}
