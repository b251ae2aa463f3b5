package interp

import (
	"math"

	"github.com/szx/vkswr/il"
)

// operands resolves a result and its lane operands and returns the lane
// count of the result. Operands with one lane broadcast.
func (m *Machine) operands(dst il.Variable, srcs ...il.Variable) (ArrayVariable, []ArrayVariable, uint32, error) {
	out, err := m.arrayOf(dst)
	if err != nil {
		return ArrayVariable{}, nil, 0, err
	}
	n := out.Len()
	ins := make([]ArrayVariable, len(srcs))
	for i, v := range srcs {
		a, err := m.arrayOf(v)
		if err != nil {
			return ArrayVariable{}, nil, 0, err
		}
		if l := a.Len(); l == 0 || (l > 1 && l < n) {
			return ArrayVariable{}, nil, 0, fatalf("operand %%%d has %d lanes, result has %d", v, l, n)
		}
		ins[i] = a
	}
	return out, ins, n, nil
}

func (m *Machine) mulVectorScalar(inst il.MathMulVectorScalar) error {
	dst, ins, n, err := m.operands(inst.ID, inst.Vector, inst.Scalar)
	if err != nil {
		return err
	}
	s := m.mem.float(ins[1].Region.Address)
	for i := range n {
		m.mem.setFloat(dst.lane(i), m.mem.float(ins[0].lane(i))*s)
	}
	return nil
}

func (m *Machine) math(inst il.Math) error {
	dst, ins, n, err := m.operands(inst.ID, inst.Op1, inst.Op2)
	if err != nil {
		return err
	}
	for i := range n {
		r, ok := mathLane(inst.Op, m.mem.word(ins[0].lane(i)), m.mem.word(ins[1].lane(i)))
		if !ok {
			return fatalf("unknown math op %s", inst.Op)
		}
		m.mem.setWord(dst.lane(i), r)
	}
	return nil
}

func (m *Machine) convert(inst il.Convert) error {
	dst, ins, n, err := m.operands(inst.ID, inst.Src)
	if err != nil {
		return err
	}
	for i := range n {
		r, ok := convertLane(inst.Op, m.mem.word(ins[0].lane(i)))
		if !ok {
			return fatalf("unknown conversion %s", inst.Op)
		}
		m.mem.setWord(dst.lane(i), r)
	}
	return nil
}

func (m *Machine) selectLanes(inst il.Select) error {
	dst, ins, n, err := m.operands(inst.ID, inst.Condition, inst.Accept, inst.Reject)
	if err != nil {
		return err
	}
	for i := range n {
		src := ins[2]
		if m.mem.word(ins[0].lane(i)) != 0 {
			src = ins[1]
		}
		m.mem.setWord(dst.lane(i), m.mem.word(src.lane(i)))
	}
	return nil
}

func f32(bits uint32) float32 { return math.Float32frombits(bits) }

func bits(f float32) uint32 { return math.Float32bits(f) }

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// mathLane applies op to one lane. Integer division and remainder by zero
// yield 0.
//
//nolint:gocyclo,cyclop // one case per op
func mathLane(op il.MathOp, x, y uint32) (uint32, bool) {
	sx, sy := int32(x), int32(y)
	switch op {
	case il.MathAddI32I32:
		return x + y, true
	case il.MathSubI32I32:
		return x - y, true
	case il.MathMulI32I32:
		return x * y, true
	case il.MathAddF32F32:
		return bits(f32(x) + f32(y)), true
	case il.MathSubF32F32:
		return bits(f32(x) - f32(y)), true
	case il.MathMulF32F32:
		return bits(f32(x) * f32(y)), true
	case il.MathDivF32F32:
		return bits(f32(x) / f32(y)), true

	case il.MathDivI32I32:
		if sy == 0 {
			return 0, true
		}
		return uint32(sx / sy), true
	case il.MathDivU32U32:
		if y == 0 {
			return 0, true
		}
		return x / y, true
	case il.MathModI32I32:
		if sy == 0 {
			return 0, true
		}
		r := sx % sy
		if r != 0 && (r < 0) != (sy < 0) {
			r += sy
		}
		return uint32(r), true
	case il.MathRemI32I32:
		if sy == 0 {
			return 0, true
		}
		return uint32(sx % sy), true
	case il.MathModU32U32:
		if y == 0 {
			return 0, true
		}
		return x % y, true

	case il.MathBitAnd:
		return x & y, true
	case il.MathBitOr:
		return x | y, true
	case il.MathBitXor:
		return x ^ y, true
	case il.MathBitShiftLeft:
		return x << y, true
	case il.MathBitShiftRight:
		return x >> y, true

	case il.MathEqualI32I32:
		return boolWord(x == y), true
	case il.MathLessThanU32U32:
		return boolWord(x < y), true
	case il.MathLessThanI32I32:
		return boolWord(sx < sy), true
	case il.MathLessThanF32F32:
		return boolWord(f32(x) < f32(y)), true
	}
	return 0, false
}

// convertLane converts one lane. Float to integer conversions truncate
// toward zero and saturate; NaN converts to 0.
func convertLane(op il.ConvertOp, x uint32) (uint32, bool) {
	switch op {
	case il.MathConvertI32F32:
		return bits(float32(int32(x))), true
	case il.MathConvertU32F32:
		return bits(float32(x)), true
	case il.MathConvertF32U32:
		f := f32(x)
		switch {
		case math.IsNaN(float64(f)) || f <= 0:
			return 0, true
		case f >= math.MaxUint32:
			return math.MaxUint32, true
		}
		return uint32(f), true
	case il.MathConvertF32I32:
		f := f32(x)
		switch {
		case math.IsNaN(float64(f)):
			return 0, true
		case f >= math.MaxInt32:
			return math.MaxInt32, true
		case f <= math.MinInt32:
			return uint32(0x80000000), true
		}
		return uint32(int32(f)), true
	}
	return 0, false
}
