package dtype

import (
	"encoding/binary"
	"math"

	"github.com/robert-malhotra/go-h5pp/h5err"
)

// Convert converts n elements of src-typed data into the dst layout.
//
// Numerics convert between sizes, signedness, float/integer and byte order.
// Fixed-width strings are truncated or padded to the destination width.
// Compound members are matched by exact name; every destination member must
// exist in the source. Variable-length strings are not stored inline and
// cannot be converted here.
func Convert(dst, src *Datatype, data []byte, n uint64) ([]byte, error) {
	ss, ds := uint64(src.Size), uint64(dst.Size)
	if need := n * ss; uint64(len(data)) < need {
		return nil, h5err.WithSizes(h5err.New(h5err.BufferTooSmall,
			"conversion source holds %d bytes, %d elements of %s need %d", len(data), n, src, need),
			uint64(len(data)), need)
	}
	if dst.Equal(src) {
		out := make([]byte, n*ss)
		copy(out, data)
		return out, nil
	}
	if err := checkConvertible(dst, src); err != nil {
		return nil, err
	}
	out := make([]byte, n*ds)
	for i := uint64(0); i < n; i++ {
		convertElement(dst, src, out[i*ds:(i+1)*ds], data[i*ss:(i+1)*ss])
	}
	return out, nil
}

func checkConvertible(dst, src *Datatype) error {
	switch {
	case dst.IsNumeric() && src.IsNumeric():
		if !numericSize(dst) || !numericSize(src) {
			return h5err.New(h5err.Unsupported, "cannot convert %s to %s", src, dst)
		}
		return nil
	case dst.Class == ClassString && src.Class == ClassString:
		return nil
	case dst.Class == ClassArray && src.Class == ClassArray:
		if dst.NumElements() != src.NumElements() {
			return h5err.New(h5err.SizeMismatch,
				"cannot convert %s to %s: element counts differ", src, dst)
		}
		return checkConvertible(dst.BaseType, src.BaseType)
	case dst.Class == ClassCompound && src.Class == ClassCompound:
		for _, m := range dst.Members {
			sm, ok := src.Member(m.Name)
			if !ok {
				return h5err.New(h5err.UnknownField, "field %q does not exist in %s", m.Name, src)
			}
			if err := checkConvertible(m.Type, sm.Type); err != nil {
				return err
			}
		}
		return nil
	default:
		return h5err.New(h5err.Unsupported, "cannot convert %s to %s", src, dst)
	}
}

func numericSize(dt *Datatype) bool {
	switch dt.Size {
	case 1, 2:
		return dt.Class == ClassFixedPoint
	case 4, 8:
		return true
	default:
		return false
	}
}

func convertElement(dst, src *Datatype, out, in []byte) {
	switch dst.Class {
	case ClassFixedPoint, ClassFloatPoint:
		convertNumber(dst, src, out, in)
	case ClassString:
		convertString(dst, out, in)
	case ClassArray:
		bd, bs := dst.BaseType.Size, src.BaseType.Size
		for i := uint32(0); i < dst.NumElements(); i++ {
			convertElement(dst.BaseType, src.BaseType, out[i*bd:(i+1)*bd], in[i*bs:(i+1)*bs])
		}
	case ClassCompound:
		for _, m := range dst.Members {
			sm, _ := src.Member(m.Name)
			convertElement(m.Type, sm.Type,
				out[m.ByteOffset:m.ByteOffset+m.Type.Size],
				in[sm.ByteOffset:sm.ByteOffset+sm.Type.Size])
		}
	}
}

func order(dt *Datatype) binary.ByteOrder {
	if dt.ByteOrder == OrderBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func loadBits(dt *Datatype, b []byte) uint64 {
	bo := order(dt)
	switch dt.Size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(bo.Uint16(b))
	case 4:
		return uint64(bo.Uint32(b))
	default:
		return bo.Uint64(b)
	}
}

func storeBits(dt *Datatype, b []byte, v uint64) {
	bo := order(dt)
	switch dt.Size {
	case 1:
		b[0] = byte(v)
	case 2:
		bo.PutUint16(b, uint16(v))
	case 4:
		bo.PutUint32(b, uint32(v))
	default:
		bo.PutUint64(b, v)
	}
}

func signExtend(v uint64, size uint32) int64 {
	shift := 64 - 8*size
	return int64(v<<shift) >> shift
}

func convertNumber(dst, src *Datatype, out, in []byte) {
	raw := loadBits(src, in)
	if src.Class == ClassFixedPoint && dst.Class == ClassFixedPoint {
		if src.Signed {
			raw = uint64(signExtend(raw, src.Size))
		}
		storeBits(dst, out, raw)
		return
	}

	var f float64
	switch {
	case src.Class == ClassFloatPoint && src.Size == 4:
		f = float64(math.Float32frombits(uint32(raw)))
	case src.Class == ClassFloatPoint:
		f = math.Float64frombits(raw)
	case src.Signed:
		f = float64(signExtend(raw, src.Size))
	default:
		f = float64(raw)
	}

	switch {
	case dst.Class == ClassFloatPoint && dst.Size == 4:
		raw = uint64(math.Float32bits(float32(f)))
	case dst.Class == ClassFloatPoint:
		raw = math.Float64bits(f)
	case dst.Signed:
		raw = uint64(int64(f))
	default:
		raw = uint64(f)
	}
	storeBits(dst, out, raw)
}

func convertString(dst *Datatype, out, in []byte) {
	n := copy(out, in)
	pad := byte(0)
	if dst.StringPadding == PadSpacePad {
		pad = ' '
	}
	for i := n; i < len(out); i++ {
		out[i] = pad
	}
	if dst.StringPadding == PadNullTerm && len(out) > 0 && n == len(out) && len(in) > len(out) {
		out[len(out)-1] = 0
	}
}
