package value

import (
	"math"

	"github.com/cespare/xxhash/v2"
)

// tag bytes disambiguate otherwise-colliding encodings across kinds (e.g.
// the empty string vs. zero bytes) when folded into a single xxhash stream.
const (
	tagNothing byte = iota
	tagBoolFalse
	tagBoolTrue
	tagInt
	tagFloat
	tagStr
	tagBytes
	tagSet
)

// Hash returns a stable 64-bit digest of v for use as a Set element or map
// key, or ErrUnhashable if v's kind cannot be hashed (Function,
// Authorization, and any Set/Object that itself refuses).
func Hash(v Value) (uint64, error) {
	switch v.kind {
	case KindNothing:
		return uint64(tagNothing), nil
	case KindBool:
		if v.b {
			return uint64(tagBoolTrue), nil
		}
		return uint64(tagBoolFalse), nil
	case KindInt:
		h := xxhash.New()
		_, _ = h.Write([]byte{tagInt})
		writeUint64(h, uint64(v.i))
		return h.Sum64(), nil
	case KindFloat:
		// Integral floats hash identically to the equal-valued Int so that
		// {1, 1.0} collapses to a single element, matching Equal's numeric
		// cross-kind comparison.
		if iv := int64(v.f); float64(iv) == v.f {
			return Hash(Int(iv))
		}
		h := xxhash.New()
		_, _ = h.Write([]byte{tagFloat})
		writeUint64(h, math.Float64bits(v.f))
		return h.Sum64(), nil
	case KindStr:
		h := xxhash.New()
		_, _ = h.Write([]byte{tagStr})
		_, _ = h.WriteString(v.s)
		return h.Sum64(), nil
	case KindBytes:
		h := xxhash.New()
		_, _ = h.Write([]byte{tagBytes})
		_, _ = h.Write(v.bs)
		return h.Sum64(), nil
	case KindSet:
		// Commutative fold so set hash is independent of element order.
		h := uint64(tagSet)
		for _, elems := range v.set.buckets {
			for _, e := range elems {
				eh, err := Hash(e)
				if err != nil {
					return 0, err
				}
				h ^= eh
			}
		}
		return h, nil
	case KindObject:
		return v.obj.Hash()
	default:
		return 0, ErrUnhashable
	}
}

func writeUint64(h *xxhash.Digest, u uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(u >> (8 * i))
	}
	_, _ = h.Write(buf[:])
}
