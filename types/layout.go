package types

// LayoutCalculator computes the in-memory size, alignment, and field/element
// byte offsets of a Type. Every scalar in the Q32 ABI (spec §4.3) is exactly
// one 32-bit word: bool/int/uint/float all occupy 4 bytes, so vectors and
// matrices are just repetitions of that word and structs/arrays lay out by
// the same sequential-offset-with-padding walk the component model uses for
// WIT records (see DESIGN.md).
type LayoutCalculator struct {
	cache map[*Type]Info
}

// Info describes the size, alignment, and (for structs) field byte offsets
// of a Type.
type Info struct {
	FieldOffs []int
	Size      int
	Align     int
}

const wordSize = 4

// NewLayoutCalculator returns a LayoutCalculator with an empty cache.
func NewLayoutCalculator() *LayoutCalculator {
	return &LayoutCalculator{cache: make(map[*Type]Info)}
}

// Calculate returns the Info for t, computing and caching it on first use.
func (c *LayoutCalculator) Calculate(t *Type) Info {
	if cached, ok := c.cache[t]; ok {
		return cached
	}

	var info Info
	switch {
	case t.Kind.IsScalar():
		info = Info{Size: wordSize, Align: wordSize}
	case t.Kind.IsVector():
		info = Info{Size: wordSize * t.Kind.VectorLen(), Align: wordSize}
	case t.Kind.IsMatrix():
		dim := t.Kind.MatrixDim()
		info = Info{Size: wordSize * dim * dim, Align: wordSize}
	case t.Kind == KindArray:
		info = c.calculateArray(t)
	case t.Kind == KindStruct:
		info = c.calculateStruct(t)
	default:
		info = Info{Size: 0, Align: wordSize}
	}

	c.cache[t] = info
	return info
}

func (c *LayoutCalculator) calculateArray(t *Type) Info {
	elem := c.Calculate(t.Elem)
	stride := alignTo(elem.Size, elem.Align)
	return Info{
		Size:  stride * t.Len,
		Align: elem.Align,
	}
}

func (c *LayoutCalculator) calculateStruct(t *Type) Info {
	if len(t.Fields) == 0 {
		return Info{Size: 0, Align: wordSize}
	}

	offsets := make([]int, len(t.Fields))
	maxAlign := 1
	offset := 0

	for i, f := range t.Fields {
		fieldInfo := c.Calculate(f.Type)

		offset = alignTo(offset, fieldInfo.Align)
		offsets[i] = offset

		if fieldInfo.Align > maxAlign {
			maxAlign = fieldInfo.Align
		}
		offset += fieldInfo.Size
	}

	return Info{
		Size:      alignTo(offset, maxAlign),
		Align:     maxAlign,
		FieldOffs: offsets,
	}
}

// FieldOffset returns the byte offset of field index i within t, which must
// be a struct type already passed to Calculate.
func (c *LayoutCalculator) FieldOffset(t *Type, i int) int {
	return c.Calculate(t).FieldOffs[i]
}

func alignTo(offset, align int) int {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
