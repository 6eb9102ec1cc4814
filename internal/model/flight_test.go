package model

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

func buildVectorList(t *testing.T, dim, rows int) *array.FixedSizeList {
	t.Helper()
	b := array.NewFixedSizeListBuilder(memory.DefaultAllocator, int32(dim), arrow.PrimitiveTypes.Float32)
	defer b.Release()
	vb := b.ValueBuilder().(*array.Float32Builder)
	for r := 0; r < rows; r++ {
		b.Append(true)
		for j := 0; j < dim; j++ {
			vb.Append(float32(r*dim + j))
		}
	}
	return b.NewArray().(*array.FixedSizeList)
}

func TestVectorAt(t *testing.T) {
	const dim = 4
	lst := buildVectorList(t, dim, 3)
	defer lst.Release()

	values := lst.ListValues().(*array.Float32)
	for r := 0; r < 3; r++ {
		vec := vectorAt(lst, values, r, dim)
		for j := 0; j < dim; j++ {
			if want := float32(r*dim + j); vec[j] != want {
				t.Fatalf("row %d[%d] = %v, want %v", r, j, vec[j], want)
			}
		}
	}
}

func TestVectorAtSlicedList(t *testing.T) {
	const dim = 4
	lst := buildVectorList(t, dim, 5)
	defer lst.Release()

	// A record stream may hand back a slice of a larger batch; the row's
	// values must come from the sliced window, not from the array start.
	sliced := array.NewSlice(lst, 2, 5).(*array.FixedSizeList)
	defer sliced.Release()

	values := sliced.ListValues().(*array.Float32)
	for r := 0; r < 3; r++ {
		vec := vectorAt(sliced, values, r, dim)
		for j := 0; j < dim; j++ {
			if want := float32((r+2)*dim + j); vec[j] != want {
				t.Fatalf("sliced row %d[%d] = %v, want %v", r, j, vec[j], want)
			}
		}
	}
}
