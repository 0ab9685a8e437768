package tensor

import "testing"

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{5}, 5},
		{Shape{2, 3}, 6},
		{Shape{1, 3, 224, 224}, 150528},
	}
	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("NumElements(%v): expected %d, got %d", tt.shape, tt.want, got)
		}
	}
}

func TestShapeValidate(t *testing.T) {
	if err := (Shape{1, 2, 3}).Validate(); err != nil {
		t.Errorf("Valid shape rejected: %v", err)
	}
	if err := (Shape{1, 0}).Validate(); err == nil {
		t.Error("Expected error for zero dimension")
	}
	if err := (Shape{-2}).Validate(); err == nil {
		t.Error("Expected error for negative dimension")
	}
}

func TestShapeEqual(t *testing.T) {
	if !(Shape{1, 2}).Equal(Shape{1, 2}) {
		t.Error("Equal shapes reported unequal")
	}
	if (Shape{1, 2}).Equal(Shape{2, 1}) {
		t.Error("Unequal shapes reported equal")
	}
	if (Shape{1, 2}).Equal(Shape{1, 2, 3}) {
		t.Error("Different ranks reported equal")
	}
}

func TestShapeClone(t *testing.T) {
	s := Shape{1, 2, 3}
	c := s.Clone()
	c[0] = 9
	if s[0] != 1 {
		t.Error("Clone shares backing array")
	}
}

func TestComputeStrides(t *testing.T) {
	strides := Shape{2, 3, 4}.ComputeStrides()
	want := []int{12, 4, 1}
	for i := range want {
		if strides[i] != want[i] {
			t.Errorf("Stride %d: expected %d, got %d", i, want[i], strides[i])
		}
	}
}
