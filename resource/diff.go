package resource

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
)

// A Mask is the ordered set of attribute names that differ between a
// declared and an existing resource. An empty mask means the resource has
// already converged and no update is needed.
type Mask []string

// Empty returns true if no attributes need updating.
func (m Mask) Empty() bool { return len(m) == 0 }

// Contains returns true if the mask includes the named attribute.
func (m Mask) Contains(name string) bool {
	for _, n := range m {
		if n == name {
			return true
		}
	}
	return false
}

// setCmp compares set-like values ignoring element order. Empty and nil
// collections are equal.
var setCmp = []cmp.Option{
	cmpopts.SortSlices(func(a, b string) bool { return a < b }),
	cmpopts.EquateEmpty(),
}

// Diff computes the minimal set of attributes that must change on existing
// to match declared. It is pure: no I/O, deterministic output order (struct
// declaration order).
//
// Scalar attributes diff on inequality. Set attributes diff on content,
// never on order. An attribute left at its zero value in declared is
// treated as unset and ignored, unless the field is declared 'managed';
// attributes only present on the existing resource are never removed.
//
// Both descriptors must be the same kind; diffing across kinds is a
// programming error.
func Diff(declared, existing Descriptor) (Mask, error) {
	if declared.Kind() != existing.Kind() {
		return nil, errors.Errorf("cannot diff %s against %s", declared.Kind(), existing.Kind())
	}
	dv := reflect.Indirect(reflect.ValueOf(declared))
	ev := reflect.Indirect(reflect.ValueOf(existing))
	if dv.Type() != ev.Type() {
		return nil, errors.Errorf("mismatched descriptor types %s and %s", dv.Type(), ev.Type())
	}

	var mask Mask
	for _, f := range Fields(dv.Type()) {
		d := dv.Field(f.Index)
		e := ev.Field(f.Index)
		if d.IsZero() && !f.Managed {
			// Not declared; the caller did not ask for a value.
			continue
		}
		opts := []cmp.Option{cmpopts.EquateEmpty()}
		if f.Set {
			opts = setCmp
		}
		if !cmp.Equal(d.Interface(), e.Interface(), opts...) {
			mask = append(mask, f.Name)
		}
	}
	return mask, nil
}
