package resource

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistry(t *testing.T) {
	r := RegistryFromDescriptors(&roleDef{}, &otherDef{})

	if diff := cmp.Diff(r.Kinds(), []string{"other", "role"}); diff != "" {
		t.Errorf("Kinds() (-got +want)\n%s", diff)
	}

	got := r.New("role")
	if _, ok := got.(*roleDef); !ok {
		t.Errorf("New(role) = %T, want *roleDef", got)
	}
	if got == interface{}(r.New("role")) {
		t.Errorf("New(role) returned the same instance twice")
	}

	if r.New("nonexisting") != nil {
		t.Errorf("New(nonexisting) != nil")
	}
}
