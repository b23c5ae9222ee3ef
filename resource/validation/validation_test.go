package validation_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/psetup/psetup/resource"
	"github.com/psetup/psetup/resource/validation"
)

func Example_builtin() {
	v := validation.New()
	validation.AddBuiltin(v)

	tag := "min=5,max=6"

	fmt.Println(v.Validate("bar", tag))
	fmt.Println(v.Validate("foobar", tag))
	fmt.Println(v.Validate("foobarbaz", tag))
	// Output:
	// length must be at least 5 characters
	// <nil>
	// length must be at most 6 characters
}

func Example_customFunc() {
	v := validation.New()

	v.Add("eq", func(value interface{}, param string) error {
		str := fmt.Sprintf("%v", value)
		if str != param {
			return fmt.Errorf("value must be %q", param)
		}
		return nil
	})

	fmt.Println(v.Validate("bar", "eq=foo"))
	fmt.Println(v.Validate("foo", "eq=foo"))
	// Output:
	// value must be "foo"
	// <nil>
}

type poolDef struct {
	Project     string `validate:"required,prefix=projects/"`
	PoolID      string `validate:"required,min=4,max=32"`
	Description string `attr:"description" validate:"max=16"`
}

func (d *poolDef) Kind() string { return "pool" }
func (d *poolDef) Identity() resource.Identity {
	return resource.Identity{Scope: d.Project, Key: d.PoolID}
}

func TestValidator_Descriptor(t *testing.T) {
	v := validation.New()
	validation.AddBuiltin(v)

	ok := &poolDef{Project: "projects/root", PoolID: "org-pool", Description: "root pool"}
	if err := v.Descriptor(ok); err != nil {
		t.Fatalf("Descriptor() error = %v, want nil", err)
	}

	bad := &poolDef{Project: "organizations/123", PoolID: "x", Description: "a much too long description"}
	err := v.Descriptor(bad)
	if err == nil {
		t.Fatalf("Descriptor() error = nil, want error")
	}
	for _, want := range []string{"Project", "PoolID", "description"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Descriptor() error %q does not mention %s", err, want)
		}
	}
}

func TestValidator_unknownRule(t *testing.T) {
	v := validation.New()
	err := v.Validate("foo", "nonexisting")
	if _, ok := err.(validation.InvalidRuleError); !ok {
		t.Errorf("Validate() error = %T, want InvalidRuleError", err)
	}
}
