package resource

import (
	"fmt"
	"reflect"
	"strings"
)

// A Field is a declared attribute in a resource kind's struct.
type Field struct {
	Name    string       // Struct tag name, 'foo' in attr:"foo".
	Set     bool         // Compared as a set; element order never diffs.
	Managed bool         // Fully managed; diffed even when declared empty.
	Index   int          // Field index.
	Type    reflect.Type // Field type.
}

const attrStructTag = "attr"

// Fields returns the attribute fields declared on t.
//
// Attributes are declared by struct tags:
//
//	type TagKey struct {
//	    Parent      string   `attr:"parent"`
//	    Description string   `attr:"description"`
//	    Permissions []string `attr:"permissions,set"`
//	}
//
// The tag accepts the options 'set' (the value is compared as a set) and
// 'managed' (the attribute is authoritative; an empty declared value means
// empty, not unset).
//
// Panics if the target is not a struct or an attr tag is set on an
// unexported field. Fields without an attr tag are ignored; they are
// identity or relationship fields, not diffable attributes.
func Fields(target reflect.Type) []Field {
	if target.Kind() == reflect.Ptr {
		target = target.Elem()
	}
	if target.Kind() != reflect.Struct {
		panic(fmt.Sprintf("Target must be a struct, not %s", target.Kind()))
	}
	var fields []Field
	for i := 0; i < target.NumField(); i++ {
		f := target.Field(i)
		tag, ok := f.Tag.Lookup(attrStructTag)
		if !ok {
			continue
		}
		if f.PkgPath != "" {
			panic(fmt.Sprintf("Unexported field %q declared as attribute", f.Name))
		}
		res := Field{Name: tag, Index: i, Type: f.Type}
		if comma := strings.Index(tag, ","); comma >= 0 {
			res.Name = tag[:comma]
			for _, opt := range strings.Split(tag[comma+1:], ",") {
				switch opt {
				case "set":
					res.Set = true
				case "managed":
					res.Managed = true
				default:
					panic(fmt.Sprintf("Unknown attr option %q on field %q", opt, f.Name))
				}
			}
		}
		if res.Name == "" {
			panic(fmt.Sprintf("Empty attribute name on field %q", f.Name))
		}
		fields = append(fields, res)
	}
	return fields
}
