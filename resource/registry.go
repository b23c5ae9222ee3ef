package resource

import (
	"reflect"
	"sort"
)

// A Registry maintains a list of registered resource kinds.
type Registry struct {
	kinds map[string]reflect.Type
}

// RegistryFromDescriptors creates a new registry from a predefined list of
// kinds. It is primarily used in tests to set up a registry.
func RegistryFromDescriptors(defs ...Descriptor) *Registry {
	r := &Registry{}
	for _, def := range defs {
		r.Register(def)
	}
	return r
}

// Register adds a new resource kind.
//
// The Descriptor interface must be implemented on a pointer receiver on a
// struct. If another kind with the same name is already registered, it is
// overwritten.
//
// Not safe for concurrent access.
func (r *Registry) Register(def Descriptor) {
	if r.kinds == nil {
		r.kinds = make(map[string]reflect.Type)
	}
	r.kinds[def.Kind()] = reflect.TypeOf(def)
}

// New returns a new zero descriptor of the registered kind. Returns nil if
// the kind has not been registered.
func (r *Registry) New(kind string) Descriptor {
	t, ok := r.kinds[kind]
	if !ok {
		return nil
	}
	return reflect.New(t.Elem()).Interface().(Descriptor)
}

// Kinds returns the kind names that have been registered. The results are
// lexicographically sorted.
func (r *Registry) Kinds() []string {
	kk := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		kk = append(kk, k)
	}
	sort.Strings(kk)
	return kk
}
