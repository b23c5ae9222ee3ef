package resource

import "fmt"

// An Identity locates a resource within the remote system.
//
// Identity fields are immutable: a descriptor with a different identity
// describes a different resource, never an update to an existing one.
type Identity struct {
	// Scope is the parent the resource lives under, for example an
	// organization, folder or project name.
	Scope string

	// Key is the stable identifier within the scope, for example a tag
	// key's short name or a pool id.
	Key string
}

func (id Identity) String() string { return fmt.Sprintf("%s/%s", id.Scope, id.Key) }

// A Descriptor declares the desired state for a single resource.
//
// All resource kinds must implement this interface on a pointer receiver on
// a struct. Attributes are declared with `attr` struct tags and enumerated
// with Fields. Relationships to other resources are plain identity fields,
// resolved by the caller before the descriptor is constructed.
type Descriptor interface {
	// Kind returns the kind name for the resource.
	//
	// The name is used for matching the descriptor to its adapter and is
	// included in every error raised while reconciling the resource.
	Kind() string

	// Identity returns the identity the resource is matched on.
	Identity() Identity
}
