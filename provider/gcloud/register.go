package gcloud

import (
	"github.com/psetup/psetup/resource"
)

type registry interface {
	Register(resource.Descriptor)
}

// Register adds all supported Google Cloud resource kinds to the registry.
func Register(reg registry) {
	reg.Register(&Project{})
	reg.Register(&TagKey{})
	reg.Register(&TagValue{})
	reg.Register(&Folder{})
	reg.Register(&ServiceAccount{})
	reg.Register(&Role{})
	reg.Register(&WorkloadIdentityPool{})
	reg.Register(&WorkloadIdentityProvider{})
}
