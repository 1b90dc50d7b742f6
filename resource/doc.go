// Package resource defines the value types shared by every part of the frame
// graph: typed handles and refs, access kinds and the barrier rule, image and
// buffer descriptors, and the interfaces of the device collaborator.
//
// Handles are generic over a kind tag (ImageResource, BufferResource) rather
// than over physical types, so this package has no dependency on any GPU API
// beyond the gputypes enums used in descriptors.
//
//	h := resource.NewHandle[resource.ImageResource](3)
//	r := resource.NewRef[resource.ImageResource, resource.UAV](h)
//	_ = r.View() // resource.ViewUAV
//
// The barrier rule is a pure function of two consecutive accesses:
//
//	resource.NeedsBarrier(resource.AccessStorageWrite, resource.AccessShaderRead, resource.AlwaysSync) // true
//	resource.NeedsBarrier(resource.AccessShaderRead, resource.AccessShaderRead, resource.AlwaysSync)   // false
package resource
