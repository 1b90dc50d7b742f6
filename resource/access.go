// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import "fmt"

// View is the kind of view through which a pass touches a resource.
type View uint8

const (
	// ViewNone means the resource has not been accessed yet.
	ViewNone View = iota

	// ViewSRV is a read-only shader resource view (sampled texture, uniform
	// or read-only storage buffer).
	ViewSRV

	// ViewUAV is an unordered-access view (storage texture or storage buffer).
	ViewUAV

	// ViewRT is a render-target / attachment view. Images only.
	ViewRT
)

// String returns the conventional short name of the view.
func (v View) String() string {
	switch v {
	case ViewNone:
		return "none"
	case ViewSRV:
		return "srv"
	case ViewUAV:
		return "uav"
	case ViewRT:
		return "rt"
	default:
		return fmt.Sprintf("View(%d)", uint8(v))
	}
}

// Mode distinguishes reads from writes.
type Mode uint8

const (
	// ModeNone pairs with ViewNone.
	ModeNone Mode = iota
	// ModeRead is a read-only access.
	ModeRead
	// ModeWrite is an access that may modify the resource.
	ModeWrite
)

// String returns "read", "write" or "none".
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Access is one declared use of a resource: what is done and through which
// view. The zero value is AccessNone.
type Access struct {
	Mode Mode
	View View
}

// Common accesses.
var (
	AccessNone         = Access{}
	AccessShaderRead   = Access{Mode: ModeRead, View: ViewSRV}
	AccessStorageRead  = Access{Mode: ModeRead, View: ViewUAV}
	AccessStorageWrite = Access{Mode: ModeWrite, View: ViewUAV}
	AccessTargetRead   = Access{Mode: ModeRead, View: ViewRT}
	AccessTargetWrite  = Access{Mode: ModeWrite, View: ViewRT}
)

// IsNone reports whether a is the "never accessed" state.
func (a Access) IsNone() bool { return a.Mode == ModeNone }

// IsWrite reports whether a may modify the resource.
func (a Access) IsWrite() bool { return a.Mode == ModeWrite }

// String returns e.g. "write/uav".
func (a Access) String() string {
	if a.IsNone() {
		return "none"
	}
	return a.Mode.String() + "/" + a.View.String()
}

// Valid reports whether a is a well-formed non-empty access.
func (a Access) Valid() bool {
	if a.Mode != ModeRead && a.Mode != ModeWrite {
		return false
	}
	return a.View == ViewSRV || a.View == ViewUAV || a.View == ViewRT
}

// SyncType controls barrier placement between two identical write accesses.
type SyncType uint8

const (
	// AlwaysSync inserts a barrier between consecutive writes even when they
	// use the same view.
	AlwaysSync SyncType = iota

	// SkipSyncIfSame omits the barrier when the previous access is the same
	// write. Used by passes that write disjoint regions.
	SkipSyncIfSame
)

// NeedsBarrier reports whether a barrier must be recorded between two
// consecutive accesses of the same resource. It is a pure function of the
// pair, so barrier placement is deterministic for a given graph.
func NeedsBarrier(prev, next Access, sync SyncType) bool {
	switch {
	case prev.IsNone():
		return false
	case prev.Mode == ModeRead && next.Mode == ModeRead && prev.View == next.View:
		return false
	case prev == next && next.IsWrite() && sync == SkipSyncIfSame:
		return false
	default:
		return true
	}
}

// ViewTag is the type-level tag of a view mode carried by Ref.
type ViewTag interface {
	View() View
}

// SRV tags read-only shader resource refs.
type SRV struct{}

// View implements ViewTag.
func (SRV) View() View { return ViewSRV }

// UAV tags unordered-access refs.
type UAV struct{}

// View implements ViewTag.
func (UAV) View() View { return ViewUAV }

// RT tags render-target refs.
type RT struct{}

// View implements ViewTag.
func (RT) View() View { return ViewRT }

// Ref is a handle plus the view mode a pass requested for it. Several refs
// may alias one handle with different views across passes.
type Ref[K Kind, V ViewTag] struct {
	handle Handle[K]
}

// NewRef wraps h in a Ref with view V.
func NewRef[K Kind, V ViewTag](h Handle[K]) Ref[K, V] {
	return Ref[K, V]{handle: h}
}

// Handle returns the referenced handle.
func (r Ref[K, V]) Handle() Handle[K] { return r.handle }

// View returns the view mode of r.
func (r Ref[K, V]) View() View {
	var v V
	return v.View()
}

// Raw returns the raw handle of the referenced resource.
func (r Ref[K, V]) Raw() RawHandle { return r.handle.Raw() }

// IsInvalid reports whether r refers to the INVALID handle.
func (r Ref[K, V]) IsInvalid() bool { return r.handle.IsInvalid() }
