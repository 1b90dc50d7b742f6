package resource

import "testing"

func TestNeedsBarrier(t *testing.T) {
	tests := []struct {
		name string
		prev Access
		next Access
		sync SyncType
		want bool
	}{
		{"first use", AccessNone, AccessStorageWrite, AlwaysSync, false},
		{"read after read same view", AccessShaderRead, AccessShaderRead, AlwaysSync, false},
		{"read after read different view", AccessShaderRead, AccessTargetRead, AlwaysSync, true},
		{"uav write then srv read", AccessStorageWrite, AccessShaderRead, AlwaysSync, true},
		{"srv read then uav write", AccessShaderRead, AccessStorageWrite, AlwaysSync, true},
		{"write after write always", AccessStorageWrite, AccessStorageWrite, AlwaysSync, true},
		{"write after write skip", AccessStorageWrite, AccessStorageWrite, SkipSyncIfSame, false},
		{"skip only applies to identical writes", AccessTargetWrite, AccessStorageWrite, SkipSyncIfSame, true},
		{"rt write then srv", AccessTargetWrite, AccessShaderRead, AlwaysSync, true},
		{"storage read then storage read", AccessStorageRead, AccessStorageRead, AlwaysSync, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsBarrier(tt.prev, tt.next, tt.sync); got != tt.want {
				t.Errorf("NeedsBarrier(%v, %v, %v) = %v, want %v", tt.prev, tt.next, tt.sync, got, tt.want)
			}
		})
	}
}

// Any write followed by an access of a different kind needs a barrier,
// whatever the sync type.
func TestNeedsBarrierWriteThenDifferent(t *testing.T) {
	all := []Access{AccessShaderRead, AccessStorageRead, AccessStorageWrite, AccessTargetRead, AccessTargetWrite}
	for _, prev := range all {
		if !prev.IsWrite() {
			continue
		}
		for _, next := range all {
			if next == prev {
				continue
			}
			for _, s := range []SyncType{AlwaysSync, SkipSyncIfSame} {
				if !NeedsBarrier(prev, next, s) {
					t.Errorf("NeedsBarrier(%v, %v, %v) = false", prev, next, s)
				}
			}
		}
	}
}

func TestAccessValid(t *testing.T) {
	if AccessNone.Valid() {
		t.Error("AccessNone.Valid() = true")
	}
	if !AccessTargetWrite.Valid() {
		t.Error("AccessTargetWrite.Valid() = false")
	}
	if (Access{Mode: ModeWrite}).Valid() {
		t.Error("access without view reported valid")
	}
	if got := AccessStorageWrite.String(); got != "write/uav" {
		t.Errorf("String() = %q", got)
	}
}

func TestRefView(t *testing.T) {
	h := NewHandle[ImageResource](0)
	srv := NewRef[ImageResource, SRV](h)
	uav := NewRef[ImageResource, UAV](h)
	rt := NewRef[ImageResource, RT](h)

	if srv.View() != ViewSRV || uav.View() != ViewUAV || rt.View() != ViewRT {
		t.Errorf("views = %v %v %v", srv.View(), uav.View(), rt.View())
	}
	if srv.Handle() != h || uav.Raw() != h.Raw() {
		t.Error("refs do not alias the same handle")
	}
}
