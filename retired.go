package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/resource"
)

// BarrierRecord describes one barrier recorded by Execute.
type BarrierRecord struct {
	Pass     int
	PassName string
	Resource resource.RawHandle
	From     resource.Access
	To       resource.Access
}

// String returns a compact description such as "taa: image#3 write/uav -> read/srv".
func (b BarrierRecord) String() string {
	return fmt.Sprintf("%s: %v %v -> %v", b.PassName, b.Resource, b.From, b.To)
}

// AccessRecord is one access of a resource as seen by the registry.
type AccessRecord struct {
	Pass   int
	Access resource.Access
}

// Lifetime is the span of passes that touched one resource.
type Lifetime struct {
	Resource  resource.RawHandle
	Name      string
	Transient bool
	Exported  bool
	// First and Last are pass indices, both -1 if no pass used the resource.
	First int
	Last  int
}

// RetiredStats summarizes an executed frame.
type RetiredStats struct {
	Passes    int
	Resources int
	Barriers  int
	Released  int
	Exported  int
}

// String returns a human-readable summary.
func (s RetiredStats) String() string {
	return fmt.Sprintf("Frame[%d passes, %d resources, %d barriers, %d released, %d exported]",
		s.Passes, s.Resources, s.Barriers, s.Released, s.Exported)
}

// Retired is the record of an executed graph.
type Retired struct {
	Frame    uint64
	Barriers []BarrierRecord
	Stats    RetiredStats

	passNames []string
	lifetimes []Lifetime
	accesses  [][]AccessRecord
}

func newRetired(g *Graph, frame uint64) *Retired {
	r := &Retired{
		Frame:     frame,
		passNames: make([]string, len(g.passes)),
		lifetimes: make([]Lifetime, len(g.resources)),
		accesses:  make([][]AccessRecord, len(g.resources)),
	}
	for i, p := range g.passes {
		r.passNames[i] = p.name
	}
	for i := range g.resources {
		info := &g.resources[i]
		//nolint:gosec // G115: index bounded by resource count
		h := resource.NewRawHandle(info.kind, uint32(i))
		r.lifetimes[i] = Lifetime{
			Resource:  h,
			Name:      info.label(h),
			Transient: info.origin == originCreated,
			Exported:  info.exported(),
			First:     -1,
			Last:      -1,
		}
	}
	return r
}

func (r *Retired) noteAccess(h resource.RawHandle, pass int, a resource.Access) {
	i := h.Index()
	r.accesses[i] = append(r.accesses[i], AccessRecord{Pass: pass, Access: a})
	lt := &r.lifetimes[i]
	if lt.First < 0 {
		lt.First = pass
	}
	lt.Last = pass
}

// Accesses returns the accesses of h in the order the registry applied them.
func (r *Retired) Accesses(h resource.Referent) []AccessRecord {
	raw := h.Raw()
	if raw.IsInvalid() || int(raw.Index()) >= len(r.accesses) {
		return nil
	}
	out := make([]AccessRecord, len(r.accesses[raw.Index()]))
	copy(out, r.accesses[raw.Index()])
	return out
}

// BarriersFor returns the barriers recorded for h.
func (r *Retired) BarriersFor(h resource.Referent) []BarrierRecord {
	raw := h.Raw()
	var out []BarrierRecord
	for _, b := range r.Barriers {
		if b.Resource == raw {
			out = append(out, b)
		}
	}
	return out
}

// PassNames returns the names of the executed passes in order.
func (r *Retired) PassNames() []string {
	out := make([]string, len(r.passNames))
	copy(out, r.passNames)
	return out
}

// Lifetimes returns one entry per resource of the graph, in handle order.
func (r *Retired) Lifetimes() []Lifetime {
	out := make([]Lifetime, len(r.lifetimes))
	copy(out, r.lifetimes)
	return out
}
