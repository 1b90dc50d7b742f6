package cache

import "sort"

// idleEntry is a pooled physical object plus the frame it became idle.
type idleEntry[O any] struct {
	obj      O
	released uint64
}

// idlePool groups idle objects by exact descriptor. Each bucket is ordered by
// release frame (ascending) because releases are published frame by frame.
type idlePool[D comparable, O any] struct {
	buckets map[D][]idleEntry[O]
	count   int
}

func newIdlePool[D comparable, O any]() *idlePool[D, O] {
	return &idlePool[D, O]{buckets: make(map[D][]idleEntry[O])}
}

// push inserts obj into the bucket for desc, keeping release order. Entries
// with the same release frame keep insertion order.
func (p *idlePool[D, O]) push(desc D, obj O, released uint64) {
	bucket := p.buckets[desc]
	i := sort.Search(len(bucket), func(i int) bool { return bucket[i].released > released })
	bucket = append(bucket, idleEntry[O]{})
	copy(bucket[i+1:], bucket[i:])
	bucket[i] = idleEntry[O]{obj: obj, released: released}
	p.buckets[desc] = bucket
	p.count++
}

// pop removes and returns the most recently released object of shape desc
// whose release frame is <= latest. Retrieval is LIFO among eligible entries.
func (p *idlePool[D, O]) pop(desc D, latest uint64) (O, bool) {
	bucket := p.buckets[desc]
	// Eligible entries form a prefix of the bucket.
	n := sort.Search(len(bucket), func(i int) bool { return bucket[i].released > latest })
	if n == 0 {
		var zero O
		return zero, false
	}
	e := bucket[n-1]
	bucket = append(bucket[:n-1], bucket[n:]...)
	if len(bucket) == 0 {
		delete(p.buckets, desc)
	} else {
		p.buckets[desc] = bucket
	}
	p.count--
	return e.obj, true
}

// evict removes every entry released before frame cutoff and passes each
// object to destroy. It returns the number of evicted objects.
func (p *idlePool[D, O]) evict(cutoff uint64, destroy func(O)) int {
	evicted := 0
	for desc, bucket := range p.buckets {
		n := sort.Search(len(bucket), func(i int) bool { return bucket[i].released >= cutoff })
		for _, e := range bucket[:n] {
			destroy(e.obj)
		}
		evicted += n
		if n == len(bucket) {
			delete(p.buckets, desc)
			continue
		}
		if n > 0 {
			p.buckets[desc] = append(bucket[:0:0], bucket[n:]...)
		}
	}
	p.count -= evicted
	return evicted
}

// drain destroys every entry.
func (p *idlePool[D, O]) drain(destroy func(O)) int {
	n := p.count
	for desc, bucket := range p.buckets {
		for _, e := range bucket {
			destroy(e.obj)
		}
		delete(p.buckets, desc)
	}
	p.count = 0
	return n
}

// len returns the number of idle objects.
func (p *idlePool[D, O]) len() int { return p.count }

// bucketLen returns the number of idle objects of shape desc.
func (p *idlePool[D, O]) bucketLen(desc D) int { return len(p.buckets[desc]) }
