// Package cache provides the GPU object pools used by the frame graph.
//
// Transient lends physical images and buffers to a single frame graph
// execution and takes them back when the graph no longer needs them.
// Objects are matched by exact descriptor equality and returned
// most-recently-released first, which keeps the working set small and
// tends to hand out objects that are still resident in caches.
//
// Releases made while a frame is open are held back until EndFrame, so an
// object released by one pass is never handed to a later pass of the same
// frame. Config.FramesInFlight further delays reuse until the GPU can no
// longer be reading the object, and Maintain destroys objects that stayed
// idle longer than Config.Retention frames:
//
//	c := cache.NewTransient(device, cache.DefaultConfig())
//	_ = c.BeginFrame(frame)
//	img, err := c.AcquireImage(desc, "bloom.down0")
//	...
//	c.ReleaseImage(img, frame)
//	_ = c.EndFrame()
//	c.Maintain()
//
// Keyed is a small sharded LRU for derived objects shared by every frame,
// such as compiled shader modules.
package cache
