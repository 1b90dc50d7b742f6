// Package framegraph schedules the GPU work of one frame.
//
// # Overview
//
// A frame is declared as a Graph: logical resources (images and buffers)
// plus an ordered list of passes, each declaring which resources it reads
// and writes and through which view. Executing the graph binds every
// logical resource to a physical object, records the synchronization
// barriers the declared accesses require, and calls each pass's recorder in
// order. Passes run in the order they were built; there is no reordering.
//
// # Quick Start
//
//	exec := framegraph.New(device)
//	g := exec.BeginGraph()
//
//	desc := resource.NewImage2D(256, 256, gputypes.TextureFormatRGBA8Unorm)
//	img, err := g.CreateImage(desc, "scene")
//	if err != nil {
//	    return err
//	}
//
//	pb := g.AddPass("shade")
//	out := framegraph.Write(pb, img)
//	_, err = pb.Build(framegraph.RecordFunc(func(ctx *framegraph.PassContext) error {
//	    dispatch(ctx.Commands(), ctx.Image(out))
//	    return nil
//	}))
//
//	pb = g.AddPass("present")
//	in := framegraph.Read(pb, img)
//	_, err = pb.Build(framegraph.RecordFunc(func(ctx *framegraph.PassContext) error {
//	    blit(ctx.Commands(), ctx.Image(in))
//	    return nil
//	}))
//
//	retired, err := exec.Execute(g, recorder, frame)
//
// # Barriers
//
// For every declared access the registry compares the access with the
// previous one on the same resource; see resource.NeedsBarrier. The first
// use of a created resource needs no barrier. Imported resources start in
// the access given at import.
//
// # Resource Lifetimes
//
// Created resources are transient: they come from the executor's transient
// cache (package cache) and return to it at the end of the frame that last
// used them. Imported resources belong to the caller. To carry a resource
// into later frames, export it with Graph.ExportImage and import the export
// with Graph.ImportExportedImage; package temporal manages ping-pong and
// history rings of exports, and TemporalState keeps named persistent
// resources.
//
// # Errors
//
// Build-time mistakes (bad descriptors, forbidden accesses) are returned
// where they happen and also stick to the graph, which then refuses to
// execute. Device failures during execution are returned as *DeviceError
// naming the pass and resource. Contract violations, such as resolving an
// undeclared resource inside a pass, panic.
//
// # Logging
//
// framegraph logs through log/slog. By default nothing is logged; see
// SetLogger and WithLogger.
package framegraph
