// Package vx is an in-process vision graph runtime.
//
// A Context owns every object: images, arrays, scalars, graphs and the
// kernel registry spread over its targets. Kernels come either built in,
// published by a TargetProvider when the context is created, or from
// extension modules loaded by name through LoadKernels.
//
// A Graph is built by instantiating kernels as nodes and binding data
// objects to their parameters. Verify checks the graph and orders its nodes;
// Process runs it, executing independent nodes concurrently. Every call
// reports a Status, either directly or wrapped in the returned error:
//
//	if err := g.Process(ctx); err != nil {
//		log.Printf("graph failed with status %d", vx.StatusOf(err))
//	}
//
// Objects are reference counted. Release drops the caller's handle; an
// object bound to a node stays alive until the node's graph goes away.
package vx
