// Package dag holds the dependency graph between the nodes of a vision
// graph. It answers ordering questions (topological order, cycles) and leaves
// execution to package executor.
package dag
