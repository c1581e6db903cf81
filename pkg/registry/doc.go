// Package registry maps names to step and router implementations so graphs
// can be declared in data and compiled later.
package registry
