// Package redis provides Redis-backed adapters: a checkpoint StateStore, a
// DistributedLocker and a record Directory.
package redis
