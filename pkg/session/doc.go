/*
Package session serializes work on a correlation id and fronts checkpoint
persistence.

Runs that share a correlation id never overlap: the Manager holds a
reference-counted in-process lock per id and, when configured, a distributed
lock so replicas behind a load balancer observe the same ordering.
*/
package session
