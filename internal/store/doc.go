// Package store defines persistence interfaces and shared database
// abstractions used by the concrete storage implementations.
package store
