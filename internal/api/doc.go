// Package api exposes the HTTP surface: task submission and inspection
// for trusted internal clients, and public artifact serving for the
// provider and end users.
package api
