// Package domain contains the core entities of the task execution
// engine, independent of storage and transport concerns.
package domain
