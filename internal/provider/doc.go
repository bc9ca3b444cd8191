// Package provider implements the HTTP client for the generation
// gateway: request submission in two dispatch shapes and long-polling
// for terminal results, with retry and backoff on transient failures.
package provider
