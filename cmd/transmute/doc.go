// Command transmute is the batch media-image converter CLI. It wraps the
// conversion engine with commands for running batches, listing routines,
// inspecting past runs, and managing configuration.
package main
