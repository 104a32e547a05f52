// Package tables defines the editable world tables and registers them with
// the core registry from init functions. cmd/server blank-imports it.
package tables
