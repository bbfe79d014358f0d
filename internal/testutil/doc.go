// Package testutil provides deterministic doubles shared by tests across
// packages. It depends only on protocol so any package's tests may use it.
package testutil
