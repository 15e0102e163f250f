//go:build tools
// +build tools

// Package tools tracks Go-based tools invoked via go generate, such as
// mockgen, as module dependencies.
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
