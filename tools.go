//go:build tools
// +build tools

// Package tools pins the code generators run by go generate, so go.mod
// tracks their versions.
package roomchat

import (
	_ "go.uber.org/mock/mockgen"
)
