// Package testutils provides fixtures shared by the package tests: box meshes, STEP files of
// either kind, and a mesher that needs no external tools.
package testutils

import (
	"go.uber.org/goleak"
)

// VerifyTestMain runs the package tests and fails if any goroutine outlives them.
func VerifyTestMain(m goleak.TestingM) {
	goleak.VerifyTestMain(m)
}
