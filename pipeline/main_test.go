package pipeline

import (
	"testing"

	"go.viam.com/cadpoints/testutils"
)

func TestMain(m *testing.M) {
	testutils.VerifyTestMain(m)
}
