//go:build gc && !purego

package gcm

import (
	"testing"
)

func disableClmul(t *testing.T) {
	old := haveClmul
	t.Cleanup(func() {
		haveClmul = old
	})
	haveClmul = false
}

func runTests(t *testing.T, fn func(t *testing.T)) {
	if haveClmul {
		t.Run("pipelined", fn)
	}
	t.Run("serial", func(t *testing.T) {
		disableClmul(t)
		fn(t)
	})
}
