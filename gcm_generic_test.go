//go:build !(amd64 || arm64) || !gc || purego

package gcm

import "testing"

func runTests(t *testing.T, fn func(t *testing.T)) {
	t.Run("serial", fn)
}
