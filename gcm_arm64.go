//go:build gc && !purego

package gcm

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

var haveClmul = runtime.GOOS == "darwin" ||
	runtime.GOOS == "ios" ||
	cpu.ARM64.HasPMULL
