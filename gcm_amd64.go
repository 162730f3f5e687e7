//go:build gc && !purego

package gcm

import (
	"golang.org/x/sys/cpu"
)

// With PCLMULQDQ the multiply-reduce chain is cheap enough that the
// deep cipher lead pays for itself; otherwise the serial depth wins.
var haveClmul = cpu.X86.HasPCLMULQDQ
