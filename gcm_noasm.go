//go:build !(amd64 || arm64) || !gc || purego

package gcm

var haveClmul = false
