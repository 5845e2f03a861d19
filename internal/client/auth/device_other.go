//go:build !unix

package auth

func effectiveUID() int { return -1 }
