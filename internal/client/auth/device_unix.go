//go:build unix

package auth

import "golang.org/x/sys/unix"

// A process running as root is treated like a rooted handset.
func effectiveUID() int { return unix.Geteuid() }
