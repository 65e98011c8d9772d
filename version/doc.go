// Package version reports the build version of inferstream.
//
// Version and commit are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/inferstream/version.Version=1.2.0"
//
// When unset, the commit and build time fall back to the VCS stamps Go
// embeds in the binary.
package version
