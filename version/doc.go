// Package version reports build information for the service binary.
//
// Version and BuildTime are set at link time:
//
//	go build -ldflags "-X github.com/NathanNam/caltrain-commuter-app/version.Version=1.4.0" ./cmd/caltrain-realtime
//
// The commit and dirty flag fall back to the VCS stamp embedded by the Go
// toolchain.
package version
