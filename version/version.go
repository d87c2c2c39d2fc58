package version

import (
	"fmt"
	"runtime"
)

// Stamped at build time via -ldflags.
var (
	VERSION  = "unknown"
	REVISION = "HEAD"
	BUILTAT  = "now"
)

// String renders the build stamp.
func String() string {
	version := ""
	version += fmt.Sprintf("Version:        %s\n", VERSION)
	version += fmt.Sprintf("Git hash:       %s\n", REVISION)
	version += fmt.Sprintf("Built:          %s\n", BUILTAT)
	version += fmt.Sprintf("Golang version: %s\n", runtime.Version())
	version += fmt.Sprintf("OS/Arch:        %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return version
}
