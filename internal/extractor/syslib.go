package extractor

import "strings"

var systemLibDirs = []string{
	"/usr/lib/", "/usr/lib64/", "/lib/", "/lib64/", "/usr/local/lib/",
}

// IsSystemLibrary classifies runtime/system libraries so batch extraction
// can skip them unless the host asked for them.
func IsSystemLibrary(path string) bool {
	for _, dir := range systemLibDirs {
		if strings.HasPrefix(path, dir) {
			return true
		}
	}
	return strings.Contains(path, "libc.so") || strings.Contains(path, "libstdc++")
}
