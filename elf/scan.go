package elf

import "strings"

var sourceExtensions = []string{
	".c", ".cc", ".cpp", ".cxx", ".h", ".hh", ".hpp", ".hxx",
	".go", ".rs", ".f", ".f90", ".adb", ".ads", ".s", ".S",
}

// ScanSourcePaths is the last-resort extractor: it walks raw bytes for
// NUL-terminated printable runs shaped like source paths. Approximate on
// purpose; callers rank its output below any structured parse.
func ScanSourcePaths(raw []byte) (paths []string) {
	seen := map[string]struct{}{}
	for i := 0; i < len(raw); {
		if !startByte(raw[i]) {
			i++
			continue
		}
		j := i
		for j < len(raw) && printable(raw[j]) {
			j++
		}
		// Require the NUL terminator; a run cut off by the buffer end or by
		// an unprintable byte is not a stored string.
		if j < len(raw) && raw[j] == 0 {
			if s := string(raw[i:j]); looksLikeSourcePath(s) {
				if _, dup := seen[s]; !dup {
					seen[s] = struct{}{}
					paths = append(paths, s)
				}
			}
		}
		i = j + 1
	}
	return
}

func looksLikeSourcePath(s string) bool {
	if len(s) < 4 || len(s) > 512 {
		return false
	}
	if !strings.ContainsRune(s, '/') {
		return false
	}
	for _, ext := range sourceExtensions {
		if strings.HasSuffix(s, ext) {
			return true
		}
	}
	return false
}

func startByte(b byte) bool {
	return b == '/' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func printable(b byte) bool { return b >= 0x20 && b < 0x7f }
