package filter

import "bytes"

// extSeparator splits extension allowlist arguments.
const extSeparator = ','

// ParseExtensions splits each argument on commas and returns the extensions
// without their leading dot. Arguments are treated as raw bytes, so values
// that are not valid UTF-8 pass through unchanged. Empty items are dropped.
func ParseExtensions(args ...string) []string {
	var exts []string
	for _, arg := range args {
		for _, item := range bytes.Split([]byte(arg), []byte{extSeparator}) {
			item = bytes.TrimPrefix(item, []byte{'.'})
			if len(item) == 0 {
				continue
			}
			exts = append(exts, string(item))
		}
	}
	return exts
}
