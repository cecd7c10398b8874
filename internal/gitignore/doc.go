// Package gitignore provides gitignore pattern matching functionality.
//
// It implements the gitignore pattern syntax as documented at:
// https://git-scm.com/docs/gitignore
//
// Features:
//   - Basic pattern matching (*.log, temp/)
//   - Wildcard patterns (*, ?, **, [abc], [!abc])
//   - Rooted patterns (/build)
//   - Negation patterns (!important.log)
//   - Directory-only patterns (build/)
//   - Per-pattern base directories, so patterns from nested ignore files
//     only apply beneath the directory holding the file
//   - Thread-safe matching
//
// The last matching pattern decides: a later negation re-includes a path an
// earlier pattern ignored, and a later plain pattern ignores it again.
//
// Usage:
//
//	m := gitignore.New()
//	_ = m.AddPattern("*.log")
//	_ = m.AddPattern("!important.log")
//	_ = m.AddPatternWithBase("/build/", "/home/me/project")
//
//	if m.Match("error.log", false) {
//	    // File is ignored
//	}
package gitignore
