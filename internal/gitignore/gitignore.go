package gitignore

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Result is the outcome of matching a path against a Matcher.
type Result int

const (
	// NoMatch means no pattern matched the path.
	NoMatch Result = iota
	// Ignore means the last matching pattern was a plain pattern.
	Ignore
	// Whitelist means the last matching pattern was a negation.
	Whitelist
)

// String returns a human-readable representation of the result.
func (r Result) String() string {
	switch r {
	case Ignore:
		return "ignore"
	case Whitelist:
		return "whitelist"
	default:
		return "none"
	}
}

// Matcher holds compiled gitignore patterns and provides thread-safe matching.
type Matcher struct {
	rules []rule
	mu    sync.RWMutex
}

// rule represents a single compiled gitignore pattern.
type rule struct {
	pattern  string         // original pattern
	regex    *regexp.Regexp // compiled regex
	negation bool           // starts with !
	dirOnly  bool           // ends with /
	anchored bool           // contains / or starts with /
	base     string         // base directory, slash separated
}

// New creates a new empty Matcher.
func New() *Matcher {
	return &Matcher{
		rules: make([]rule, 0),
	}
}

// Len returns the number of compiled patterns.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// AddPattern adds a gitignore pattern that applies to every path.
func (m *Matcher) AddPattern(pattern string) error {
	return m.AddPatternWithBase(pattern, "")
}

// AddPatternWithBase adds a pattern that only applies under the given base
// directory. Paths passed to Match are made relative to base before the
// pattern is tested. Blank lines and comments are accepted and ignored.
func (m *Matcher) AddPatternWithBase(pattern, base string) error {
	// Handle trailing spaces escaped with backslash BEFORE trimming
	// Per gitignore(5), "\ " at end preserves the space
	hasEscapedTrailingSpace := strings.HasSuffix(pattern, `\ `)

	pattern = strings.TrimSpace(pattern)

	// Skip empty lines and comments
	if pattern == "" || (strings.HasPrefix(pattern, "#") && !strings.HasPrefix(pattern, `\#`)) {
		return nil
	}

	r := rule{
		pattern: pattern,
		base:    normalizeBase(base),
	}

	// Handle escaped leading # or !
	if strings.HasPrefix(pattern, `\#`) {
		pattern = strings.TrimPrefix(pattern, `\`)
	}
	if strings.HasPrefix(pattern, `\!`) {
		pattern = strings.TrimPrefix(pattern, `\`)
	} else if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = strings.TrimPrefix(pattern, "!")
	}

	if hasEscapedTrailingSpace && strings.HasSuffix(pattern, `\`) {
		pattern = strings.TrimSuffix(pattern, `\`) + " "
	}

	// Handle directory-only pattern (trailing /)
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	// Handle anchored pattern (leading /)
	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	}

	// Pattern with internal / is also anchored (but applies from root)
	// "doc/frotz" means "/doc/frotz", not "**/doc/frotz"
	if strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "**/") && !strings.HasPrefix(pattern, "*") {
		r.anchored = true
	}

	if pattern == "" {
		return fmt.Errorf("pattern %q matches nothing", r.pattern)
	}

	regex, err := regexp.Compile("^" + patternToRegex(pattern) + "$")
	if err != nil {
		return fmt.Errorf("failed to compile pattern %q: %w", r.pattern, err)
	}
	r.regex = regex

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
	return nil
}

// Match checks if a path matches any gitignore pattern.
// Returns true if the path should be ignored.
func (m *Matcher) Match(path string, isDir bool) bool {
	return m.Matched(path, isDir) == Ignore
}

// Matched returns the result of the last pattern matching path.
func (m *Matcher) Matched(path string, isDir bool) Result {
	path = filepath.ToSlash(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := NoMatch
	for _, r := range m.rules {
		if m.matchRule(path, isDir, r) {
			if r.negation {
				result = Whitelist
			} else {
				result = Ignore
			}
		}
	}

	return result
}

// MatchedPathOrParents matches path, then each of its parent directories from
// the nearest outwards, and returns the first result that is not NoMatch.
// This is what makes an ignored directory hide everything below it.
func (m *Matcher) MatchedPathOrParents(path string, isDir bool) Result {
	path = filepath.ToSlash(path)

	if res := m.Matched(path, isDir); res != NoMatch {
		return res
	}

	for {
		idx := strings.LastIndex(path, "/")
		if idx <= 0 {
			return NoMatch
		}
		path = path[:idx]
		if res := m.Matched(path, true); res != NoMatch {
			return res
		}
	}
}

// matchRule checks if a path matches a single rule.
// Note: Directory-only patterns (ending with /) can match files inside that directory.
// For pattern "temp/", path "temp/file.go" should match.
func (m *Matcher) matchRule(path string, isDir bool, r rule) bool {
	// If rule has a base, only match paths under that base
	if r.base != "" {
		if path == r.base {
			return false
		}
		if !strings.HasPrefix(path, r.base+"/") {
			return false
		}
		path = strings.TrimPrefix(path, r.base+"/")
	}

	parts := strings.Split(path, "/")
	basename := parts[len(parts)-1]

	if r.anchored {
		if r.regex.MatchString(path) {
			if r.dirOnly {
				return isDir
			}
			return true
		}
		// Also check if pattern matches as a prefix (for files inside matched dir)
		if r.dirOnly {
			for i := range parts[:len(parts)-1] {
				checkPath := strings.Join(parts[:i+1], "/")
				if r.regex.MatchString(checkPath) {
					return true
				}
			}
		}
		return false
	}

	// For directory-only patterns without anchoring:
	// "temp/" should match "temp" dir anywhere and files inside
	if r.dirOnly {
		for i, part := range parts {
			if r.regex.MatchString(part) {
				// If it's the last component, it must be a directory
				if i == len(parts)-1 {
					return isDir
				}
				return true
			}
		}
		return false
	}

	if r.regex.MatchString(basename) {
		return true
	}

	// Also check full path (for patterns with **)
	if r.regex.MatchString(path) {
		return true
	}

	for _, part := range parts {
		if r.regex.MatchString(part) {
			return true
		}
	}

	return false
}

// normalizeBase converts a base directory to the slash form used for matching.
func normalizeBase(base string) string {
	if base == "" {
		return ""
	}
	base = filepath.ToSlash(filepath.Clean(base))
	return strings.TrimSuffix(base, "/")
}

// patternToRegex converts a gitignore pattern to a regex string.
func patternToRegex(pattern string) string {
	var result strings.Builder

	i := 0
	for i < len(pattern) {
		c := pattern[i]

		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					// **/ - matches any number of directories
					result.WriteString("(?:.*/)?")
					i += 3
					continue
				} else if i == 0 || pattern[i-1] == '/' {
					// ** at end or between slashes - matches anything
					result.WriteString(".*")
					i += 2
					continue
				}
			}
			// Single * - matches anything except /
			result.WriteString("[^/]*")
			i++

		case '?':
			result.WriteString("[^/]")
			i++

		case '[':
			// Character class; gitignore negates with ! where regex uses ^
			j := i + 1
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j < len(pattern) {
				class := pattern[i+1 : j]
				if strings.HasPrefix(class, "!") {
					class = "^" + class[1:]
				}
				result.WriteString("[" + class + "]")
				i = j + 1
			} else {
				result.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}

		case '\\':
			if i+1 < len(pattern) {
				result.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i += 2
			} else {
				result.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}

		case '.', '+', '^', '$', '(', ')', '{', '}', '|':
			result.WriteString(regexp.QuoteMeta(string(c)))
			i++

		default:
			result.WriteString(string(c))
			i++
		}
	}

	return result.String()
}

// ParsePatterns extracts patterns from gitignore content.
// Returns slice of non-empty, non-comment patterns.
func ParsePatterns(content string) []string {
	var patterns []string
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, `\#`) {
			continue
		}
		// Keep an escaped trailing space intact for AddPatternWithBase
		if strings.HasSuffix(line, `\ `) {
			patterns = append(patterns, strings.TrimLeft(line, " \t"))
			continue
		}
		patterns = append(patterns, trimmed)
	}
	return patterns
}

// DiffPatterns computes added and removed patterns between two pattern lists.
// Used to report what changed when an ignore file is reloaded.
func DiffPatterns(oldPatterns, newPatterns []string) (added, removed []string) {
	oldSet := make(map[string]bool, len(oldPatterns))
	for _, p := range oldPatterns {
		oldSet[p] = true
	}

	newSet := make(map[string]bool, len(newPatterns))
	for _, p := range newPatterns {
		newSet[p] = true
	}

	for _, p := range newPatterns {
		if !oldSet[p] {
			added = append(added, p)
		}
	}

	for _, p := range oldPatterns {
		if !newSet[p] {
			removed = append(removed, p)
		}
	}

	return added, removed
}
