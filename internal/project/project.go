// Package project detects the kinds of project rooted at a directory and the
// project roots enclosing a path.
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Type is a recognized project or version-control kind.
type Type int

// The zero value None means "no particular kind" and is used by ignore files
// that apply to any project.
const (
	None Type = iota

	// Version control systems
	Bazaar
	Darcs
	Fossil
	Git
	Mercurial
	Pijul
	Subversion

	// Language and build-tool projects
	Bundler
	Cargo
	Composer
	Dart
	Elixir
	Go
	Gradle
	JavaScript
	Leiningen
	Maven
	Perl
	Pip
	Python
)

var typeNames = map[Type]string{
	None:       "none",
	Bazaar:     "bazaar",
	Darcs:      "darcs",
	Fossil:     "fossil",
	Git:        "git",
	Mercurial:  "mercurial",
	Pijul:      "pijul",
	Subversion: "subversion",
	Bundler:    "bundler",
	Cargo:      "cargo",
	Composer:   "composer",
	Dart:       "dart",
	Elixir:     "elixir",
	Go:         "go",
	Gradle:     "gradle",
	JavaScript: "javascript",
	Leiningen:  "leiningen",
	Maven:      "maven",
	Perl:       "perl",
	Pip:        "pip",
	Python:     "python",
}

// String returns the lowercase name of the type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// IsVCS reports whether t is a version control system.
func (t Type) IsVCS() bool {
	return t >= Bazaar && t <= Subversion
}

// marker is a file or directory whose presence identifies a project type.
type marker struct {
	name string
	dir  bool // must be a directory; otherwise any entry type matches
	typ  Type
}

// markers lists the entries checked in each candidate directory.
// A .git file (worktree or submodule) counts the same as a .git directory.
var markers = []marker{
	{".bzr", true, Bazaar},
	{"_darcs", true, Darcs},
	{".fossil-settings", true, Fossil},
	{".git", false, Git},
	{".hg", true, Mercurial},
	{".pijul", true, Pijul},
	{".svn", true, Subversion},
	{"Gemfile", false, Bundler},
	{"Cargo.toml", false, Cargo},
	{"composer.json", false, Composer},
	{"pubspec.yaml", false, Dart},
	{"mix.exs", false, Elixir},
	{"go.mod", false, Go},
	{"build.gradle", false, Gradle},
	{"build.gradle.kts", false, Gradle},
	{"package.json", false, JavaScript},
	{"project.clj", false, Leiningen},
	{"pom.xml", false, Maven},
	{"Makefile.PL", false, Perl},
	{"Build.PL", false, Perl},
	{"requirements.txt", false, Pip},
	{"pyproject.toml", false, Python},
	{"setup.py", false, Python},
}

// Detector finds project roots and project types on the local filesystem.
type Detector struct{}

// NewDetector creates a filesystem-backed Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Types returns the project types rooted exactly at dir, in declaration order.
// A directory can carry several, e.g. a Go module inside a git repository.
func (d *Detector) Types(ctx context.Context, dir string) []Type {
	seen := make(map[Type]bool)
	var types []Type

	for _, m := range markers {
		if ctx.Err() != nil {
			break
		}
		if seen[m.typ] {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, m.name))
		if err != nil {
			continue
		}
		if m.dir && !info.IsDir() {
			continue
		}
		seen[m.typ] = true
		types = append(types, m.typ)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Origins returns every directory at or above path that carries at least one
// project marker, innermost first. Nested projects yield several origins.
// When no marker is found the path's own directory is the only origin.
func (d *Detector) Origins(ctx context.Context, path string) ([]string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	start := absPath
	if info, err := os.Stat(absPath); err == nil && !info.IsDir() {
		start = filepath.Dir(absPath)
	}

	var origins []string
	current := start
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(d.Types(ctx, current)) > 0 {
			origins = append(origins, current)
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	if len(origins) == 0 {
		origins = append(origins, start)
	}
	return origins, nil
}
