package ignorefile

import (
	"fmt"

	"github.com/Aman-CERP/watchsieve/internal/project"
)

// File describes one discovered ignore file.
type File struct {
	// Path is the location of the file.
	Path string

	// AppliesTo restricts the file to projects of one kind.
	// project.None means the file applies regardless of VCS.
	AppliesTo project.Type

	// AppliesIn restricts the file to paths under a directory.
	// Empty means the file is global and not tied to a project directory.
	AppliesIn string
}

// IsGlobal reports whether the file is not scoped to a directory.
func (f File) IsGlobal() bool {
	return f.AppliesIn == ""
}

// IsGitGlobalExcludes reports whether f is a git excludes file with global
// scope, i.e. a core.excludesFile or the user's git ignore file.
func (f File) IsGitGlobalExcludes() bool {
	return f.AppliesTo == project.Git && f.AppliesIn == ""
}

// String implements fmt.Stringer for log output.
func (f File) String() string {
	scope := f.AppliesIn
	if scope == "" {
		scope = "global"
	}
	return fmt.Sprintf("%s (%s, %s)", f.Path, f.AppliesTo, scope)
}

// Pattern is a glob pattern with an optional anchor directory. An empty
// Anchor matches relative to the filter origin.
type Pattern struct {
	Pattern string
	Anchor  string
}
