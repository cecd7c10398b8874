// Package ignorefile discovers the ignore files that may apply to a project
// and loads their patterns.
//
// Discovery is split in two scopes:
//   - FromOrigin walks a project directory for project-local files
//     (.gitignore, .git/info/exclude, .hgignore, .bzrignore, .ignore, ...)
//     and reads the repository's own core.excludesFile setting.
//   - FromEnvironment looks for user-level files (the global git excludes
//     file, ~/.bazaar/ignore, the Mercurial ui.ignore setting, and the
//     watchsieve global ignore files).
//
// Each result is a File descriptor saying which project kind it belongs to
// (AppliesTo) and which directory it is scoped to (AppliesIn). Per-file
// problems never abort discovery; they are returned alongside the files.
package ignorefile
