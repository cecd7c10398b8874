package ignorefile

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	gitconfig "github.com/go-git/go-git/v5/plumbing/format/config"

	serrors "github.com/Aman-CERP/watchsieve/internal/errors"
	"github.com/Aman-CERP/watchsieve/internal/project"
)

// AppName names the tool-specific ignore files and directories.
const AppName = "watchsieve"

// localFiles are the per-directory ignore files found while walking a project.
var localFiles = []struct {
	rel string
	typ project.Type
}{
	{".gitignore", project.Git},
	{filepath.Join(".git", "info", "exclude"), project.Git},
	{".hgignore", project.Mercurial},
	{".bzrignore", project.Bazaar},
	{filepath.Join("_darcs", "prefs", "boring"), project.Darcs},
	{filepath.Join(".fossil-settings", "ignore-glob"), project.Fossil},
	{".ignore", project.None},
	{"." + AppName + "ignore", project.None},
}

// skipDirs are never descended into during discovery.
var skipDirs = map[string]bool{
	".git":             true,
	".hg":              true,
	".svn":             true,
	".bzr":             true,
	"_darcs":           true,
	".pijul":           true,
	".fossil-settings": true,
	"node_modules":     true,
}

// Discoverer finds ignore files on the local filesystem.
type Discoverer struct{}

// NewDiscoverer creates a filesystem-backed Discoverer.
func NewDiscoverer() *Discoverer {
	return &Discoverer{}
}

// FromOrigin finds every project-local ignore file at or below dir, in walk
// order, plus the core.excludesFile of any git repository found there.
// Unreadable entries are reported as errors and skipped.
func (d *Discoverer) FromOrigin(ctx context.Context, dir string) ([]File, []error) {
	var files []File
	var errs []error

	walkErr := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			errs = append(errs, serrors.DiscoveryError(path, err))
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path != dir && skipDirs[entry.Name()] {
			return filepath.SkipDir
		}

		for _, lf := range localFiles {
			candidate := filepath.Join(path, lf.rel)
			ok, statErr := isFile(candidate)
			if statErr != nil {
				errs = append(errs, serrors.DiscoveryError(candidate, statErr))
				continue
			}
			if ok {
				files = append(files, File{Path: candidate, AppliesTo: lf.typ, AppliesIn: path})
			}
		}

		repoConfig := filepath.Join(path, ".git", "config")
		if ok, _ := isFile(repoConfig); ok {
			excludes, cfgErr := gitExcludesFile(repoConfig, path)
			if cfgErr != nil {
				errs = append(errs, serrors.DiscoveryError(repoConfig, cfgErr))
			} else if excludes != "" {
				files = appendIfExists(files, &errs, File{Path: excludes, AppliesTo: project.Git})
			}
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, serrors.DiscoveryError(dir, walkErr))
	}

	return files, errs
}

// FromEnvironment finds user-level ignore files. None of them are scoped to
// a directory.
func (d *Discoverer) FromEnvironment(ctx context.Context) ([]File, []error) {
	var files []File
	var errs []error

	home, homeErr := os.UserHomeDir()
	if homeErr != nil {
		slog.Debug("no home directory, skipping user ignore files", slog.String("error", homeErr.Error()))
	}
	configHome := xdgConfigHome(home)

	// Git: every configured core.excludesFile, then the default location.
	seen := make(map[string]bool)
	var gitConfigs []string
	if configHome != "" {
		gitConfigs = append(gitConfigs, filepath.Join(configHome, "git", "config"))
	}
	if home != "" {
		gitConfigs = append(gitConfigs, filepath.Join(home, ".gitconfig"))
	}
	for _, cfgPath := range gitConfigs {
		if ctx.Err() != nil {
			return files, append(errs, ctx.Err())
		}
		if ok, _ := isFile(cfgPath); !ok {
			continue
		}
		excludes, err := gitExcludesFile(cfgPath, home)
		if err != nil {
			errs = append(errs, serrors.DiscoveryError(cfgPath, err))
			continue
		}
		if excludes != "" && !seen[excludes] {
			seen[excludes] = true
			files = appendIfExists(files, &errs, File{Path: excludes, AppliesTo: project.Git})
		}
	}
	if configHome != "" {
		def := filepath.Join(configHome, "git", "ignore")
		if !seen[def] {
			files = appendIfExists(files, &errs, File{Path: def, AppliesTo: project.Git})
		}
	}

	if home != "" {
		// Mercurial: [ui] ignore in ~/.hgrc
		hgrc := filepath.Join(home, ".hgrc")
		if ok, _ := isFile(hgrc); ok {
			ignore, err := readConfigOption(hgrc, "ui", "ignore", home)
			if err != nil {
				errs = append(errs, serrors.DiscoveryError(hgrc, err))
			} else if ignore != "" {
				files = appendIfExists(files, &errs, File{Path: ignore, AppliesTo: project.Mercurial})
			}
		}

		files = appendIfExists(files, &errs, File{Path: filepath.Join(home, ".bazaar", "ignore"), AppliesTo: project.Bazaar})
	}

	if configHome != "" {
		files = appendIfExists(files, &errs, File{Path: filepath.Join(configHome, AppName, "ignore")})
	}
	if home != "" {
		files = appendIfExists(files, &errs, File{Path: filepath.Join(home, "."+AppName, "ignore")})
	}

	return files, errs
}

// gitExcludesFile reads core.excludesFile from a git config file.
// Relative values are resolved against base.
func gitExcludesFile(cfgPath, base string) (string, error) {
	return readConfigOption(cfgPath, "core", "excludesfile", base)
}

// readConfigOption decodes an INI-style config file and returns one option
// of one section, expanded to an absolute path.
func readConfigOption(cfgPath, section, key, base string) (string, error) {
	f, err := os.Open(cfgPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	cfg := gitconfig.New()
	if err := gitconfig.NewDecoder(f).Decode(cfg); err != nil {
		return "", err
	}
	if !cfg.HasSection(section) {
		return "", nil
	}

	value := strings.TrimSpace(cfg.Section(section).Options.Get(key))
	if value == "" {
		return "", nil
	}
	return expandPath(value, base), nil
}

// expandPath expands a leading ~ and makes relative paths absolute against base.
func expandPath(p, base string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	if !filepath.IsAbs(p) && base != "" {
		p = filepath.Join(base, p)
	}
	return filepath.Clean(p)
}

// xdgConfigHome returns $XDG_CONFIG_HOME, or ~/.config when unset.
func xdgConfigHome(home string) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config")
}

// appendIfExists appends f when its path is a regular file. A stat failure
// other than not-exist is recorded in errs.
func appendIfExists(files []File, errs *[]error, f File) []File {
	ok, err := isFile(f.Path)
	if err != nil {
		*errs = append(*errs, serrors.DiscoveryError(f.Path, err))
		return files
	}
	if ok {
		files = append(files, f)
	}
	return files
}

// isFile reports whether path exists and is not a directory.
// A missing path is not an error.
func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// IsIgnoreFilePath reports whether path ends in the location of a
// project-local ignore file. The whole relative location must match, so a
// file named "exclude" outside .git/info does not count.
func IsIgnoreFilePath(path string) bool {
	path = filepath.ToSlash(filepath.Clean(path))
	for _, lf := range localFiles {
		rel := filepath.ToSlash(lf.rel)
		if path == rel || strings.HasSuffix(path, "/"+rel) {
			return true
		}
	}
	return false
}
