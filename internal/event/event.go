// Package event defines the filesystem events that filters evaluate.
//
// An Event is a bag of tags. Filters look only at the tags they understand
// and ignore the rest, so new tag kinds can be added without touching them.
package event

import (
	"fmt"
	"io/fs"
	"strings"
)

// Tag is one piece of information attached to an Event.
type Tag interface {
	tag()
}

// Event is a set of tags describing something that happened.
type Event struct {
	Tags []Tag
}

// FileType is the kind of filesystem object a path refers to.
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeFile
	FileTypeDir
	FileTypeSymlink
)

// String implements fmt.Stringer.
func (t FileType) String() string {
	switch t {
	case FileTypeFile:
		return "file"
	case FileTypeDir:
		return "dir"
	case FileTypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// FileTypeOf maps a file mode to a FileType.
func FileTypeOf(mode fs.FileMode) FileType {
	switch {
	case mode&fs.ModeSymlink != 0:
		return FileTypeSymlink
	case mode.IsDir():
		return FileTypeDir
	case mode.IsRegular():
		return FileTypeFile
	default:
		return FileTypeUnknown
	}
}

// Path tags an event with an absolute path and, when known, its file type.
type Path struct {
	Path string
	Kind FileType
}

func (Path) tag() {}

// IsDir reports whether the path is known to be a directory.
func (p Path) IsDir() bool {
	return p.Kind == FileTypeDir
}

// FileEventKind classifies what happened to a path.
type FileEventKind int

const (
	Any FileEventKind = iota
	Access
	Create
	ModifyData
	ModifyMetadata
	ModifyName
	ModifyOther
	Remove
	Other
)

func (FileEventKind) tag() {}

var kindNames = map[FileEventKind]string{
	Any:            "any",
	Access:         "access",
	Create:         "create",
	ModifyData:     "modify-data",
	ModifyMetadata: "modify-metadata",
	ModifyName:     "modify-name",
	ModifyOther:    "modify-other",
	Remove:         "remove",
	Other:          "other",
}

// String implements fmt.Stringer.
func (k FileEventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsMetadata reports whether the kind is a metadata-only modification.
func (k FileEventKind) IsMetadata() bool {
	return k == ModifyMetadata
}

// ParseKind parses the String form of a FileEventKind.
func ParseKind(s string) (FileEventKind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == want {
			return k, nil
		}
	}
	return Any, fmt.Errorf("unknown event kind %q", s)
}

// Source is where an event came from.
type Source int

const (
	Filesystem Source = iota
	Keyboard
	Time
	Internal
)

func (Source) tag() {}

// String implements fmt.Stringer.
func (s Source) String() string {
	switch s {
	case Filesystem:
		return "filesystem"
	case Keyboard:
		return "keyboard"
	case Time:
		return "time"
	case Internal:
		return "internal"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Paths returns the path tags of the event in order.
func (e Event) Paths() []Path {
	var paths []Path
	for _, t := range e.Tags {
		if p, ok := t.(Path); ok {
			paths = append(paths, p)
		}
	}
	return paths
}

// Kinds returns the file event kind tags of the event in order.
func (e Event) Kinds() []FileEventKind {
	var kinds []FileEventKind
	for _, t := range e.Tags {
		if k, ok := t.(FileEventKind); ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// HasMetadataChange reports whether any kind tag is a metadata modification.
func (e Event) HasMetadataChange() bool {
	for _, k := range e.Kinds() {
		if k.IsMetadata() {
			return true
		}
	}
	return false
}

// String renders the event for logs, e.g. "create /a/b.go".
func (e Event) String() string {
	var parts []string
	for _, k := range e.Kinds() {
		parts = append(parts, k.String())
	}
	for _, p := range e.Paths() {
		parts = append(parts, p.Path)
	}
	if len(parts) == 0 {
		return "(empty event)"
	}
	return strings.Join(parts, " ")
}

// FileEvent builds a filesystem event for one path.
func FileEvent(path string, ft FileType, kind FileEventKind) Event {
	return Event{Tags: []Tag{Filesystem, kind, Path{Path: path, Kind: ft}}}
}
