package session

import (
	"path"
	"strings"
)

// Sandbox confines caller-supplied paths to the subtree rooted at a fixed
// base path. The zero value is not usable; call NewSandbox.
type Sandbox struct {
	root string
}

// NewSandbox returns a Sandbox rooted at basePath. The root is made absolute
// and cleaned, so "obsidian/", "/obsidian" and "//obsidian/." are the same
// root. An empty basePath roots the sandbox at "/".
func NewSandbox(basePath string) Sandbox {
	return Sandbox{root: path.Clean("/" + basePath)}
}

// Root returns the cleaned base path.
func (s Sandbox) Root() string {
	return s.root
}

// Contains reports whether the absolute, cleaned path p lies at or beneath
// the root.
func (s Sandbox) Contains(p string) bool {
	if s.root == "/" {
		return strings.HasPrefix(p, "/")
	}

	return p == s.root || strings.HasPrefix(p, s.root+"/")
}

// Normalize maps p to an absolute path inside the sandbox. Relative paths and
// absolute paths outside the root are re-rooted beneath it; "." and ".."
// segments are resolved first, so they cannot climb out. "" and "/" map to
// the root itself. Normalize is idempotent.
func (s Sandbox) Normalize(p string) string {
	cleaned := path.Clean("/" + p)
	if s.Contains(cleaned) {
		return cleaned
	}

	return path.Join(s.root, cleaned)
}

// Rel returns p relative to the root, with a leading slash ("/" for the root
// itself). p is normalized first.
func (s Sandbox) Rel(p string) string {
	n := s.Normalize(p)
	if s.root == "/" {
		return n
	}

	if rest := strings.TrimPrefix(n, s.root); rest != "" {
		return rest
	}

	return "/"
}
