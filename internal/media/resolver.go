package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrPathEscapes reports a relative path that would leave the media
	// root, either lexically ("..") or through a symlink. Handlers map it
	// to a forbidden response that does not reveal whether the target
	// exists.
	ErrPathEscapes = errors.New("path escapes media root")

	// ErrPathNotFound reports a contained path that does not exist, cannot
	// be canonicalized, or is not the requested type.
	ErrPathNotFound = errors.New("path not found")
)

// ResolveOpts constrains what a resolved path must point at.
type ResolveOpts struct {
	MustBeFile bool
	MustBeDir  bool
}

// PathResolver maps untrusted relative paths onto absolute paths confined
// to a single root directory. The root is canonicalized once at
// construction and immutable afterwards.
type PathResolver struct {
	root string // absolute, symlink-free
}

// NewPathResolver canonicalizes root and returns a resolver confined to it.
// The root must exist and be a directory.
func NewPathResolver(root string) (*PathResolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing root %s: %w", abs, err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("checking root %s: %w", canonical, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", canonical)
	}
	return &PathResolver{root: canonical}, nil
}

// Root returns the canonical root directory.
func (r *PathResolver) Root() string { return r.root }

// Resolve maps an untrusted relative path to an absolute path that is
// proven to be the root or a descendant of it. Any ".." segment is
// rejected before touching the filesystem; the containment check after
// symlink resolution is the authoritative one and also defeats
// symlink-based escapes. A contained path that does not exist resolves
// successfully unless opts requires a file or directory.
func (r *PathResolver) Resolve(relative string, opts ResolveOpts) (string, error) {
	if strings.ContainsRune(relative, 0) {
		return "", ErrPathNotFound
	}
	parts := splitRelative(relative)
	for _, part := range parts {
		if part == ".." {
			return "", ErrPathEscapes
		}
	}
	candidate := r.root
	if len(parts) > 0 {
		candidate = filepath.Join(r.root, filepath.Join(parts...))
	}
	resolved, err := canonicalize(candidate)
	if err != nil {
		return "", ErrPathNotFound
	}
	if resolved != r.root && !strings.HasPrefix(resolved, r.root+string(filepath.Separator)) {
		return "", ErrPathEscapes
	}
	if opts.MustBeFile || opts.MustBeDir {
		info, err := os.Stat(resolved)
		if err != nil {
			return "", ErrPathNotFound
		}
		if opts.MustBeFile && info.IsDir() {
			return "", ErrPathNotFound
		}
		if opts.MustBeDir && !info.IsDir() {
			return "", ErrPathNotFound
		}
	}
	return resolved, nil
}

// splitRelative splits a client path on "/" and the platform separator,
// dropping empty and "." segments, so "", "." and "a//./b" normalize
// predictably. Bytes inside segment names are never rewritten: on Linux a
// backslash is an ordinary filename character.
func splitRelative(relative string) []string {
	relative = strings.TrimSpace(relative)
	var parts []string
	for _, part := range strings.FieldsFunc(relative, isPathSeparator) {
		if part == "." {
			continue
		}
		parts = append(parts, part)
	}
	return parts
}

func isPathSeparator(r rune) bool {
	return r == '/' || r == filepath.Separator
}

// canonicalize resolves symlinks in candidate. When the tail of the path
// does not exist yet, the nearest existing ancestor is resolved and the
// remainder re-joined, so a nonexistent-but-contained path still yields a
// comparable canonical form.
func canonicalize(candidate string) (string, error) {
	resolved, err := filepath.EvalSymlinks(candidate)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	dir := candidate
	rest := ""
	for {
		rest = filepath.Join(filepath.Base(dir), rest)
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fs.ErrNotExist
		}
		dir = parent
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(resolved, rest), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
}
