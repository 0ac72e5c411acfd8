package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/spf13/afero"
)

// Find resolves roots into the sorted set of paths beneath them. A root may be
// a file, a directory (walked recursively) or a glob using *, **, ? and
// [...]. Roots nested inside another root are dropped so no path is reported
// twice. When patterns are given a path is kept only if its full path or its
// base name matches one of them; a pattern without * matches as a substring.
func Find(fs afero.Fs, roots []string, patterns []string, filesOnly bool) ([]string, error) {
	patterns = preparePatterns(patterns)

	seen := make(map[string]struct{})
	for _, root := range nonOverlapping(roots) {
		entries, err := expand(fs, root)
		if err != nil {
			return nil, err
		}
		for _, f := range entries {
			if filesOnly && f.dir {
				continue
			}
			if ok, err := matchAny(patterns, f.path); err != nil {
				return nil, err
			} else if !ok {
				continue
			}
			seen[f.path] = struct{}{}
		}
	}

	res := make([]string, 0, len(seen))
	for p := range seen {
		res = append(res, p)
	}
	sort.Strings(res)
	return res, nil
}

type found struct {
	path string
	dir  bool
}

func expand(fs afero.Fs, root string) ([]found, error) {
	if !isGlob(root) {
		return walk(fs, root)
	}

	matches, err := glob(fs, root)
	if err != nil {
		return nil, err
	}
	var res []found
	for _, m := range matches {
		sub, err := walk(fs, m)
		if err != nil {
			return nil, err
		}
		res = append(res, sub...)
	}
	return res, nil
}

// walk reports root itself and, for a directory, everything below it.
func walk(fs afero.Fs, root string) ([]found, error) {
	if _, err := fs.Stat(root); err != nil {
		return nil, fmt.Errorf("could not find %s: %w", root, err)
	}

	var res []found
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		res = append(res, found{path: path, dir: info.IsDir()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not walk %s: %w", root, err)
	}
	return res, nil
}

// glob walks the longest literal prefix of pattern and keeps what matches.
func glob(fs afero.Fs, pattern string) ([]string, error) {
	base := literalPrefix(pattern)
	if _, err := fs.Stat(base); os.IsNotExist(err) {
		return nil, nil
	}

	var res []string
	err := afero.Walk(fs, base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		ok, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			return err
		}
		if ok {
			res = append(res, path)
			if info.IsDir() {
				// walked again by expand
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not glob %s: %w", pattern, err)
	}
	return res, nil
}

func isGlob(p string) bool {
	return strings.ContainsAny(p, "*?[")
}

func literalPrefix(pattern string) string {
	segs := strings.Split(filepath.ToSlash(pattern), "/")
	i := 0
	for i < len(segs) && !isGlob(segs[i]) {
		i++
	}
	prefix := strings.Join(segs[:i], "/")
	switch {
	case prefix == "" && strings.HasPrefix(pattern, "/"):
		return "/"
	case prefix == "":
		return "."
	}
	return filepath.FromSlash(prefix)
}

// nonOverlapping drops every root that is equal to or inside another root.
func nonOverlapping(roots []string) []string {
	cleaned := make([]string, len(roots))
	for i, r := range roots {
		cleaned[i] = filepath.Clean(r)
	}
	sort.Strings(cleaned)

	var res []string
	for _, r := range cleaned {
		covered := false
		for _, kept := range res {
			if overlaps(kept, r) {
				covered = true
				break
			}
		}
		if !covered {
			res = append(res, r)
		}
	}
	return res
}

func overlaps(a, b string) bool {
	if isGlob(a) || isGlob(b) {
		return a == b
	}
	a = strings.TrimSuffix(a, string(filepath.Separator)) + string(filepath.Separator)
	b = strings.TrimSuffix(b, string(filepath.Separator)) + string(filepath.Separator)
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

func preparePatterns(patterns []string) []string {
	res := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if !strings.Contains(p, "*") {
			p = "*" + p + "*"
		}
		res = append(res, p)
	}
	return res
}

func matchAny(patterns []string, path string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
	}
	for _, p := range patterns {
		for _, candidate := range []string{path, filepath.Base(path)} {
			ok, err := doublestar.PathMatch(p, candidate)
			if err != nil {
				return false, fmt.Errorf("bad pattern %q: %w", p, err)
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}
