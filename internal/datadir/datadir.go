// Package datadir maps object IDs to files in a data directory. Object
// association is purely by filename: an ID substring check followed by a
// full regular-expression match against the widget pattern.
//
// Patterns use the .NET-style syntax of regexp2 so that lookbehind and
// lookahead assertions such as `(?<![0-9Ff])\d+(?![0-9Dd])` work.
package datadir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/papapumpkin/specvizitor/internal/objid"
)

// DefaultIDPattern matches a run of digits.
const DefaultIDPattern = `\d+`

// matchTimeout bounds a single regexp2 evaluation; regexp2 backtracks.
const matchTimeout = time.Second

var (
	// ErrNoIDs indicates a directory scan found no object IDs.
	ErrNoIDs = errors.New("no IDs retrieved from the data directory")
	// ErrBadPattern indicates the ID or filename pattern does not compile.
	ErrBadPattern = errors.New("invalid pattern")
)

func compile(pattern string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrBadPattern, pattern, err)
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}

// ExtractID returns the object ID found in the base name of filename.
// When the pattern matches several substrings the longest one wins, and
// among equally long matches the first one. It returns false when nothing
// matches or the pattern is invalid.
//
// The longest-match rule is what separates a trailing numeric ID from
// digits embedded in filter tokens such as F300M; catalogues built with
// older releases depend on it.
func ExtractID(filename, pattern string) (string, bool) {
	re, err := compile(pattern)
	if err != nil {
		return "", false
	}
	return longestMatch(re, filepath.Base(filename))
}

func longestMatch(re *regexp2.Regexp, name string) (string, bool) {
	m, err := re.FindStringMatch(name)
	best, found := "", false
	for err == nil && m != nil {
		if s := m.String(); !found || len(s) > len(best) {
			best, found = s, true
		}
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		return "", false
	}
	return best, found
}

// IDsFromDir scans directory for files and extracts their IDs with pattern.
// The result is sorted and deduplicated; IDs are integers when every
// discovered ID is numeric. An empty result is ErrNoIDs.
func IDsFromDir(directory, pattern string, recursive bool) ([]objid.ID, error) {
	re, err := compile(pattern)
	if err != nil {
		return nil, err
	}

	files, err := listFiles(directory, recursive)
	if err != nil {
		return nil, err
	}

	var raw []string
	for _, rel := range files {
		if id, ok := longestMatch(re, filepath.Base(rel)); ok {
			raw = append(raw, id)
		}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w (directory: %s)", ErrNoIDs, directory)
	}
	return objid.SortUnique(objid.ParseAll(raw)), nil
}

// listFiles returns regular files under dir as slash-separated paths
// relative to dir, sorted.
func listFiles(dir string, recursive bool) ([]string, error) {
	var files []string
	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading data directory: %w", err)
		}
		for _, e := range entries {
			if e.Type().IsRegular() {
				files = append(files, e.Name())
			}
		}
		sort.Strings(files)
		return files, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking data directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Resolver finds the file bound to one widget for one object.
type Resolver struct {
	Dir       string
	Recursive bool
}

// Reference is the outcome of resolving one widget's file for one object.
// Path is empty when no file matched, which is an expected outcome.
type Reference struct {
	Widget  string
	Pattern string
	Path    string
}

// Found reports whether a file was resolved.
func (r Reference) Found() bool { return r.Path != "" }

// Resolve returns the alphabetically first file under the resolver's
// directory whose name contains id and whose relative path fully matches
// pattern. Pattern placeholders must already be expanded (see Expand).
// No match is not an error: the returned Reference simply has no Path.
func (r Resolver) Resolve(widget, pattern, id string) (Reference, error) {
	ref := Reference{Widget: widget, Pattern: pattern}

	re, err := compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return ref, err
	}
	files, err := listFiles(r.Dir, r.Recursive)
	if err != nil {
		return ref, err
	}

	for _, rel := range files {
		if !strings.Contains(filepath.Base(rel), id) {
			continue
		}
		ok, err := re.MatchString(rel)
		if err != nil {
			return ref, fmt.Errorf("matching %s: %w", rel, err)
		}
		if ok {
			ref.Path = filepath.Join(r.Dir, filepath.FromSlash(rel))
			return ref, nil
		}
	}
	return ref, nil
}
