// Package dockerfile extracts simple facts from Dockerfile text.
//
// The functions here are not a Dockerfile parser. They scan case-folded text
// line by line and with a few regular expressions, which is all the grading
// rules need.
package dockerfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// ErrInvalidPath is returned by Load when the path is not a regular file.
var ErrInvalidPath = errors.New("invalid or missing Dockerfile path")

var (
	baseImagePattern = regexp.MustCompile(`(?i)from\s+([a-z0-9\-_/]+):([a-z0-9\-_.]+)`)
	fromLinePattern  = regexp.MustCompile(`(?i)^from\s+(\S+)`)
)

// BaseImage is a repository and tag named by a FROM instruction.
type BaseImage struct {
	Repository string
	Tag        string
}

func (b BaseImage) String() string {
	return b.Repository + ":" + b.Tag
}

// File is a Dockerfile read from disk with its text case-folded.
type File struct {
	Path string
	Text string
}

// Load reads the Dockerfile at path. The path must name an existing regular file.
func Load(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read Dockerfile %s: %w", path, err)
	}

	return &File{Path: path, Text: Fold(string(data))}, nil
}

// HasSibling reports whether a regular file with the given name exists next
// to the Dockerfile.
func (f *File) HasSibling(name string) bool {
	info, err := os.Stat(filepath.Join(filepath.Dir(f.Path), name))
	return err == nil && info.Mode().IsRegular()
}

// Fold returns the case-folded form of text used for all matching.
func Fold(text string) string {
	return cases.Fold().String(text)
}

// ExtractBaseImages returns every "from <repo>:<tag>" match in order of appearance.
func ExtractBaseImages(text string) []BaseImage {
	matches := baseImagePattern.FindAllStringSubmatch(text, -1)
	images := make([]BaseImage, 0, len(matches))
	for _, m := range matches {
		images = append(images, BaseImage{
			Repository: strings.ToLower(m[1]),
			Tag:        strings.ToLower(m[2]),
		})
	}
	return images
}

// UntaggedBaseImages returns FROM targets that carry no explicit tag or digest.
// ExtractBaseImages does not see these.
func UntaggedBaseImages(text string) []string {
	var untagged []string
	for _, line := range lines(text) {
		m := fromLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		target := m[1]
		if strings.HasPrefix(target, "--") || strings.HasPrefix(target, "$") {
			continue
		}
		if strings.ContainsAny(target, ":@") {
			continue
		}
		untagged = append(untagged, target)
	}
	return untagged
}

// CountInstruction counts lines that start with keyword followed by whitespace.
func CountInstruction(text, keyword string) int {
	keyword = Fold(strings.TrimSpace(keyword))
	count := 0
	for _, line := range lines(text) {
		rest, ok := strings.CutPrefix(Fold(line), keyword)
		if ok && rest != "" && (rest[0] == ' ' || rest[0] == '\t') {
			count++
		}
	}
	return count
}

// CountPrefix counts lines that start with prefix, with no word boundary check.
func CountPrefix(text, prefix string) int {
	prefix = Fold(prefix)
	count := 0
	for _, line := range lines(text) {
		if strings.HasPrefix(Fold(line), prefix) {
			count++
		}
	}
	return count
}

// ContainsInstruction reports whether any line starts with keyword.
func ContainsInstruction(text, keyword string) bool {
	return CountPrefix(text, strings.TrimSpace(keyword)) > 0
}

// HasExactLine reports whether any trimmed line equals literal after folding.
func HasExactLine(text, literal string) bool {
	literal = Fold(strings.TrimSpace(literal))
	for _, line := range lines(text) {
		if Fold(line) == literal {
			return true
		}
	}
	return false
}

// HasStageName reports whether a build stage is named with " as ".
func HasStageName(text string) bool {
	return strings.Contains(Fold(text), " as ")
}

// lines returns the trimmed, non-blank lines of text.
func lines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
