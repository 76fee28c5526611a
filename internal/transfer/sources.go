package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CurrentDir is the argument that stands for every regular file in the
// working directory.
const CurrentDir = "."

// ExpandSources returns the files put should process. Every argument other
// than CurrentDir is kept in order; when CurrentDir appears at least once the
// regular files of workDir are appended, sorted by name. The expansion runs
// once and the input slice is not modified.
func ExpandSources(files []string, workDir string) ([]string, error) {
	out := make([]string, 0, len(files))
	expand := false
	for _, file := range files {
		if file == CurrentDir {
			expand = true
			continue
		}
		out = append(out, file)
	}
	if !expand {
		return out, nil
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return nil, fmt.Errorf("read working directory: %w", err)
	}
	for _, entry := range entries {
		path := filepath.Join(workDir, entry.Name())
		// Stat follows symlinks so a link to a file counts as a file.
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, path)
	}
	return out, nil
}

// SplitExt splits a base name into stem and extension. A leading dot does not
// start an extension, so ".xmp" has no extension while "take.xmp" does.
func SplitExt(base string) (stem, ext string) {
	idx := strings.LastIndexByte(base, '.')
	if idx <= 0 || idx == len(base)-1 {
		return base, ""
	}
	return base[:idx], base[idx:]
}

// RemoteName returns the upload name for source: its base name with the
// extension replaced by .wav, upper-cased with full Unicode case mapping.
func RemoteName(source string) string {
	stem, _ := SplitExt(filepath.Base(source))
	return cases.Upper(language.Und).String(stem + ".wav")
}

// IsExcluded reports whether source has one of the excluded extensions.
// Matching ignores case.
func IsExcluded(source string, excluded []string) bool {
	_, ext := SplitExt(filepath.Base(source))
	if ext == "" {
		return false
	}
	for _, candidate := range excluded {
		if strings.EqualFold(candidate, ext) {
			return true
		}
	}
	return false
}
