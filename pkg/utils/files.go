package utils

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// SourceExt is the extension of VM source files.
const SourceExt = ".vm"

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// UnitName returns the translation unit name for a source path: the base
// name without its extension.
func UnitName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CollectSources returns the .vm files named by path in lexical order. A
// file path yields itself; a directory yields its direct .vm children.
func CollectSources(path string) (sources []string, isDir bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, errors.Wrapf(err, "stat %s", path)
	}

	if !info.IsDir() {
		if filepath.Ext(path) != SourceExt {
			return nil, false, errors.Errorf("%s is not a %s file", path, SourceExt)
		}
		return []string{path}, false, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, true, errors.Wrapf(err, "read dir %s", path)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != SourceExt {
			continue
		}
		sources = append(sources, filepath.Join(path, e.Name()))
	}
	if len(sources) == 0 {
		return nil, true, errors.Errorf("no %s files in %s", SourceExt, path)
	}
	sort.Strings(sources)
	return sources, true, nil
}

// DefaultOutputPath returns X.asm next to X.vm, or D/D.asm for a
// directory D.
func DefaultOutputPath(path string, isDir bool) string {
	if isDir {
		clean := filepath.Clean(path)
		name := filepath.Base(clean)
		if abs, err := filepath.Abs(clean); err == nil {
			name = filepath.Base(abs)
		}
		return filepath.Join(clean, name+".asm")
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".asm"
}
