// Package finder enumerates the text files beneath a path.
package finder

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var textExtensions = []string{".txt", ".text"}

// IsTextFile reports whether path has a text extension, ignoring case.
func IsTextFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range textExtensions {
		if ext == want {
			return true
		}
	}
	return false
}

// TextFiles returns every regular text file under root in lexical order. A
// root that is itself a regular file is returned as is, whatever its
// extension.
func TextFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && IsTextFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}
