// Package loader finds markdown files and reads them into source documents.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// File is a raw markdown file before chunking.
type File struct {
	Path    string
	Content string
	ModTime time.Time
}

var markdownExts = map[string]bool{".md": true, ".markdown": true}

// IsMarkdown reports whether path has a markdown extension.
func IsMarkdown(path string) bool {
	return markdownExts[strings.ToLower(filepath.Ext(path))]
}

// Load resolves each argument as a glob pattern, a directory (walked
// recursively) or a single file, and reads every markdown file found.
func Load(paths []string) ([]File, error) {
	var files []File
	for _, p := range paths {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, err
			}
			if info.IsDir() {
				walked, err := loadDir(m)
				if err != nil {
					return nil, err
				}
				files = append(files, walked...)
				continue
			}
			if !IsMarkdown(m) {
				continue
			}
			f, err := loadFile(m, info)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no markdown documents found")
	}
	return files, nil
}

// LoadFile reads a single markdown file.
func LoadFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	return loadFile(path, info)
}

func loadDir(root string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsMarkdown(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		f, err := loadFile(path, info)
		if err != nil {
			return err
		}
		files = append(files, f)
		return nil
	})
	return files, err
}

func loadFile(path string, info fs.FileInfo) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return File{Path: filepath.ToSlash(path), Content: string(data), ModTime: info.ModTime()}, nil
}
