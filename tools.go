package main

import (
	"os"

	"github.com/ryanuber/go-glob"
)

func isDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// isFile checks whether a path is a file.
func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// matchesAnyGlob reports whether name matches any of the given glob patterns.
func matchesAnyGlob(name string, patterns []string) bool {
	for _, pat := range patterns {
		if glob.Glob(pat, name) {
			return true
		}
	}
	return false
}
