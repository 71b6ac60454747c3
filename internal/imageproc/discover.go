package imageproc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// imageExtensions are the input file types picked up by Discover, matched
// case-insensitively.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
	".gif":  {},
}

// Discover returns the paths of all image files directly inside dir, in
// lexical order. Subdirectories are not descended into.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := imageExtensions[ext]; ok {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}

	return paths, nil
}

// OutputPath derives the output location for an input image: the same base
// name with a "_proc" suffix before the extension, inside outDir.
func OutputPath(inputPath, outDir string) string {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	return filepath.Join(outDir, stem+"_proc"+ext)
}
