package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// WriteFile writes data to dir/fileName, creating dir, and returns the path.
func WriteFile(dir, fileName string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}
	log.Printf("written to: %s", path)
	return path, nil
}

func WriteMarkdown(dir, fileName, content string) (string, error) {
	return WriteFile(dir, fileName, []byte(content))
}
