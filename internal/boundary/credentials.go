package boundary

import (
	"os"
	"path/filepath"

	"jeeves/internal/paths"
)

func credentialsPath(layout paths.Layout, provider string) string {
	return filepath.Join(layout.Root, "credentials", provider+".json")
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
