package cli

import (
	"os"
	"path/filepath"
)

// defaultDirMode is the permission mode of created directories.
var defaultDirMode os.FileMode = 0o700

// mkdirAllRequired creates the directories holding the configuration file
// and the cache.
func mkdirAllRequired(configFile, cacheDir string) error {
	for _, dir := range []string{filepath.Dir(configFile), cacheDir} {
		if dir == "" {
			continue
		}

		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return err
		}
	}

	return nil
}
