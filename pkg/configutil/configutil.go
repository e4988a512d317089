package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalPath returns the path of the local override file for a configuration file,
// `config.json5` becomes `config.local.json5`.
func LocalPath(name string) string {
	dirname := filepath.Dir(name)
	basename := filepath.Base(name)
	ext := filepath.Ext(basename)
	prefixname := strings.TrimSuffix(basename, ext)
	return filepath.Join(dirname, fmt.Sprintf("%s.local%s", prefixname, ext))
}

// ReadConfig reads a json5 configuration file into `out`, values already present in `out`
// act as defaults. The following files are merged, where higher number is more prioritized.
// 1. <name>.<ext>
// 2. <name>.local.<ext>
//
// If neither file exists, os.ErrNotExist is returned and `out` is left untouched.
func ReadConfig[T any](name string, out *T) error {
	allNotFound := true

	for _, path := range []string{name, LocalPath(name)} {
		contents, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		allNotFound = false
		if len(contents) == 0 {
			continue
		}

		var override T
		err = json5.Unmarshal(contents, &override)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		err = mergo.Merge(out, override, mergo.WithOverride)
		if err != nil {
			return fmt.Errorf("merge %s: %w", path, err)
		}
		slog.Debug("merged config file", "path", path)
	}

	if allNotFound {
		return os.ErrNotExist
	}
	return nil
}
