package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Save marshals cfg to YAML and writes it atomically (temp file + rename)
// to path, via the supplied afero filesystem. Production callers pass
// afero.NewOsFs(); tests pass afero.NewMemMapFs().
func Save(fs afero.Fs, path string, cfg Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config into place: %w", err)
	}
	return nil
}
