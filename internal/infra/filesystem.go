package infra

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// GetWorkDir expands base, joins path onto it and makes sure the result exists.
func GetWorkDir(base string, path ...string) (string, error) {
	parts := append([]string{base}, path...)
	workDir, err := homedir.Expand(filepath.Join(parts...))
	if err != nil {
		return "", errors.Wrap(err, "cant expand work dir")
	}
	if err = os.MkdirAll(workDir, os.ModePerm); err != nil {
		return "", errors.Wrap(err, "cant create work dir")
	}
	log.WithField("work_dir", workDir).Debug("work dir ready")
	return workDir, nil
}

// ResolvePath returns path as-is when absolute, otherwise relative to dir.
func ResolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if expanded, err := homedir.Expand(path); err == nil && expanded != path {
		return expanded
	}
	return filepath.Join(dir, path)
}
