package storage

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode"

	"svg-converter/internal/model"
	"svg-converter/pkg/apierror"
)

// PathValidator confines lookups to the direct children of one directory.
type PathValidator struct {
	rootAbs string
}

func NewPathValidator(root string) (*PathValidator, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("directory path cannot be empty")
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve directory %q: %w", root, err)
	}

	return &PathValidator{rootAbs: rootAbs}, nil
}

func (v *PathValidator) RootAbs() string {
	return v.rootAbs
}

// ResolveName maps a flat file name to its absolute path. Anything that is
// not a single plain path segment is rejected.
func (v *PathValidator) ResolveName(name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", invalidName("file name is required", name)
	}

	if strings.ContainsAny(name, `/\`) {
		return "", apierror.Wrap(model.ErrInvalidName, "PATH_TRAVERSAL", "file name must not contain path separators", name, http.StatusBadRequest)
	}

	if hasControlCharacters(name) {
		return "", invalidName("file name contains invalid characters", name)
	}

	resolved := filepath.Join(v.rootAbs, name)
	if filepath.Dir(resolved) != v.rootAbs {
		return "", apierror.Wrap(model.ErrInvalidName, "PATH_TRAVERSAL", "resolved path is outside the store", name, http.StatusBadRequest)
	}

	return resolved, nil
}

func hasControlCharacters(value string) bool {
	for _, char := range value {
		if unicode.IsControl(char) {
			return true
		}
	}

	return false
}

func invalidName(message string, name string) error {
	return apierror.Wrap(model.ErrInvalidName, "INVALID_FILENAME", message, name, http.StatusBadRequest)
}
