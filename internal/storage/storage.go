package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"svg-converter/internal/model"
	"svg-converter/internal/util"
	"svg-converter/pkg/apierror"
)

// ConvertedExt is the extension of every conversion output.
const ConvertedExt = ".svg"

const tempPrefix = "."

// Store keeps originals and conversion outputs in two flat directories.
// There is no index: the directory listing is the source of truth.
type Store struct {
	dirs      map[model.Role]*PathValidator
	createdAt func(path string, info fs.FileInfo) time.Time
}

type Option func(*Store)

// WithCreationTime overrides how a file's creation time is determined.
func WithCreationTime(fn func(path string, info fs.FileInfo) time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.createdAt = fn
		}
	}
}

func New(incomingDir string, convertedDir string, opts ...Option) (*Store, error) {
	incoming, err := NewPathValidator(incomingDir)
	if err != nil {
		return nil, err
	}

	converted, err := NewPathValidator(convertedDir)
	if err != nil {
		return nil, err
	}

	if incoming.RootAbs() == converted.RootAbs() {
		return nil, fmt.Errorf("incoming and converted directories must differ: %s", incoming.RootAbs())
	}

	for _, validator := range []*PathValidator{incoming, converted} {
		if err := os.MkdirAll(validator.RootAbs(), 0o755); err != nil {
			return nil, fmt.Errorf("create directory %q: %w", validator.RootAbs(), err)
		}
	}

	store := &Store{
		dirs: map[model.Role]*PathValidator{
			model.RoleIncoming:  incoming,
			model.RoleConverted: converted,
		},
		createdAt: CreationTime,
	}
	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

// NewName returns a collision resistant stored name that keeps the sanitized
// original name (and its extension) as a readable suffix.
func NewName(originalName string) (string, error) {
	hint, err := util.SanitizeFilename(originalName)
	if err != nil {
		return "", err
	}

	return uuid.NewString() + "-" + hint, nil
}

// ConvertedName derives the output name for an incoming file. An incoming
// file that is already an SVG keeps its name as the stem so the two never
// collide.
func ConvertedName(incomingName string) string {
	ext := filepath.Ext(incomingName)
	if strings.EqualFold(ext, ConvertedExt) {
		return incomingName[:len(incomingName)-len(ext)] + ".converted" + ConvertedExt
	}
	return strings.TrimSuffix(incomingName, ext) + ConvertedExt
}

// IsTemp reports whether name is an in-progress write that readers must skip.
func IsTemp(name string) bool {
	return strings.HasPrefix(name, tempPrefix)
}

func (s *Store) Dir(role model.Role) string {
	validator, ok := s.dirs[role]
	if !ok {
		return ""
	}
	return validator.RootAbs()
}

func (s *Store) Path(role model.Role, name string) (string, error) {
	validator, ok := s.dirs[role]
	if !ok {
		return "", fmt.Errorf("unknown store role %q", role)
	}

	if IsTemp(name) {
		return "", invalidName("file name must not start with a dot", name)
	}

	return validator.ResolveName(name)
}

// TempPath returns a hidden sibling path for role, used by writers that
// produce a file out of process before publishing it with Publish.
func (s *Store) TempPath(role model.Role, name string) (string, error) {
	final, err := s.Path(role, name)
	if err != nil {
		return "", err
	}

	return filepath.Join(filepath.Dir(final), tempPrefix+uuid.NewString()[:8]+"-"+name), nil
}

// Publish atomically moves a temp file produced via TempPath into place.
func (s *Store) Publish(role model.Role, tempPath string, name string) (model.StoredFile, error) {
	final, err := s.Path(role, name)
	if err != nil {
		return model.StoredFile{}, err
	}

	if err := os.Rename(tempPath, final); err != nil {
		_ = os.Remove(tempPath)
		return model.StoredFile{}, ioError("publish file", name, err)
	}

	return s.Stat(role, name)
}

// Put writes r under name. The content goes to a hidden temp file first and is
// renamed into place, so a failed write never leaves a visible partial file.
func (s *Store) Put(role model.Role, name string, r io.Reader) (model.StoredFile, error) {
	final, err := s.Path(role, name)
	if err != nil {
		return model.StoredFile{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(final), tempPrefix+"put-*.tmp")
	if err != nil {
		return model.StoredFile{}, ioError("create temp file", name, err)
	}
	tmpPath := tmp.Name()

	if _, err := io.CopyBuffer(tmp, r, make([]byte, 32*1024)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		if isPayloadTooLarge(err) {
			return model.StoredFile{}, err
		}
		return model.StoredFile{}, ioError("write file", name, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return model.StoredFile{}, ioError("close file", name, err)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return model.StoredFile{}, ioError("chmod file", name, err)
	}

	return s.Publish(role, tmpPath, name)
}

// Exists is advisory: the file may be deleted before the next operation.
func (s *Store) Exists(role model.Role, name string) bool {
	resolved, err := s.Path(role, name)
	if err != nil {
		return false
	}

	info, err := os.Stat(resolved)
	return err == nil && info.Mode().IsRegular()
}

func (s *Store) Stat(role model.Role, name string) (model.StoredFile, error) {
	resolved, err := s.Path(role, name)
	if err != nil {
		return model.StoredFile{}, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return model.StoredFile{}, err
	}

	if !info.Mode().IsRegular() {
		return model.StoredFile{}, fmt.Errorf("stat %q: %w", name, model.ErrFileNotFound)
	}

	return model.StoredFile{
		Name:         name,
		OriginalName: originalName(name),
		Role:         role,
		Size:         info.Size(),
		CreatedAt:    s.createdAt(resolved, info),
	}, nil
}

// Delete removes one file. Deleting a missing file is an error matching
// os.ErrNotExist; background callers are expected to tolerate it.
func (s *Store) Delete(role model.Role, name string) error {
	resolved, err := s.Path(role, name)
	if err != nil {
		return err
	}

	if err := os.Remove(resolved); err != nil {
		return fmt.Errorf("delete %s file %q: %w", role, name, err)
	}

	return nil
}

func (s *Store) Open(role model.Role, name string) (*os.File, fs.FileInfo, error) {
	resolved, err := s.Path(role, name)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, nil, err
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}

	if !info.Mode().IsRegular() {
		_ = file.Close()
		return nil, nil, fmt.Errorf("open %q: %w", name, model.ErrFileNotFound)
	}

	return file, info, nil
}

// Names lists the published files of one directory.
func (s *Store) Names(role model.Role) ([]string, error) {
	dir := s.Dir(role)
	if dir == "" {
		return nil, fmt.Errorf("unknown store role %q", role)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s directory: %w", role, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || IsTemp(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}

	return names, nil
}

// Find looks name up in the incoming directory first, then in converted.
func (s *Store) Find(name string) (model.Role, string, error) {
	for _, role := range []model.Role{model.RoleIncoming, model.RoleConverted} {
		if s.Exists(role, name) {
			resolved, err := s.Path(role, name)
			return role, resolved, err
		}
	}

	if _, err := s.Path(model.RoleIncoming, name); err != nil {
		return "", "", err
	}

	return "", "", apierror.Wrap(model.ErrFileNotFound, "NOT_FOUND", "file not found", name, http.StatusNotFound)
}

// originalName strips the "<uuid>-" prefix added by NewName.
func originalName(name string) string {
	if len(name) > 37 && name[36] == '-' {
		if _, err := uuid.Parse(name[:36]); err == nil {
			return name[37:]
		}
	}
	return ""
}

func ioError(action string, name string, err error) error {
	return apierror.Wrap(fmt.Errorf("%s %q: %w: %w", action, name, model.ErrIO, err), "IO_ERROR", "failed to store file", "", http.StatusInternalServerError)
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}
