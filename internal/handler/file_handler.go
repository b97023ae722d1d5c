package handler

import (
	"errors"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"svg-converter/internal/model"
	"svg-converter/internal/storage"
	"svg-converter/internal/util"
	"svg-converter/pkg/apierror"
)

type FileHandler struct {
	store *storage.Store
}

func NewFileHandler(store *storage.Store) *FileHandler {
	return &FileHandler{store: store}
}

// Serve returns a stored file by name, looking in the incoming directory
// before the converted one.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || strings.TrimSpace(name) == "" {
		writeError(w, apierror.BadRequest("INVALID_FILENAME", "file name is required", "name"))
		return
	}

	role, resolved, err := h.store.Find(name)
	if err != nil {
		writeError(w, err)
		return
	}

	file, info, err := h.store.Open(role, name)
	if err != nil {
		// Swept between lookup and open.
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, apierror.Wrap(model.ErrFileNotFound, "NOT_FOUND", "file not found", name, http.StatusNotFound))
			return
		}
		writeError(w, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", util.ContentTypeForFile(resolved))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), file)
}
