package handler

import (
	"net/http"

	"svg-converter/internal/model"
)

type statsProvider interface {
	Stats() (model.StorageStats, error)
}

type StorageHandler struct {
	stats statsProvider
}

func NewStorageHandler(stats statsProvider) *StorageHandler {
	return &StorageHandler{stats: stats}
}

func (h *StorageHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	stats, err := h.stats.Stats()
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, stats)
}
