package service

import (
	"errors"
	"fmt"
	"os"

	"svg-converter/internal/model"
	"svg-converter/internal/storage"
)

type StatsService struct {
	store *storage.Store
}

func NewStatsService(store *storage.Store) *StatsService {
	return &StatsService{store: store}
}

// Stats reports what both directories currently hold. Files deleted while
// the listing is walked are skipped.
func (s *StatsService) Stats() (model.StorageStats, error) {
	incoming, err := s.directoryStats(model.RoleIncoming)
	if err != nil {
		return model.StorageStats{}, err
	}

	converted, err := s.directoryStats(model.RoleConverted)
	if err != nil {
		return model.StorageStats{}, err
	}

	return model.StorageStats{Incoming: incoming, Converted: converted}, nil
}

func (s *StatsService) directoryStats(role model.Role) (model.DirectoryStats, error) {
	names, err := s.store.Names(role)
	if err != nil {
		return model.DirectoryStats{}, err
	}

	var stats model.DirectoryStats
	for _, name := range names {
		file, err := s.store.Stat(role, name)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return model.DirectoryStats{}, err
		}
		stats.FileCount++
		stats.TotalSize += file.Size
	}
	stats.TotalSizeHuman = humanizeBytes(stats.TotalSize)

	return stats, nil
}

func humanizeBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
