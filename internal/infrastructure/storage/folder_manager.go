package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/pkg/utils"
)

// LocalFolderManager keeps one document folder per trip under baseDir
type LocalFolderManager struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFolderManager creates a new LocalFolderManager
func NewLocalFolderManager(baseDir string, logger *zap.Logger) port.FolderManager {
	return &LocalFolderManager{
		baseDir: baseDir,
		logger:  logger,
	}
}

// CreateFolder creates the folder for name and returns its full path.
// An existing folder is not an error.
func (m *LocalFolderManager) CreateFolder(ctx context.Context, name string) (string, error) {
	safeName := m.SanitizeName(name)
	if safeName == "" {
		return "", fmt.Errorf("cannot create folder: empty name %q", name)
	}

	folderPath := filepath.Join(m.baseDir, safeName)
	if err := os.MkdirAll(folderPath, 0755); err != nil {
		m.logger.Error("Failed to create trip folder",
			zap.String("name", name),
			zap.String("folder_path", folderPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	m.logger.Debug("Trip folder ready", zap.String("folder_path", folderPath))
	return folderPath, nil
}

// GetPath returns the folder path without creating it
func (m *LocalFolderManager) GetPath(name string) string {
	return filepath.Join(m.baseDir, m.SanitizeName(name))
}

// Exists reports whether the folder is present on disk
func (m *LocalFolderManager) Exists(name string) bool {
	if m.SanitizeName(name) == "" {
		return false
	}
	info, err := os.Stat(m.GetPath(name))
	return err == nil && info.IsDir()
}

// Delete removes the folder and everything in it. A missing folder is not an error.
func (m *LocalFolderManager) Delete(ctx context.Context, name string) error {
	if m.SanitizeName(name) == "" {
		return fmt.Errorf("cannot delete folder: empty name %q", name)
	}

	folderPath := m.GetPath(name)
	if _, err := os.Stat(folderPath); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(folderPath); err != nil {
		m.logger.Error("Failed to delete trip folder",
			zap.String("folder_path", folderPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	m.logger.Info("Trip folder deleted", zap.String("folder_path", folderPath))
	return nil
}

// SanitizeName strips everything that could escape baseDir
func (m *LocalFolderManager) SanitizeName(name string) string {
	return utils.SafeName(name)
}
