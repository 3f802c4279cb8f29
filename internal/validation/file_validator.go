package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// MaxUploadSize caps rent-roll uploads. Handlers wrap request bodies with
// http.MaxBytesReader using the same limit.
const MaxUploadSize = 20 << 20

// FileValidator provides file validation for the CLI tools and the upload path
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	// Check if file is readable by opening it
	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateWorkbook checks that a file on disk is a readable rent-roll workbook
func (v *FileValidator) ValidateWorkbook(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xlsm" {
		v.logger.Error("File is not a supported workbook",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("file %s is not a supported workbook (extension: %s)", path, ext)
	}

	// Excel lock files start with ~$ and hold no sheet data
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Skipping temporary workbook file",
			slog.String("file", path))
		return fmt.Errorf("file %s is a temporary workbook file", path)
	}

	return nil
}

// ValidateUpload checks the declared name and size of an uploaded rent roll
// before any bytes are parsed
func (v *FileValidator) ValidateUpload(filename string, size int64) error {
	if filename == "" {
		return fmt.Errorf("upload has no filename")
	}

	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		v.logger.Warn("Rejected upload filename",
			slog.String("filename", filename))
		return fmt.Errorf("upload filename %q is not allowed", filename)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".xlsx" && ext != ".xlsm" {
		v.logger.Warn("Rejected upload extension",
			slog.String("filename", filename),
			slog.String("extension", ext))
		return fmt.Errorf("upload %s is not a supported workbook (extension: %s)", filename, ext)
	}

	if size > MaxUploadSize {
		v.logger.Warn("Rejected oversized upload",
			slog.String("filename", filename),
			slog.Int64("size", size),
			slog.Int64("limit", MaxUploadSize))
		return fmt.Errorf("upload %s exceeds the %d byte limit", filename, int64(MaxUploadSize))
	}

	v.logger.Debug("Upload validated",
		slog.String("filename", filename),
		slog.Int64("size", size))
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	// Try to create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Info("Output directory validated",
		slog.String("directory", dir))
	return nil
}
