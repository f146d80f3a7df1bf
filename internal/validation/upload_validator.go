package validation

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

// xlsxMagic is the ZIP container signature every .xlsx file starts with.
var xlsxMagic = []byte("PK")

// UploadValidator gates uploaded or locally selected source files before any
// bytes reach the parsers.
type UploadValidator struct {
	logger  *slog.Logger
	maxSize int64
}

// NewUploadValidator creates an upload validator. maxSize of 0 disables the
// size check.
func NewUploadValidator(maxSize int64, logger *slog.Logger) *UploadValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadValidator{
		logger:  logger,
		maxSize: maxSize,
	}
}

// SourceKindForFile maps a filename to the source kind that parses it.
func SourceKindForFile(filename string) (domain.SourceKind, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xlsx", ".xls":
		return domain.SourceSpreadsheetUpload, nil
	case ".csv":
		return domain.SourceDelimitedUpload, nil
	default:
		return "", apperrors.NewAppValidationError(
			fmt.Sprintf("unsupported file format %q; use CSV or Excel", ext))
	}
}

// ValidateUpload checks the name, size, and leading bytes of an uploaded
// file and returns the source kind to parse it as.
func (v *UploadValidator) ValidateUpload(filename string, size int64, payload []byte) (domain.SourceKind, error) {
	base := filepath.Base(filename)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Rejected temporary Excel file",
			slog.String("file", base))
		return "", apperrors.NewAppValidationError(
			fmt.Sprintf("file %s is a temporary Excel file", base))
	}

	kind, err := SourceKindForFile(base)
	if err != nil {
		v.logger.Warn("Rejected upload with unsupported extension",
			slog.String("file", base))
		return "", err
	}

	if size <= 0 && len(payload) == 0 {
		return "", apperrors.NewAppValidationError(fmt.Sprintf("file %s is empty", base))
	}
	if v.maxSize > 0 && size > v.maxSize {
		v.logger.Warn("Rejected oversized upload",
			slog.String("file", base),
			slog.Int64("size", size),
			slog.Int64("limit", v.maxSize))
		return "", apperrors.NewAppValidationError(
			fmt.Sprintf("file %s exceeds the %d byte upload limit", base, v.maxSize))
	}

	// .xlsx is a ZIP container; a mismatched signature means the upload was
	// renamed, not converted.
	if strings.EqualFold(filepath.Ext(base), ".xlsx") && len(payload) >= len(xlsxMagic) &&
		!bytes.HasPrefix(payload, xlsxMagic) {
		v.logger.Warn("Rejected upload with mismatched content",
			slog.String("file", base))
		return "", apperrors.NewParsingError(
			fmt.Sprintf("file %s does not contain Excel workbook data", base), nil)
	}

	v.logger.Debug("Upload validated",
		slog.String("file", base),
		slog.Int64("size", size),
		slog.String("kind", string(kind)))
	return kind, nil
}

// ValidateSourceFile checks a local file path used by the CLI and returns
// the source kind to parse it as.
func (v *UploadValidator) ValidateSourceFile(path string) (domain.SourceKind, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("Source file does not exist",
			slog.String("file", path))
		return "", apperrors.NewNotFoundError(fmt.Sprintf("file %s", path))
	}
	if err != nil {
		v.logger.Error("Failed to stat source file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return "", apperrors.NewAppValidationError(fmt.Sprintf("failed to stat file %s", path))
	}
	if info.IsDir() {
		v.logger.Error("Source path is a directory, not a file",
			slog.String("path", path))
		return "", apperrors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}

	return v.ValidateUpload(path, info.Size(), nil)
}
