package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgboard/pkg/contracts/domain"
)

func TestSourceKindForFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     domain.SourceKind
		wantErr  bool
	}{
		{"xlsx upload", "metrics.xlsx", domain.SourceSpreadsheetUpload, false},
		{"xls upload", "legacy.XLS", domain.SourceSpreadsheetUpload, false},
		{"csv upload", "wide.csv", domain.SourceDelimitedUpload, false},
		{"json rejected", "data.json", "", true},
		{"no extension rejected", "data", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := SourceKindForFile(tt.filename)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestValidateUpload(t *testing.T) {
	v := NewUploadValidator(1024, nil)

	tests := []struct {
		name     string
		filename string
		size     int64
		payload  []byte
		wantErr  string
	}{
		{"valid csv", "esg.csv", 100, []byte("Date,Environmental_X\n"), ""},
		{"valid xlsx", "esg.xlsx", 100, []byte("PK\x03\x04rest"), ""},
		{"temp excel file", "~$esg.xlsx", 100, []byte("PK"), "temporary"},
		{"empty file", "esg.csv", 0, nil, "empty"},
		{"oversized file", "esg.csv", 4096, []byte("x"), "upload limit"},
		{"renamed xlsx", "esg.xlsx", 20, []byte("not a workbook bytes"), "workbook"},
		{"unsupported extension", "esg.txt", 10, []byte("x"), "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateUpload(tt.filename, tt.size, tt.payload)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateUploadUnlimitedSize(t *testing.T) {
	v := NewUploadValidator(0, nil)

	_, err := v.ValidateUpload("big.csv", 1<<30, []byte("Date\n"))
	assert.NoError(t, err)
}

func TestValidateSourceFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,Environmental_X\n2023-01-31,1\n"), 0o644))

	v := NewUploadValidator(0, nil)

	kind, err := v.ValidateSourceFile(path)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceDelimitedUpload, kind)

	_, err = v.ValidateSourceFile(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	_, err = v.ValidateSourceFile(dir)
	assert.Error(t, err)
}
