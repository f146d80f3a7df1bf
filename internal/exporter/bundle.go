package exporter

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

// BundleOptions carries everything the three bundled artifacts need.
type BundleOptions struct {
	CSV       CSVOptions
	SheetName string
	Width     int
	Height    int

	// At stamps the entry filenames; zero means now.
	At time.Time
}

// Bundle builds the CSV, workbook, and chart PNG concurrently and zips them
// under their conventional filenames. The inputs are immutable, so the three
// producers run without locking; the first failure cancels the rest.
func Bundle(ctx context.Context, view *domain.FilteredView, spec *domain.ChartSpec, opts BundleOptions) ([]byte, error) {
	if view == nil {
		return nil, apperrors.NewAppValidationError("a filtered view is required")
	}
	at := opts.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var csvBytes, sheetBytes, pngBytes []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		var err error
		csvBytes, err = CSV(view, opts.CSV)
		return err
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		var err error
		sheetBytes, err = Spreadsheet(view, opts.SheetName)
		return err
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		var err error
		pngBytes, err = PNG(spec, opts.Width, opts.Height)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := []struct {
		name string
		data []byte
	}{
		{CSVFilename(view.Category, at), csvBytes},
		{SpreadsheetFilename(view.Category, at), sheetBytes},
		{ChartFilename(view.Category, at), pngBytes},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range entries {
		w, err := zw.Create(entry.name)
		if err != nil {
			return nil, apperrors.NewInternalAppError(fmt.Sprintf("failed to add %s to bundle", entry.name), err)
		}
		if _, err := w.Write(entry.data); err != nil {
			return nil, apperrors.NewInternalAppError(fmt.Sprintf("failed to write %s to bundle", entry.name), err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, apperrors.NewInternalAppError("failed to finalize bundle", err)
	}
	return buf.Bytes(), nil
}
