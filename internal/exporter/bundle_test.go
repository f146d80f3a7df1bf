package exporter

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgboard/internal/chart"
	"esgboard/pkg/contracts/domain"
)

func TestBundle(t *testing.T) {
	view := testView(t)
	spec, err := chart.BuildSpec(view, domain.TargetMap{"CO2 Emissions (tons)": 1}, chart.Options{
		Kind:      domain.ChartLine,
		ShowGoals: true,
	})
	require.NoError(t, err)

	at := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	out, err := Bundle(context.Background(), view, spec, BundleOptions{
		CSV:    CSVOptions{BOMPrefix: true},
		Width:  400,
		Height: 300,
		At:     at,
	})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	names := make([]string, 0, 3)
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{
		"environmental_esg_20250131.csv",
		"environmental_esg_20250131.xlsx",
		"environmental_chart_20250131.png",
	}, names)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestBundleRenderFailure(t *testing.T) {
	view := testView(t)

	// An empty chart spec cannot render, and the failure aborts the bundle.
	_, err := Bundle(context.Background(), view, &domain.ChartSpec{}, BundleOptions{Width: 400, Height: 300})
	assert.Error(t, err)
}

func TestBundleCanceledContext(t *testing.T) {
	view := testView(t)
	spec, err := chart.BuildSpec(view, nil, chart.Options{Kind: domain.ChartLine})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Bundle(ctx, view, spec, BundleOptions{Width: 400, Height: 300})
	assert.Error(t, err)
}
