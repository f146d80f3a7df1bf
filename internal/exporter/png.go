package exporter

import (
	"esgboard/internal/chart"
	"esgboard/pkg/contracts/domain"
)

// PNG renders a chart spec at the given canvas size. It delegates to the
// chart renderer so the download matches the on-screen chart exactly.
func PNG(spec *domain.ChartSpec, width, height int) ([]byte, error) {
	return chart.RenderPNG(spec, width, height)
}
