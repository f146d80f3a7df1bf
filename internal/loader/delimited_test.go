package loader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgboard/internal/dataset"
	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

func TestLoadDelimited(t *testing.T) {
	payload := []byte("Date,Environmental_CO2 Emissions (tons),Social_Safety Incidents\n" +
		"2023-01-31,1.2,1\n" +
		"2023-02-28,2.4,3\n" +
		"2023-03-31,3.8,4\n")

	l := New(testLoaderConfig(), nil)
	result, err := l.Load(context.Background(), Request{
		Kind:     domain.SourceDelimitedUpload,
		Payload:  payload,
		Filename: "wide.csv",
	})
	require.NoError(t, err)

	ds := result.Dataset
	assert.Equal(t, domain.SourceDelimitedUpload, ds.Source)
	assert.Equal(t, "2023-01-31 to 2023-03-31", ds.Period)

	env, ok := ds.Table(domain.CategoryEnvironmental)
	require.True(t, ok)
	assert.Equal(t, []string{"CO2 Emissions (tons)"}, env.Metrics)
	assert.InDeltaSlice(t, []float64{1.2, 2.4, 3.8}, env.Values["CO2 Emissions (tons)"], 1e-9)

	soc, ok := ds.Table(domain.CategorySocial)
	require.True(t, ok)
	assert.Equal(t, []string{"Safety Incidents"}, soc.Metrics)
	assert.InDeltaSlice(t, []float64{1, 3, 4}, soc.Values["Safety Incidents"], 1e-9)

	// No governance columns were present, so no governance table exists.
	_, ok = ds.Table(domain.CategoryGovernance)
	assert.False(t, ok)

	// Both tables share the same date axis.
	require.Equal(t, env.Rows(), soc.Rows())
	for i := range env.Dates {
		assert.True(t, env.Dates[i].Equal(soc.Dates[i]))
	}
	assert.Equal(t, time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC), env.Dates[2])

	// The wide format carries no targets, so sample goals stand in.
	assert.Equal(t, dataset.Targets(domain.CategoryEnvironmental), ds.TargetsFor(domain.CategoryEnvironmental))
	assert.Equal(t, dataset.Targets(domain.CategorySocial), ds.TargetsFor(domain.CategorySocial))
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, SubstitutedTargetsWarning, result.Warnings[0])
	assert.Equal(t, result.Warnings, ds.Warnings)
}

func TestLoadDelimitedStripsBOM(t *testing.T) {
	payload := append([]byte{0xEF, 0xBB, 0xBF},
		[]byte("Date,Governance_Supplier Audits\n2023-01-31,3\n")...)

	l := New(testLoaderConfig(), nil)
	result, err := l.Load(context.Background(), Request{
		Kind:    domain.SourceDelimitedUpload,
		Payload: payload,
	})
	require.NoError(t, err)

	gov, ok := result.Dataset.Table(domain.CategoryGovernance)
	require.True(t, ok)
	assert.Equal(t, []string{"Supplier Audits"}, gov.Metrics)
}

func TestLoadDelimitedIgnoresUnknownColumns(t *testing.T) {
	payload := []byte("Date,Notes,Environmental_Water Usage (m³)\n" +
		"2023-01-31,audited,31.5\n" +
		"2023-02-28,draft,63.2\n")

	l := New(testLoaderConfig(), nil)
	result, err := l.Load(context.Background(), Request{
		Kind:    domain.SourceDelimitedUpload,
		Payload: payload,
	})
	require.NoError(t, err)

	env, ok := result.Dataset.Table(domain.CategoryEnvironmental)
	require.True(t, ok)
	assert.Equal(t, []string{"Water Usage (m³)"}, env.Metrics)
	assert.InDeltaSlice(t, []float64{31.5, 63.2}, env.Values["Water Usage (m³)"], 1e-9)
}

func TestLoadDelimitedErrors(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantType apperrors.ErrorType
	}{
		{"empty payload", "", apperrors.ErrTypeParsing},
		{"header only", "Date,Environmental_X\n", apperrors.ErrTypeParsing},
		{"missing date column", "Environmental_X\n1.0\n", apperrors.ErrTypeSchema},
		{"no category columns", "Date,X\n2023-01-31,1\n", apperrors.ErrTypeSchema},
		{"bad date", "Date,Environmental_X\nJan,1\n", apperrors.ErrTypeParsing},
		{"bad number", "Date,Environmental_X\n2023-01-31,high\n", apperrors.ErrTypeParsing},
		{"decreasing dates", "Date,Environmental_X\n2023-02-28,1\n2023-01-31,2\n", apperrors.ErrTypeParsing},
		{"ragged rows", "Date,Environmental_X,Environmental_Y\n2023-01-31,1\n", apperrors.ErrTypeParsing},
	}

	l := New(testLoaderConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Load(context.Background(), Request{
				Kind:    domain.SourceDelimitedUpload,
				Payload: []byte(tt.payload),
			})
			require.Error(t, err)

			if tt.wantType == apperrors.ErrTypeSchema {
				var schemaErr *apperrors.SchemaError
				assert.ErrorAs(t, err, &schemaErr)
				return
			}
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantType, appErr.Type)
		})
	}
}
