package io

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williampepple1/legis-harvester/internal/config"
	"github.com/williampepple1/legis-harvester/pkg/models"
)

func TestReadSpansFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.txt")
	content := "# year fragment\n2019 decretos-1/2019-decretos\n\n2020   decretos-1/2020-decretos\ntodos-os-anos consolidado\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	family := &config.FamilyConfig{SpansFile: path}
	spans, err := NewSpanReader(family).GetSpans()
	require.NoError(t, err)

	assert.Equal(t, []models.Span{
		{Label: "2019", Fragment: "decretos-1/2019-decretos"},
		{Label: "2020", Fragment: "decretos-1/2020-decretos"},
		{Label: "todos-os-anos", Fragment: "consolidado", AllYears: true},
	}, spans)
	assert.Equal(t, "2019", spans[0].Year())
	assert.Equal(t, "", spans[2].Year())
}

func TestReadSpansMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.txt")
	require.NoError(t, os.WriteFile(path, []byte("2019\n"), 0644))

	_, err := NewSpanReader(&config.FamilyConfig{}).ReadFromFile(path)
	assert.ErrorContains(t, err, "spans.txt:1")
}

func TestGetSpansDefaults(t *testing.T) {
	inline := &config.FamilyConfig{Spans: []models.Span{{Label: "2001", Fragment: "x"}}, SpansFile: "ignored"}
	spans, err := NewSpanReader(inline).GetSpans()
	require.NoError(t, err)
	assert.Len(t, spans, 1)

	spans, err = NewSpanReader(&config.FamilyConfig{}).GetSpans()
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.True(t, spans[0].AllYears)
	assert.Equal(t, AllYearsLabel, spans[0].Label)
}

func TestGetSpansEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.txt")
	require.NoError(t, os.WriteFile(path, []byte("# nothing yet\n"), 0644))

	_, err := NewSpanReader(&config.FamilyConfig{SpansFile: path}).GetSpans()
	assert.ErrorContains(t, err, "no spans listed")
}
