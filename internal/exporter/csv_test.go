package exporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/dataprocessing"
)

func TestCSVWriter_WriteSimpleCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	w := NewCSVWriter(nil)

	err := w.WriteSimpleCSV(path, []string{"a", "b"}, [][]string{{"1", "2"}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBFa,b\n1,2\n", string(data))
}

func TestCSVWriter_AppendToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := NewCSVWriter(nil)

	require.NoError(t, w.WriteCSV(path, WriteOptions{Headers: []string{"a"}, Records: [][]string{{"1"}}}))
	require.NoError(t, w.AppendToCSV(path, [][]string{{"2"}, {"3"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n2\n3\n", string(data))
}

func TestWriteMergedCSV_Latin1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Hanford_2023_merged.CSV")
	df := dataframe.New(
		series.New([]string{"10/19/2023"}, series.String, "Date"),
		series.New([]string{"72.5"}, series.String, "Digester Temp °F"),
	)

	require.NoError(t, WriteMergedCSV(path, df))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Digester Temp \xB0F")

	back, err := dataprocessing.ReadCSVFile(path, dataprocessing.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Digester Temp °F"}, back.Names())
	assert.Equal(t, "72.5", back.Col("Digester Temp °F").Records()[0])
}

func TestWriteMergedCSV_NoColumns(t *testing.T) {
	err := WriteMergedCSV(filepath.Join(t.TempDir(), "x.CSV"), dataframe.DataFrame{})
	assert.Error(t, err)
}
