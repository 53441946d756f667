package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/IshaanNene/PriceHound/internal/config"
	"github.com/IshaanNene/PriceHound/internal/dataset"
)

var testLogger = zerolog.Nop()

func sampleRows() []dataset.Row {
	return []dataset.Row{
		{Title: "SteelSeries Rival 3", Price: 1299, RatingCount: 250, DPI: 8500, RGBLighting: 1, MouseType: "Kablolu", ButtonCount: 6},
		{Title: "Steelseries Aerox 5", Price: 45.5, RatingCount: 12},
	}
}

func TestJSONStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "products.json")
	s, err := NewJSONStorage(path, testLogger)
	require.NoError(t, err)

	rows := sampleRows()
	require.NoError(t, s.Store(rows[:1]))
	require.NoError(t, s.Store(rows[1:]))
	require.NoError(t, s.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []dataset.Row
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, rows, got)
}

func TestJSONLStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.jsonl")
	s, err := NewJSONLStorage(path, testLogger)
	require.NoError(t, err)
	require.NoError(t, s.Store(sampleRows()))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got []dataset.Row
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r dataset.Row
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		got = append(got, r)
	}
	assert.Equal(t, sampleRows(), got)
}

func TestCSVStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")
	s, err := NewCSVStorage(path, testLogger)
	require.NoError(t, err)
	require.NoError(t, s.Store(sampleRows()))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, dataset.Columns, records[0])
	assert.Equal(t, []string{"SteelSeries Rival 3", "1299", "250", "8500", "1", "Kablolu", "6"}, records[1])
	assert.Equal(t, []string{"Steelseries Aerox 5", "45.5", "12", "0", "0", "", "0"}, records[2])
}

func TestXLSXStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.xlsx")
	s, err := NewXLSXStorage(path, testLogger)
	require.NoError(t, err)

	rows := sampleRows()
	require.NoError(t, s.Store(rows[:1]))
	require.NoError(t, s.Store(rows[1:]))
	require.NoError(t, s.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, dataset.Columns, got[0])
	assert.Equal(t, "SteelSeries Rival 3", got[1][0])
	assert.Equal(t, "8500", got[1][3])
	assert.Equal(t, "Steelseries Aerox 5", got[2][0])
}

func TestNewFileStorage(t *testing.T) {
	dir := t.TempDir()
	for _, kind := range []string{"json", "jsonl", "csv", "xlsx"} {
		s, err := NewFileStorage(kind, dir, testLogger)
		require.NoError(t, err, kind)
		assert.Equal(t, kind, s.Name())
		require.NoError(t, s.Close())
		assert.FileExists(t, filepath.Join(dir, "products."+kind))
	}

	_, err := NewFileStorage("parquet", dir, testLogger)
	assert.Error(t, err)
}

func TestOpenFansOut(t *testing.T) {
	cfg := config.DefaultConfig().Export
	cfg.OutputPath = t.TempDir()
	cfg.Type = "csv, jsonl"

	s, err := Open(&cfg, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "multi", s.Name())
	require.NoError(t, s.Store(sampleRows()))
	require.NoError(t, s.Close())

	assert.FileExists(t, filepath.Join(cfg.OutputPath, "products.csv"))
	assert.FileExists(t, filepath.Join(cfg.OutputPath, "products.jsonl"))
}

func TestOpenTrimsSingleType(t *testing.T) {
	cfg := config.DefaultConfig().Export
	cfg.OutputPath = t.TempDir()
	cfg.Type = " csv "

	s, err := Open(&cfg, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "csv", s.Name())
	require.NoError(t, s.Store(sampleRows()))
	require.NoError(t, s.Close())

	assert.FileExists(t, filepath.Join(cfg.OutputPath, "products.csv"))
}

func TestMongoStorage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping MongoDB test in short mode")
	}
	s, err := NewMongoStorage("mongodb://localhost:27017/?serverSelectionTimeoutMS=1000", "pricehound_test", t.Name(), testLogger)
	if err != nil {
		t.Skip("MongoDB is not available, skipping test")
	}
	defer s.Close()

	require.NoError(t, s.Store(sampleRows()))
	require.NoError(t, s.Store(nil))
	assert.Equal(t, 2, s.count)
}
