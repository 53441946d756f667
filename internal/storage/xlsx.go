package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/IshaanNene/PriceHound/internal/dataset"
	"github.com/IshaanNene/PriceHound/internal/logging"
)

const xlsxSheet = "Sheet1"

// XLSXStorage streams rows into a spreadsheet saved on Close.
type XLSXStorage struct {
	path   string
	file   *excelize.File
	sw     *excelize.StreamWriter
	next   int
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewXLSXStorage creates a new spreadsheet storage and writes the header row.
func NewXLSXStorage(outputPath string, logger zerolog.Logger) (*XLSXStorage, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f := excelize.NewFile()
	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create stream writer: %w", err)
	}

	header := make([]any, len(dataset.Columns))
	for i, c := range dataset.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write XLSX header: %w", err)
	}

	return &XLSXStorage{
		path:   outputPath,
		file:   f,
		sw:     sw,
		next:   2,
		logger: logging.Component(logger, "xlsx_storage"),
	}, nil
}

func (s *XLSXStorage) Name() string { return "xlsx" }

// Store appends rows below the ones already written.
func (s *XLSXStorage) Store(rows []dataset.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, s.next)
		if err != nil {
			return err
		}
		if err := s.sw.SetRow(cell, row.Cells()); err != nil {
			return fmt.Errorf("write XLSX row: %w", err)
		}
		s.next++
	}
	return nil
}

func (s *XLSXStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.file.Close()

	if err := s.sw.Flush(); err != nil {
		return fmt.Errorf("flush XLSX: %w", err)
	}
	if err := s.file.SaveAs(s.path); err != nil {
		return fmt.Errorf("save XLSX: %w", err)
	}

	s.logger.Info().Str("path", s.path).Int("rows", s.next-2).Msg("XLSX written")
	return nil
}
