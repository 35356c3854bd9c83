// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/penny-vault/pv-dashboard/common"
	"github.com/penny-vault/pv-dashboard/dataframe"
	"github.com/rs/zerolog/log"
)

// CSVLoader reads the return table from a CSV file whose first column is the date
type CSVLoader struct {
	Path string
}

// NewCSVLoader creates a loader for the file at path
func NewCSVLoader(path string) *CSVLoader {
	return &CSVLoader{
		Path: path,
	}
}

// Load reads and validates the return table
func (loader *CSVLoader) Load(ctx context.Context) (*ReturnTable, error) {
	df, err := ReadCSVFile(loader.Path)
	if err != nil {
		return nil, err
	}
	return NewReturnTable(df)
}

// ReadCSVFile parses the CSV file at fn into a dataframe
func ReadCSVFile(fn string) (*dataframe.DataFrame, error) {
	fh, err := os.Open(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not open return table")
		return nil, err
	}
	defer fh.Close()

	return ReadCSV(fh)
}

// ReadCSV parses a CSV stream into a dataframe. The first column must hold ISO-8601 dates;
// empty or unparseable cells become NaN.
func ReadCSV(r io.Reader) (*dataframe.DataFrame, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &dataframe.DataFrame{Dates: []time.Time{}, ColNames: []string{}, Vals: [][]float64{}}, nil
	}
	if err != nil {
		log.Error().Err(err).Msg("could not read csv header")
		return nil, err
	}

	if len(header) == 0 || !strings.EqualFold(strings.TrimSpace(header[0]), DateColumn) {
		return nil, ErrMissingDateColumn
	}

	df := &dataframe.DataFrame{
		Dates:    []time.Time{},
		ColNames: make([]string, len(header)-1),
		Vals:     make([][]float64, len(header)-1),
	}

	for idx, colName := range header[1:] {
		df.ColNames[idx] = canonicalColumn(strings.TrimSpace(colName))
		df.Vals[idx] = []float64{}
	}

	lineNo := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNo++
		if err != nil {
			log.Error().Err(err).Int("Line", lineNo).Msg("could not read csv record")
			return nil, err
		}

		dt, err := parseDate(record[0])
		if err != nil {
			log.Error().Err(err).Int("Line", lineNo).Str("Value", record[0]).Msg("could not parse date")
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		df.Dates = append(df.Dates, dt)

		for colIdx := range df.Vals {
			val := math.NaN()
			if colIdx+1 < len(record) {
				if parsed, err := strconv.ParseFloat(strings.TrimSpace(record[colIdx+1]), 64); err == nil {
					val = parsed
				}
			}
			df.Vals[colIdx] = append(df.Vals[colIdx], val)
		}
	}

	return df, nil
}

// parseDate accepts plain dates and timestamps whose first 10 characters are a date
func parseDate(val string) (time.Time, error) {
	val = strings.TrimSpace(val)
	if len(val) > len(common.DateFormat) {
		val = val[:len(common.DateFormat)]
	}
	return time.Parse(common.DateFormat, val)
}

// WriteCSV writes df as CSV. NaN values are written as empty cells.
func WriteCSV(w io.Writer, df *dataframe.DataFrame) error {
	writer := csv.NewWriter(w)

	header := append([]string{DateColumn}, df.ColNames...)
	if err := writer.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for rowIdx, dt := range df.Dates {
		record[0] = dt.Format(common.DateFormat)
		for colIdx, col := range df.Vals {
			if math.IsNaN(col[rowIdx]) {
				record[colIdx+1] = ""
			} else {
				record[colIdx+1] = strconv.FormatFloat(col[rowIdx], 'f', -1, 64)
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSVFile atomically replaces fn with the CSV encoding of df. The data is written to a
// temporary file in the same directory and renamed over fn so readers never see a partial file.
func WriteCSVFile(fn string, df *dataframe.DataFrame) error {
	subLog := log.With().Str("FileName", fn).Logger()

	tmp, err := os.CreateTemp(filepath.Dir(fn), filepath.Base(fn)+".*.tmp")
	if err != nil {
		subLog.Error().Err(err).Msg("could not create temporary file")
		return err
	}

	if err := WriteCSV(tmp, df); err != nil {
		subLog.Error().Err(err).Msg("could not write return table")
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Close(); err != nil {
		subLog.Error().Err(err).Msg("could not close temporary file")
		os.Remove(tmp.Name())
		return err
	}

	if err := os.Rename(tmp.Name(), fn); err != nil {
		subLog.Error().Err(err).Msg("could not replace return table")
		os.Remove(tmp.Name())
		return err
	}

	subLog.Info().Int("NumRows", df.Len()).Int("NumCols", df.ColCount()).Msg("wrote return table")
	return nil
}
