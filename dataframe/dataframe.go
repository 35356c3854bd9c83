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

package dataframe

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/floats"
)

// ColIndex returns the index of the specified column; returns -1 if column doesn't exist
func (df *DataFrame) ColIndex(colName string) int {
	for idx, val := range df.ColNames {
		if colName == val {
			return idx
		}
	}

	return -1
}

// ColCount returns the number of columns in the dataframe
func (df *DataFrame) ColCount() int {
	return len(df.ColNames)
}

// Copy creates a deep copy of the dataframe
func (df *DataFrame) Copy() *DataFrame {
	df2 := &DataFrame{
		ColNames: make([]string, len(df.ColNames)),
		Dates:    make([]time.Time, len(df.Dates)),
		Vals:     make([][]float64, len(df.Vals)),
	}

	copy(df2.ColNames, df.ColNames)
	copy(df2.Dates, df.Dates)

	for idx := range df2.Vals {
		df2.Vals[idx] = make([]float64, len(df.Vals[idx]))
		copy(df2.Vals[idx], df.Vals[idx])
	}

	return df2
}

// Dot computes the row-wise dot product of the dataframe with vec, where vec[ii] is the
// weight of column ii. The result has one entry per row.
func (df *DataFrame) Dot(vec []float64) ([]float64, error) {
	if len(vec) != df.ColCount() {
		return nil, ErrShapeMismatch
	}

	res := make([]float64, df.Len())
	for colIdx, col := range df.Vals {
		if len(col) != len(res) {
			return nil, ErrDateIndexNotAligned
		}
		floats.AddScaled(res, vec[colIdx], col)
	}

	return res, nil
}

// Drop removes rows that contain the value `val` in any column. NaN is matched with math.IsNaN.
func (df *DataFrame) Drop(val float64) *DataFrame {
	isNA := math.IsNaN(val)
	newVals := make([][]float64, len(df.Vals))
	newDates := make([]time.Time, 0, len(df.Dates))

	for rowIdx, rowDate := range df.Dates {
		keep := true
		for _, col := range df.Vals {
			rowVal := col[rowIdx]
			if rowVal == val || (isNA && math.IsNaN(rowVal)) {
				keep = false
				break
			}
		}

		if keep {
			newDates = append(newDates, rowDate)
			for colIdx, col := range df.Vals {
				newVals[colIdx] = append(newVals[colIdx], col[rowIdx])
			}
		}
	}

	for colIdx := range newVals {
		if newVals[colIdx] == nil {
			newVals[colIdx] = []float64{}
		}
	}

	df.Vals = newVals
	df.Dates = newDates
	return df
}

// End returns the last time in the DataFrame
func (df *DataFrame) End() time.Time {
	if len(df.Dates) == 0 {
		return time.Time{}
	}
	return df.Dates[len(df.Dates)-1]
}

// FillNaN returns a copy of the dataframe with all NaN values replaced by val
func (df *DataFrame) FillNaN(val float64) *DataFrame {
	df2 := df.Copy()
	for _, col := range df2.Vals {
		for rowIdx, v := range col {
			if math.IsNaN(v) {
				col[rowIdx] = val
			}
		}
	}
	return df2
}

// ForwardFill returns a copy of the dataframe where NaN values in the named columns are
// replaced with the last non-NaN value before them. Leading NaNs are left untouched.
func (df *DataFrame) ForwardFill(colNames ...string) *DataFrame {
	df2 := df.Copy()
	for _, colName := range colNames {
		colIdx := df2.ColIndex(colName)
		if colIdx == -1 {
			continue
		}

		last := math.NaN()
		col := df2.Vals[colIdx]
		for rowIdx, v := range col {
			if math.IsNaN(v) {
				col[rowIdx] = last
			} else {
				last = v
			}
		}
	}
	return df2
}

// Insert a new column to the end of the dataframe
func (df *DataFrame) Insert(name string, col []float64) *DataFrame {
	df.ColNames = append(df.ColNames, name)
	df.Vals = append(df.Vals, col)
	return df
}

// Len returns the number of rows in the dataframe
func (df *DataFrame) Len() int {
	return len(df.Dates)
}

// Reindex conforms the dataframe to the supplied date index. Dates in the new index that are
// not present in df are filled with `fill`; dates in df that are not in the new index are
// dropped. Both date indexes must be sorted in ascending order.
func (df *DataFrame) Reindex(dates []time.Time, fill float64) *DataFrame {
	df2 := &DataFrame{
		Dates:    make([]time.Time, len(dates)),
		ColNames: make([]string, len(df.ColNames)),
		Vals:     make([][]float64, len(df.ColNames)),
	}

	copy(df2.Dates, dates)
	copy(df2.ColNames, df.ColNames)

	for colIdx := range df2.Vals {
		df2.Vals[colIdx] = make([]float64, len(dates))
	}

	srcIdx := 0
	for rowIdx, dt := range dates {
		for srcIdx < len(df.Dates) && df.Dates[srcIdx].Before(dt) {
			srcIdx++
		}

		found := srcIdx < len(df.Dates) && df.Dates[srcIdx].Equal(dt)
		for colIdx := range df2.Vals {
			if found {
				df2.Vals[colIdx][rowIdx] = df.Vals[colIdx][srcIdx]
			} else {
				df2.Vals[colIdx][rowIdx] = fill
			}
		}
	}

	return df2
}

// Select returns a new dataframe containing only the requested columns, in the requested
// order. The date index is shared with df but the column vectors are copied.
func (df *DataFrame) Select(colNames ...string) (*DataFrame, error) {
	df2 := &DataFrame{
		Dates:    df.Dates,
		ColNames: make([]string, 0, len(colNames)),
		Vals:     make([][]float64, 0, len(colNames)),
	}

	for _, colName := range colNames {
		colIdx := df.ColIndex(colName)
		if colIdx == -1 {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, colName)
		}

		col := make([]float64, len(df.Vals[colIdx]))
		copy(col, df.Vals[colIdx])

		df2.ColNames = append(df2.ColNames, colName)
		df2.Vals = append(df2.Vals, col)
	}

	return df2, nil
}

// Split the dataframe into 2, with columns matching the predicate in the first dataframe and
// all remaining columns in the second
func (df *DataFrame) Split(predicate func(colName string) bool) (*DataFrame, *DataFrame) {
	one := &DataFrame{
		Dates:    df.Dates,
		ColNames: []string{},
		Vals:     [][]float64{},
	}

	two := &DataFrame{
		Dates:    df.Dates,
		ColNames: []string{},
		Vals:     [][]float64{},
	}

	for idx, col := range df.ColNames {
		if predicate(col) {
			one.ColNames = append(one.ColNames, col)
			one.Vals = append(one.Vals, df.Vals[idx])
		} else {
			two.ColNames = append(two.ColNames, col)
			two.Vals = append(two.Vals, df.Vals[idx])
		}
	}

	return one, two
}

// Start returns the first date of the dataframe
func (df *DataFrame) Start() time.Time {
	if len(df.Dates) == 0 {
		return time.Time{}
	}
	return df.Dates[0]
}

// Table returns an ASCII formatted table of the dataframe
func (df *DataFrame) Table() string {
	if len(df.Dates) == 0 {
		return "<NO DATA>" // nothing to do as there is no data available in the dataframe
	}

	// construct table header
	tableCols := append([]string{"Date"}, df.ColNames...)

	// initialize table
	s := &strings.Builder{}
	table := tablewriter.NewWriter(s)
	table.SetHeader(tableCols)
	footer := make([]string, len(tableCols))
	footer[0] = "Num Rows"
	if len(footer) > 1 {
		footer[1] = fmt.Sprintf("%d", df.Len())
	}
	table.SetFooter(footer)
	table.SetBorder(false)

	for rowIdx, rowDate := range df.Dates {
		row := make([]string, 0, len(df.Vals)+1)
		row = append(row, rowDate.Format("2006-01-02"))
		for _, col := range df.Vals {
			row = append(row, fmt.Sprintf("%.4f", col[rowIdx]))
		}
		table.Append(row)
	}

	table.Render()
	return s.String()
}

// Trim the dataframe to the specified date range (inclusive). A zero begin or end leaves that
// side of the range open.
func (df *DataFrame) Trim(begin, end time.Time) *DataFrame {
	df2 := &DataFrame{
		ColNames: df.ColNames,
		Dates:    []time.Time{},
		Vals:     make([][]float64, len(df.Vals)),
	}

	for colIdx := range df2.Vals {
		df2.Vals[colIdx] = []float64{}
	}

	if df.Len() == 0 {
		return df2
	}

	if begin.IsZero() {
		begin = df.Start()
	}

	if end.IsZero() {
		end = df.End()
	}

	// special case: requested range is invalid
	if end.Before(begin) {
		return df2
	}

	// Use binary search to find the index corresponding to the start and end times
	beginIdx := sort.Search(len(df.Dates), func(i int) bool {
		return !df.Dates[i].Before(begin)
	})

	endIdx := sort.Search(len(df.Dates), func(i int) bool {
		return df.Dates[i].After(end)
	})

	if beginIdx >= endIdx {
		return df2
	}

	df2.Dates = df.Dates[beginIdx:endIdx]
	for colIdx, col := range df.Vals {
		df2.Vals[colIdx] = col[beginIdx:endIdx]
	}

	return df2
}
