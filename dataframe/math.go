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
	"math"

	"gonum.org/v1/gonum/floats"
)

// AddScalar adds the scalar value to all columns in dataframe df and returns a new dataframe
func (df *DataFrame) AddScalar(scalar float64) *DataFrame {
	df = df.Copy()
	for colIdx := range df.Vals {
		floats.AddConst(scalar, df.Vals[colIdx])
	}
	return df
}

// CumProd computes the cumulative product of each column and returns a new dataframe
func (df *DataFrame) CumProd() *DataFrame {
	df2 := &DataFrame{
		Dates:    df.Dates,
		ColNames: df.ColNames,
		Vals:     make([][]float64, len(df.Vals)),
	}

	for colIdx, col := range df.Vals {
		df2.Vals[colIdx] = make([]float64, len(col))
		if len(col) > 0 {
			floats.CumProd(df2.Vals[colIdx], col)
		}
	}

	return df2
}

// MulScalar multiplies all columns in dataframe df by the scalar and returns a new dataframe
func (df *DataFrame) MulScalar(scalar float64) *DataFrame {
	df = df.Copy()
	for colIdx := range df.Vals {
		floats.Scale(scalar, df.Vals[colIdx])
	}
	return df
}

// PctChange computes the fractional change between each row and the prior row. The first
// row, and any row whose prior value is NaN or zero, is NaN.
func (df *DataFrame) PctChange() *DataFrame {
	df2 := &DataFrame{
		Dates:    df.Dates,
		ColNames: df.ColNames,
		Vals:     make([][]float64, len(df.Vals)),
	}

	for colIdx, col := range df.Vals {
		res := make([]float64, len(col))
		for rowIdx := range col {
			if rowIdx == 0 || math.IsNaN(col[rowIdx-1]) || col[rowIdx-1] == 0 {
				res[rowIdx] = math.NaN()
				continue
			}
			res[rowIdx] = col[rowIdx]/col[rowIdx-1] - 1
		}
		df2.Vals[colIdx] = res
	}

	return df2
}
