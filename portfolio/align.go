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

package portfolio

import (
	"fmt"

	"github.com/penny-vault/pv-dashboard/data"
	"github.com/penny-vault/pv-dashboard/dataframe"
)

// AlignReturns selects the return column of every weighted asset, in weight order, and replaces
// missing observations with a 0 return. The result shares the return table's date index.
func AlignReturns(returns *dataframe.DataFrame, weights *WeightMap) (*dataframe.DataFrame, error) {
	cols := make([]string, len(weights.Assets))
	for idx, assetID := range weights.Assets {
		cols[idx] = data.ReturnColumn(assetID)
	}

	selected, err := returns.Select(cols...)
	if err != nil {
		return nil, err
	}

	return selected.FillNaN(0), nil
}

// BlendReturns computes the weighted daily return of the portfolio:
//
//	blended[t] = sum_a weight[a] * return[a][t]
//
// aligned must have been produced by AlignReturns with the same weights.
func BlendReturns(aligned *dataframe.DataFrame, weights *WeightMap) ([]float64, error) {
	if aligned.ColCount() != weights.Len() {
		return nil, fmt.Errorf("%w: %d columns, %d weights", ErrColumnOrder, aligned.ColCount(), weights.Len())
	}

	for idx, assetID := range weights.Assets {
		if aligned.ColNames[idx] != data.ReturnColumn(assetID) {
			return nil, fmt.Errorf("%w: column %d is %s, expected %s", ErrColumnOrder, idx, aligned.ColNames[idx], data.ReturnColumn(assetID))
		}
	}

	return aligned.Dot(weights.Vector())
}
