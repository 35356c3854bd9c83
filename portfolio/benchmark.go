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
	"time"

	"github.com/penny-vault/pv-dashboard/dataframe"
)

// NormalizeBenchmark simulates investing initial into a benchmark on the first of dates. The
// benchmark's returns are conformed to dates, with days it has no observation for treated as a
// 0 return, and integrated with the first point anchored at initial. Only the first column of
// series is used.
func NormalizeBenchmark(dates []time.Time, series *dataframe.DataFrame, initial float64) []float64 {
	if len(dates) == 0 || series.ColCount() == 0 {
		return []float64{}
	}

	growth := series.Reindex(dates, 0).FillNaN(0).AddScalar(1).CumProd()
	if growth.ColCount() > 1 {
		growth, _ = growth.Select(growth.ColNames[0])
	}

	return growth.MulScalar(initial / growth.Vals[0][0]).Vals[0]
}
