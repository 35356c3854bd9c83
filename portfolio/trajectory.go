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
	"math"
	"time"

	"github.com/penny-vault/pv-dashboard/common"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
)

// GrowthFactors returns the cumulative product of (1 + r) for each day of returns
func GrowthFactors(returns []float64) []float64 {
	factors := make([]float64, len(returns))
	if len(returns) == 0 {
		return factors
	}

	copy(factors, returns)
	floats.AddConst(1, factors)
	return floats.CumProd(factors, factors)
}

// AnchorAtEnd integrates daily returns into values whose last point equals final:
//
//	value[t] = final / g[T] * g[t]
func AnchorAtEnd(returns []float64, final float64) []float64 {
	values := GrowthFactors(returns)
	if len(values) == 0 {
		return values
	}

	floats.Scale(final/values[len(values)-1], values)
	return values
}

// AnchorAtStart integrates daily returns into values whose first point equals initial:
//
//	value[t] = initial * g[t] / g[0]
func AnchorAtStart(returns []float64, initial float64) []float64 {
	values := GrowthFactors(returns)
	if len(values) == 0 {
		return values
	}

	floats.Scale(initial/values[0], values)
	return values
}

// RoundCents rounds half away from zero to two decimal places. NaN and infinities are returned
// unchanged.
func RoundCents(val float64) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return val
	}
	return decimal.NewFromFloat(val).Round(2).InexactFloat64()
}

// finite reports whether every value is a real number
func finite(values []float64) bool {
	for _, val := range values {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return false
		}
	}
	return true
}

// NewTrajectory pairs dates with values rounded to cents. dates and values must have the same
// length.
func NewTrajectory(dates []time.Time, values []float64) Trajectory {
	trajectory := make(Trajectory, len(values))
	for idx, val := range values {
		trajectory[idx] = PricePoint{
			Date:     dates[idx].Format(common.DateFormat),
			ValueUSD: RoundCents(val),
		}
	}
	return trajectory
}

// Values returns the value of each point
func (trajectory Trajectory) Values() []float64 {
	vals := make([]float64, len(trajectory))
	for idx, pt := range trajectory {
		vals[idx] = pt.ValueUSD
	}
	return vals
}

// Last returns the final point; ok is false for an empty trajectory
func (trajectory Trajectory) Last() (pt PricePoint, ok bool) {
	if len(trajectory) == 0 {
		return PricePoint{}, false
	}
	return trajectory[len(trajectory)-1], true
}
