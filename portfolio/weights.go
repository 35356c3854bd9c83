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

// ResolveWeights computes weight = valueUSD / total for every holding whose asset is priced.
// Unpriced holdings (e.g. cash) are skipped and the remaining weights are NOT re-normalized, so
// they sum to less than 1 when anything was skipped. Weights are ordered by first appearance in
// holdings; repeated assets accumulate into one entry. A non-positive total yields an empty map.
func ResolveWeights(holdings []Holding, total float64, priced func(assetID string) bool) *WeightMap {
	weights := &WeightMap{
		Assets:  []string{},
		Weights: make(map[string]float64),
	}

	if total <= 0 {
		return weights
	}

	for _, holding := range holdings {
		if !priced(holding.AssetID) {
			continue
		}

		if _, ok := weights.Weights[holding.AssetID]; !ok {
			weights.Assets = append(weights.Assets, holding.AssetID)
		}
		weights.Weights[holding.AssetID] += holding.ValueUSD / total
	}

	return weights
}
