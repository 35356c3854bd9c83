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
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAssetNotFound     = errors.New("asset not found in return table")
	ErrDuplicateDate     = errors.New("return table contains duplicate dates")
	ErrMissingDateColumn = errors.New("first column must be the date")
	ErrUnknownSource     = errors.New("unknown data source")
	ErrNoData            = errors.New("no data returned")
)

// AssetNotFoundError is returned by strict asset lookups. It names the requested identifier and
// lists every identifier the table does contain.
type AssetNotFoundError struct {
	ID        string
	Available []string
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("asset '%s' not found; available assets: %s", e.ID, strings.Join(e.Available, ", "))
}

func (e *AssetNotFoundError) Unwrap() error {
	return ErrAssetNotFound
}
