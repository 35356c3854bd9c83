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

package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// Store reads user profiles from `{dir}/{userId}.json`
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{
		dir: dir,
	}
}

// Load reads the profile of userID. If the user has no profile the profile in
// `test_user.json` is returned instead. NetWorthUSD is set from the portfolio total and
// missing name and base currency fields are defaulted.
func (store *Store) Load(userID string) (*UserProfile, error) {
	subLog := log.With().Str("UserID", userID).Logger()

	if !userIDPattern.MatchString(userID) {
		subLog.Warn().Msg("rejecting malformed user id")
		return nil, fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}

	raw, err := os.ReadFile(store.path(userID))
	if errors.Is(err, fs.ErrNotExist) {
		subLog.Debug().Msg("no profile for user; using fallback profile")
		raw, err = os.ReadFile(store.path(FallbackUserID))
		if errors.Is(err, fs.ErrNotExist) {
			subLog.Error().Str("Dir", store.dir).Msg("fallback profile does not exist")
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
		}
	}

	if err != nil {
		subLog.Error().Err(err).Msg("could not read profile")
		return nil, err
	}

	profile := &UserProfile{}
	if err := json.Unmarshal(raw, profile); err != nil {
		subLog.Error().Err(err).Msg("could not parse profile")
		return nil, fmt.Errorf("parse profile %s: %w", userID, err)
	}

	if err := normalize(profile); err != nil {
		subLog.Error().Err(err).Msg("profile failed validation")
		return nil, err
	}

	return profile, nil
}

func (store *Store) path(userID string) string {
	return filepath.Join(store.dir, fmt.Sprintf("%s.json", userID))
}

func normalize(profile *UserProfile) error {
	for _, holding := range profile.Portfolio.Holdings {
		if holding.ValueUSD < 0 {
			return fmt.Errorf("%w: %s has value %f", ErrInvalidHolding, holding.AssetID, holding.ValueUSD)
		}
	}

	if profile.Portfolio.Totals.TotalValueUSD < 0 {
		return fmt.Errorf("%w: negative portfolio total", ErrInvalidHolding)
	}

	profile.NetWorthUSD = profile.Portfolio.Totals.TotalValueUSD

	if profile.BaseCurrency == "" {
		profile.BaseCurrency = DefaultBaseCurrency
	}

	if profile.Name == "" {
		profile.Name = profile.UserID
	}

	return nil
}
