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

package database

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// types

type PgxIface interface {
	Begin(context.Context) (pgx.Tx, error)
}

// Private

var (
	pool             PgxIface
	openTransactions map[string]string
	trxLock          sync.Mutex
)

// Public

func SetPool(myPool PgxIface) {
	trxLock.Lock()
	openTransactions = make(map[string]string)
	trxLock.Unlock()
	pool = myPool
}

// Connect opens a connection pool to `database.url` and installs it as the package pool
func Connect(ctx context.Context) error {
	myPool, err := pgxpool.Connect(ctx, viper.GetString("database.url"))
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not connect to pool")
		return err
	}
	if err = myPool.Ping(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not ping database server")
		return err
	}
	SetPool(myPool)
	return nil
}

// Connected reports whether a pool has been installed
func Connected() bool {
	return pool != nil
}

// LogOpenTransactions writes an INFO log for each open transaction
func LogOpenTransactions() {
	trxLock.Lock()
	defer trxLock.Unlock()
	for k, v := range openTransactions {
		log.Info().Str("TrxId", k).Str("Caller", v).Msg("open transaction")
	}
}

// NumOpenTransactions returns the count of transactions that have been started but not yet
// committed or rolled back
func NumOpenTransactions() int {
	trxLock.Lock()
	defer trxLock.Unlock()
	return len(openTransactions)
}

// Begin starts a transaction that is tracked until it is committed or rolled back
func Begin(ctx context.Context) (pgx.Tx, error) {
	trx, err := pool.Begin(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not begin transaction")
		return nil, err
	}

	// record transactions in openTransaction log
	_, file, lineno, ok := runtime.Caller(1)
	caller := fmt.Sprintf("[%v] %s:%d", ok, file, lineno)
	trxID := uuid.New().String()

	trxLock.Lock()
	openTransactions[trxID] = caller
	trxLock.Unlock()

	return &TrackedTx{
		id: trxID,
		tx: trx,
	}, nil
}

func untrack(id string) {
	trxLock.Lock()
	delete(openTransactions, id)
	trxLock.Unlock()
}
