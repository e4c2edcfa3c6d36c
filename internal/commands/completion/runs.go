// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package completion

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/stepwise/internal/commands/shared"
	"github.com/tombee/stepwise/internal/store"
)

const (
	runCacheTTL     = 2 * time.Second
	storeTimeout    = 500 * time.Millisecond
	maxRunCompletes = 50
)

// runCacheEntry holds cached run completions with expiry.
type runCacheEntry struct {
	db        string
	runs      []string
	expiresAt time.Time
}

var (
	runCache   *runCacheEntry
	runCacheMu sync.RWMutex
)

// CompleteRunIDs provides dynamic completion for recorded run IDs.
// Reads the most recent runs from the store named by --db and caches the
// result for 2 seconds. Descriptions are "algorithm (status)".
func CompleteRunIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		var db string
		if f := cmd.Flag("db"); f != nil {
			db = f.Value.String()
		}
		runs, err := getRunCompletions(db)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return runs, cobra.ShellCompDirectiveNoFileComp
	})
}

func getRunCompletions(db string) ([]string, error) {
	runCacheMu.RLock()
	if runCache != nil && runCache.db == db && time.Now().Before(runCache.expiresAt) {
		cached := runCache.runs
		runCacheMu.RUnlock()
		return cached, nil
	}
	runCacheMu.RUnlock()

	runs, err := fetchRuns(db)
	if err != nil {
		return nil, err
	}

	runCacheMu.Lock()
	runCache = &runCacheEntry{db: db, runs: runs, expiresAt: time.Now().Add(runCacheTTL)}
	runCacheMu.Unlock()
	return runs, nil
}

// fetchRuns lists recent runs with a timeout.
func fetchRuns(db string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	backend, err := shared.OpenStore(db)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	runs, err := backend.ListRuns(ctx, store.RunFilter{Limit: maxRunCompletes})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.ID+"\t"+r.Algorithm+" ("+r.Status+")")
	}
	return out, nil
}
