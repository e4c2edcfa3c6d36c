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

package shared

import (
	"fmt"

	"github.com/tombee/stepwise/internal/config"
	"github.com/tombee/stepwise/internal/store"
	"github.com/tombee/stepwise/internal/store/memory"
	"github.com/tombee/stepwise/internal/store/sqlite"
)

// MemoryDB selects the in-memory run store.
const MemoryDB = ":memory:"

// OpenStore opens the run store at path. An empty path selects the default
// database under the data directory; MemoryDB keeps runs in memory for
// the life of the process.
func OpenStore(path string) (store.Backend, error) {
	if path == MemoryDB {
		return memory.New(), nil
	}

	if path == "" {
		p, err := config.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve run database path: %w", err)
		}
		path = p
	}

	be, err := sqlite.New(sqlite.Config{Path: path, WAL: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open run database %s: %w", path, err)
	}
	return be, nil
}
