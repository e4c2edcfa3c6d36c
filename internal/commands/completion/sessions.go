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
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	maxSessionFiles = 100
	maxSearchDepth  = 2
)

// sessionFile represents a discovered session file with metadata.
type sessionFile struct {
	path    string
	modTime int64
}

// CompleteSessionFiles provides dynamic completion for session file paths.
// Discovers .yaml and .yml files in the current directory and subdirectories (max 2 levels deep).
// Files must carry a top-level 'algorithm:' key to count as sessions.
// Returns paths relative to current directory, limited to 100 files sorted by modification date.
func CompleteSessionFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		files, err := discoverSessionFiles(".", maxSearchDepth)
		if err != nil || len(files) == 0 {
			return nil, cobra.ShellCompDirectiveDefault
		}

		sort.Slice(files, func(i, j int) bool {
			return files[i].modTime > files[j].modTime
		})
		if len(files) > maxSessionFiles {
			files = files[:maxSessionFiles]
		}

		paths := make([]string, 0, len(files))
		for _, f := range files {
			paths = append(paths, f.path)
		}
		return paths, cobra.ShellCompDirectiveDefault
	})
}

// discoverSessionFiles searches for session files up to maxDepth levels.
func discoverSessionFiles(root string, maxDepth int) ([]sessionFile, error) {
	var files []sessionFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Skip directories we can't read
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		depth := strings.Count(relPath, string(filepath.Separator))
		if depth > maxDepth {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() && strings.HasPrefix(d.Name(), ".") && path != root {
			return fs.SkipDir
		}
		if d.IsDir() || (!strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml")) {
			return nil
		}
		if !isSafeFile(path) || !isSessionFile(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, sessionFile{path: path, modTime: info.ModTime().Unix()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// isSafeFile rejects symlinks in the final path component.
func isSafeFile(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink == 0
}

// isSessionFile reports whether a YAML file has a top-level 'algorithm' key.
func isSessionFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false
	}
	_, ok := doc["algorithm"]
	return ok
}
