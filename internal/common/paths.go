// Copyright 2024 vshell Authors
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

package common

import "strings"

// Root is the namespace root path.
const Root = "/"

// NormalizePath returns the absolute, normalized form of path.
// Empty and "." segments are dropped, ".." pops the previous segment and is
// ignored at the root. The result always starts with "/" and never ends
// with one unless it is the root itself.
func NormalizePath(path string) string {
	stack := make([]string, 0, strings.Count(path, "/")+1)
	for _, part := range strings.Split(path, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, part)
		}
	}
	return Root + strings.Join(stack, "/")
}

// ResolvePath resolves raw against cwd. Absolute inputs ignore cwd.
func ResolvePath(cwd, raw string) string {
	if strings.HasPrefix(raw, "/") {
		return NormalizePath(raw)
	}
	return NormalizePath(cwd + "/" + raw)
}

// SplitPath splits a path into its components
func SplitPath(path string) []string {
	path = NormalizePath(path)
	if path == Root {
		return nil
	}
	return strings.Split(path[1:], "/")
}

// JoinPath joins path components
func JoinPath(parts ...string) string {
	return NormalizePath(strings.Join(parts, "/"))
}

// ParentPath returns the parent directory of a path. The root is its own parent.
func ParentPath(path string) string {
	path = NormalizePath(path)
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return Root
	}
	return path[:i]
}

// BaseName returns the base name of a path ("" for the root)
func BaseName(path string) string {
	path = NormalizePath(path)
	return path[strings.LastIndex(path, "/")+1:]
}

// IsWithin reports whether path equals root or is nested under it.
// Both arguments must already be normalized.
func IsWithin(path, root string) bool {
	if path == root || root == Root {
		return true
	}
	return strings.HasPrefix(path, root+"/")
}

// ChildPrefix returns the prefix shared by every path nested under dir.
func ChildPrefix(dir string) string {
	if dir == Root {
		return Root
	}
	return dir + "/"
}

// Rebase rewrites the from prefix of path to to. path must be within from.
func Rebase(path, from, to string) string {
	if path == from {
		return to
	}
	return NormalizePath(to + "/" + strings.TrimPrefix(path, ChildPrefix(from)))
}
