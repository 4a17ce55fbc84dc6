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

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrExists        = errors.New("already exists")
	ErrNotDir        = errors.New("not a directory")
	ErrNotFile       = errors.New("not a file")
	ErrNotEmpty      = errors.New("directory not empty")
	ErrInvalidDest   = errors.New("invalid destination")
	ErrProtectedRoot = errors.New("root directory is protected")
	ErrPermission    = errors.New("permission denied")
)

// Refinements of ErrInvalidDest. errors.Is(err, ErrInvalidDest) holds for both.
var (
	ErrDestParent       = fmt.Errorf("%w: parent is not a directory", ErrInvalidDest)
	ErrDestInsideSource = fmt.Errorf("%w: destination is inside the source", ErrInvalidDest)
)
