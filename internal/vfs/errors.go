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

package vfs

import (
	"errors"
	"syscall"

	"vshell/internal/common"
)

// VFS error codes mapped to syscall errors
var (
	ENOENT    = syscall.ENOENT    // No such file or directory
	EEXIST    = syscall.EEXIST    // File exists
	ENOTDIR   = syscall.ENOTDIR   // Not a directory
	EISDIR    = syscall.EISDIR    // Is a directory
	EBADF     = syscall.EBADF     // Bad file descriptor
	EINVAL    = syscall.EINVAL    // Invalid argument
	EIO       = syscall.EIO       // I/O error
	EPERM     = syscall.EPERM     // Operation not permitted
	EACCES    = syscall.EACCES    // Permission denied
	ENOTEMPTY = syscall.ENOTEMPTY // Directory not empty
)

// Errno maps a namespace error onto the closest POSIX errno.
// Unknown errors map to EIO; nil maps to 0.
func Errno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, common.ErrNotFound):
		return ENOENT
	case errors.Is(err, common.ErrExists):
		return EEXIST
	case errors.Is(err, common.ErrNotDir), errors.Is(err, common.ErrDestParent):
		return ENOTDIR
	case errors.Is(err, common.ErrNotFile):
		return EISDIR
	case errors.Is(err, common.ErrNotEmpty):
		return ENOTEMPTY
	case errors.Is(err, common.ErrInvalidDest):
		return EINVAL
	case errors.Is(err, common.ErrProtectedRoot):
		return EPERM
	case errors.Is(err, common.ErrPermission):
		return EACCES
	default:
		return EIO
	}
}
