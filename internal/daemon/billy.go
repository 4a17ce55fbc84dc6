package daemon

import (
	"io"
	"os"
	"path"
	"strings"
	"syscall"
	"time"

	billy "github.com/go-git/go-billy/v5"
	log "github.com/sirupsen/logrus"
	nfsfile "github.com/willscott/go-nfs/file"

	"vshell/internal/codec"
	"vshell/internal/common"
	"vshell/internal/vfs"
)

// NamespaceGuard gives exclusive access to a namespace. *session.Session
// implements it.
type NamespaceGuard interface {
	With(fn func(ns *vfs.Namespace) error) error
}

// BillyAdapter exposes a session namespace as a billy filesystem.
// Open files are buffered in a HandleManager as plain text and written back
// obfuscated on close, so the namespace lock is only held per call.
type BillyAdapter struct {
	guard   NamespaceGuard
	handles *vfs.HandleManager
	uid     uint32 // cached os.Getuid()
	gid     uint32 // cached os.Getgid()
}

// NewBillyAdapter creates a Billy adapter for a namespace
func NewBillyAdapter(guard NamespaceGuard) *BillyAdapter {
	return &BillyAdapter{
		guard:   guard,
		handles: vfs.NewHandleManager(),
		uid:     uint32(os.Getuid()),
		gid:     uint32(os.Getgid()),
	}
}

// OpenHandles returns the number of files currently open.
func (b *BillyAdapter) OpenHandles() int {
	return b.handles.Count()
}

// errno converts a namespace error into a syscall.Errno so that callers can
// test it with os.IsNotExist and friends.
func errno(err error) error {
	if err == nil {
		return nil
	}
	return vfs.Errno(err)
}

func (b *BillyAdapter) Create(filename string) (billy.File, error) {
	return b.OpenFile(filename, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
}

func (b *BillyAdapter) Open(filename string) (billy.File, error) {
	return b.OpenFile(filename, os.O_RDONLY, 0)
}

func (b *BillyAdapter) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	p := common.NormalizePath(filename)

	var plain []byte
	err := b.guard.With(func(ns *vfs.Namespace) error {
		node, ok := ns.Lookup(p)
		switch {
		case ok && flag&os.O_CREATE != 0 && flag&os.O_EXCL != 0:
			return common.ErrExists
		case ok && node.IsDir():
			return common.ErrNotFile
		case ok:
			plain = codec.Obfuscate(node.Content)
			return nil
		case flag&os.O_CREATE == 0:
			return common.ErrNotFound
		}
		if !ns.Exists(common.ParentPath(p)) {
			return common.ErrNotFound
		}
		if err := ns.CanCreate(p); err != nil {
			return err
		}
		ns.CreateFile(p, nil, time.Now())
		return nil
	})
	if err != nil {
		log.Debugf("[Billy] open %s: %v", p, err)
		return nil, errno(err)
	}

	h := b.handles.Allocate(p, flag, plain)
	if flag&os.O_TRUNC != 0 && len(plain) > 0 {
		_ = b.handles.Truncate(h, 0)
	}
	return &BillyFile{adapter: b, handle: h, name: filename, flags: flag}, nil
}

func (b *BillyAdapter) Stat(filename string) (os.FileInfo, error) {
	p := common.NormalizePath(filename)
	var node vfs.Node
	err := b.guard.With(func(ns *vfs.Namespace) error {
		var ok bool
		if node, ok = ns.Lookup(p); !ok {
			return common.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, errno(err)
	}
	return b.fileInfo(path.Base(p), node), nil
}

// Lstat is Stat: the namespace has no symlinks.
func (b *BillyAdapter) Lstat(filename string) (os.FileInfo, error) {
	return b.Stat(filename)
}

// Rename moves oldpath to newpath. An existing file at newpath is replaced
// when oldpath is also a file, as rename(2) does.
func (b *BillyAdapter) Rename(oldpath, newpath string) error {
	src := common.NormalizePath(oldpath)
	dst := common.NormalizePath(newpath)
	return errno(b.guard.With(func(ns *vfs.Namespace) error {
		if src == dst && ns.Exists(src) {
			return nil
		}
		if ns.IsFile(src) && ns.IsFile(dst) {
			if err := ns.Remove(dst); err != nil {
				return err
			}
		}
		return ns.Move(src, dst)
	}))
}

func (b *BillyAdapter) Remove(filename string) error {
	p := common.NormalizePath(filename)
	return errno(b.guard.With(func(ns *vfs.Namespace) error {
		return ns.Remove(p)
	}))
}

func (b *BillyAdapter) Join(elem ...string) string {
	return path.Join(elem...)
}

func (b *BillyAdapter) TempFile(dir, prefix string) (billy.File, error) {
	return nil, os.ErrInvalid
}

func (b *BillyAdapter) ReadDir(dirname string) ([]os.FileInfo, error) {
	dir := common.NormalizePath(dirname)
	var result []os.FileInfo
	err := b.guard.With(func(ns *vfs.Namespace) error {
		if !ns.Exists(dir) {
			return common.ErrNotFound
		}
		if !ns.IsDirectory(dir) {
			return common.ErrNotDir
		}
		for _, name := range ns.ListChildren(dir) {
			name = strings.TrimSuffix(name, "/")
			node, ok := ns.Lookup(common.JoinPath(dir, name))
			if !ok {
				continue
			}
			result = append(result, b.fileInfo(name, node))
		}
		return nil
	})
	if err != nil {
		return nil, errno(err)
	}
	return result, nil
}

// MkdirAll creates filename and any missing parents.
func (b *BillyAdapter) MkdirAll(filename string, perm os.FileMode) error {
	p := common.NormalizePath(filename)
	return errno(b.guard.With(func(ns *vfs.Namespace) error {
		cur := common.Root
		for _, seg := range common.SplitPath(p) {
			cur = common.JoinPath(cur, seg)
			switch {
			case ns.IsDirectory(cur):
				continue
			case ns.Exists(cur):
				return common.ErrNotDir
			}
			ns.CreateDirectory(cur, time.Now())
		}
		return nil
	}))
}

func (b *BillyAdapter) Symlink(target, link string) error {
	return syscall.ENOTSUP
}

func (b *BillyAdapter) Readlink(link string) (string, error) {
	return "", vfs.EINVAL
}

func (b *BillyAdapter) Chroot(path string) (billy.Filesystem, error) {
	return nil, os.ErrInvalid
}

func (b *BillyAdapter) Root() string {
	return "/"
}

// billy.Change interface. The namespace has no modes, owners or times to
// change, so these succeed without effect.
func (b *BillyAdapter) Chmod(name string, mode os.FileMode) error         { return nil }
func (b *BillyAdapter) Lchown(name string, uid, gid int) error            { return nil }
func (b *BillyAdapter) Chown(name string, uid, gid int) error             { return nil }
func (b *BillyAdapter) Chtimes(name string, atime, mtime time.Time) error { return nil }

func (b *BillyAdapter) Capabilities() billy.Capability {
	return billy.WriteCapability | billy.ReadCapability |
		billy.ReadAndWriteCapability | billy.SeekCapability | billy.TruncateCapability
}

func (b *BillyAdapter) fileInfo(name string, node vfs.Node) *BillyFileInfo {
	if name == "/" || name == "." {
		name = "/"
	}
	return &BillyFileInfo{
		name:    name,
		id:      node.ID,
		isDir:   node.IsDir(),
		size:    node.Size(),
		modTime: node.CreatedAt,
		uid:     b.uid,
		gid:     b.gid,
	}
}

// flush writes a released handle back to the namespace.
func (b *BillyAdapter) flush(h vfs.HandleID) error {
	p, content, dirty, ok := b.handles.Release(h)
	if !ok {
		return os.ErrClosed
	}
	if !dirty {
		return nil
	}
	err := b.guard.With(func(ns *vfs.Namespace) error {
		return ns.WriteContent(p, codec.Obfuscate(content))
	})
	if err != nil {
		// The file was removed or replaced while open
		log.Warnf("[Billy] dropped write-back to %s: %v", p, err)
		return errno(err)
	}
	log.Tracef("[Billy] flushed %s (%d bytes)", p, len(content))
	return nil
}

// BillyFile is an open namespace file.
type BillyFile struct {
	adapter *BillyAdapter
	handle  vfs.HandleID
	name    string
	flags   int
	offset  int64
}

func (f *BillyFile) Name() string {
	return f.name
}

func (f *BillyFile) Write(p []byte) (n int, err error) {
	if f.flags&(os.O_WRONLY|os.O_RDWR) == 0 {
		return 0, vfs.EBADF
	}
	if f.flags&os.O_APPEND != 0 {
		size, _ := f.adapter.handles.Size(f.handle)
		f.offset = size
	}
	n, err = f.adapter.handles.WriteAt(f.handle, p, f.offset)
	f.offset += int64(n)
	return
}

func (f *BillyFile) Read(p []byte) (n int, err error) {
	n, err = f.adapter.handles.ReadAt(f.handle, p, f.offset)
	f.offset += int64(n)
	return
}

func (f *BillyFile) ReadAt(p []byte, off int64) (n int, err error) {
	return f.adapter.handles.ReadAt(f.handle, p, off)
}

func (f *BillyFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		f.offset = offset
	case io.SeekCurrent:
		f.offset += offset
	case io.SeekEnd:
		size, ok := f.adapter.handles.Size(f.handle)
		if !ok {
			return 0, os.ErrClosed
		}
		f.offset = size + offset
	}
	if f.offset < 0 {
		f.offset = 0
		return 0, vfs.EINVAL
	}
	return f.offset, nil
}

func (f *BillyFile) Close() error {
	return f.adapter.flush(f.handle)
}

func (f *BillyFile) Lock() error {
	return nil
}

func (f *BillyFile) Unlock() error {
	return nil
}

func (f *BillyFile) Truncate(size int64) error {
	return f.adapter.handles.Truncate(f.handle, size)
}

// BillyFileInfo is a snapshot of a namespace node.
type BillyFileInfo struct {
	name    string
	id      uint64
	isDir   bool
	size    int64
	modTime time.Time
	uid     uint32
	gid     uint32
}

func (fi *BillyFileInfo) Name() string {
	return fi.name
}

func (fi *BillyFileInfo) Size() int64 {
	return fi.size
}

func (fi *BillyFileInfo) Mode() os.FileMode {
	if fi.isDir {
		return os.ModeDir | 0755
	}
	return 0644
}

func (fi *BillyFileInfo) ModTime() time.Time {
	return fi.modTime
}

func (fi *BillyFileInfo) IsDir() bool {
	return fi.isDir
}

func (fi *BillyFileInfo) Sys() interface{} {
	// go-nfs only recognizes file.FileInfo or *file.FileInfo here
	return &nfsfile.FileInfo{
		Nlink:  1,
		UID:    fi.uid,
		GID:    fi.gid,
		Fileid: fi.id,
	}
}

var (
	_ billy.Filesystem = (*BillyAdapter)(nil)
	_ billy.Change     = (*BillyAdapter)(nil)
	_ billy.File       = (*BillyFile)(nil)
)
