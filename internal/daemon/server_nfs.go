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

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	billy "github.com/go-git/go-billy/v5"
	log "github.com/sirupsen/logrus"
	nfs "github.com/willscott/go-nfs"
	nfshelper "github.com/willscott/go-nfs/helpers"
)

// NFSServer wraps the go-nfs server
type NFSServer struct {
	mu       sync.Mutex
	listener net.Listener
	server   *nfs.Server
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewNFSServer creates a new NFS server for the given filesystem
func NewNFSServer(fs billy.Filesystem) *NFSServer {
	// Set go-nfs log level to match daemon's log level
	if log.IsLevelEnabled(log.TraceLevel) {
		nfs.Log.SetLevel(nfs.TraceLevel)
	} else if log.IsLevelEnabled(log.DebugLevel) {
		nfs.Log.SetLevel(nfs.DebugLevel)
	}
	handler := nfshelper.NewNullAuthHandler(fs)
	cacheHelper := nfshelper.NewCachingHandler(handler, 65536)

	ctx, cancel := context.WithCancel(context.Background())
	server := &nfs.Server{
		Handler: cacheHelper,
		Context: ctx,
	}

	return &NFSServer{
		server: server,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Listen binds the server to a TCP address
func (s *NFSServer) Listen(addr string) (net.Addr, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return listener.Addr(), nil
}

// Serve runs the NFS server until Shutdown. It returns nil after a clean
// shutdown.
func (s *NFSServer) Serve() error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return errors.New("nfs server: Serve called before Listen")
	}

	err := s.server.Serve(listener)
	select {
	case <-s.done:
		return nil
	default:
		return err
	}
}

// Shutdown stops the NFS server gracefully
func (s *NFSServer) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)

	// Close the listener first to stop accepting new connections
	if s.listener != nil {
		s.listener.Close()
	}

	// Settle time for in-flight NFS operations to complete after listener close.
	time.Sleep(100 * time.Millisecond)

	// Cancel context to signal handlers to stop
	if s.cancel != nil {
		s.cancel()
	}
}

// MountHint returns a mount command line for an export bound to addr.
func MountHint(addr net.Addr, mountPoint string) string {
	port := 0
	host := "127.0.0.1"
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
		if !tcp.IP.IsUnspecified() && tcp.IP != nil {
			host = tcp.IP.String()
		}
	}
	return fmt.Sprintf("mount -t nfs -o port=%d,mountport=%d,vers=3,tcp,nolock %s:/ %s",
		port, port, host, mountPoint)
}

var _ NetFSServer = (*NFSServer)(nil)
