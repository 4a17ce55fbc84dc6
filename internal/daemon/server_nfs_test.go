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
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNFSServerLifecycle(t *testing.T) {
	fs, _ := newTestAdapter(t)

	server := NewNFSServer(fs)
	addr, err := server.Listen("127.0.0.1:0")
	require.NoError(t, err)

	tcp, ok := addr.(*net.TCPAddr)
	require.True(t, ok)
	assert.NotZero(t, tcp.Port)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve() }()

	require.NoError(t, waitForAddr(addr, 2*time.Second))

	server.Shutdown()
	select {
	case err := <-errCh:
		assert.NoError(t, err, "Serve should return nil after Shutdown")
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}

	// Shutdown is idempotent
	server.Shutdown()
}

func TestNFSServerServeBeforeListen(t *testing.T) {
	fs, _ := newTestAdapter(t)
	server := NewNFSServer(fs)
	assert.Error(t, server.Serve())
}

func TestNFSServerListenError(t *testing.T) {
	fs, _ := newTestAdapter(t)
	server := NewNFSServer(fs)
	_, err := server.Listen("not-an-address")
	assert.Error(t, err)
}

func TestMountHint(t *testing.T) {
	t.Parallel()

	addr := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12049}
	assert.Equal(t,
		"mount -t nfs -o port=12049,mountport=12049,vers=3,tcp,nolock 127.0.0.1:/ /mnt/vshell",
		MountHint(addr, "/mnt/vshell"))

	any := &net.TCPAddr{IP: net.IPv4zero, Port: 2049}
	assert.Contains(t, MountHint(any, "/mnt"), " 127.0.0.1:/ /mnt")
}

func TestNetFSType(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "nfs", NetFSType())
}
