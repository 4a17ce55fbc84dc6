package daemon

import "net"

// NetFSServer abstracts the network filesystem server that exports a
// session namespace.
type NetFSServer interface {
	// Listen binds the server to addr (e.g. "127.0.0.1:0") and returns the
	// bound address.
	Listen(addr string) (net.Addr, error)

	// Serve accepts connections until Shutdown. Listen must be called first.
	Serve() error

	// Shutdown stops the server
	Shutdown()
}

// NetFSType returns the type of network filesystem in use
func NetFSType() string {
	return netFSTypeName
}

const netFSTypeName = "nfs"
