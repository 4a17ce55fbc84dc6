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
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"

	"vshell/internal/session"
)

// Request types
const (
	RequestStatus       = "status"
	RequestStop         = "stop"
	RequestOpenSession  = "open_session"
	RequestCloseSession = "close_session"
	RequestListSessions = "list_sessions"
	RequestExec         = "exec"
	RequestExport       = "export"   // Serve a session namespace over NFS
	RequestUnexport     = "unexport" // Stop serving a session namespace
)

// Request represents an IPC request
type Request struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Input     string `json:"input,omitempty"` // Exec: raw command line
	Addr      string `json:"addr,omitempty"`  // Export: listen address, settings default when empty
}

// ExportStatus describes a session namespace served over the network
type ExportStatus struct {
	SessionID string `json:"session_id"`
	Addr      string `json:"addr"`
	Type      string `json:"type"`
}

// Response represents an IPC response
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	PID     int    `json:"pid,omitempty"`

	SessionID string `json:"session_id,omitempty"`
	Output    string `json:"output,omitempty"`   // Exec: rendered command output
	Cwd       string `json:"cwd,omitempty"`      // Exec/OpenSession: working directory for the prompt
	Password  bool   `json:"password,omitempty"` // Exec: the next line is a sudo password

	Sessions []session.Info `json:"sessions,omitempty"`
	Exports  []ExportStatus `json:"exports,omitempty"`
	Addr     string         `json:"addr,omitempty"` // Export: bound address
}

// Server handles IPC connections
type Server struct {
	listener net.Listener
	handler  func(*Request) *Response
}

// NewServer creates a new IPC server
func NewServer(handler func(*Request) *Response) *Server {
	return &Server{handler: handler}
}

// Start starts the IPC server
func (s *Server) Start() error {
	// Remove existing socket
	os.Remove(SocketPath())

	listener, err := net.Listen("unix", SocketPath())
	if err != nil {
		return fmt.Errorf("failed to create socket: %w", err)
	}
	s.listener = listener

	os.Chmod(SocketPath(), 0600)

	go s.accept()

	return nil
}

// Stop stops the IPC server
func (s *Server) Stop() {
	if s.listener != nil {
		s.listener.Close()
		os.Remove(SocketPath())
	}
}

func (s *Server) accept() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return // Server stopped
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	var req Request
	if err := decoder.Decode(&req); err != nil {
		return
	}

	resp := s.handler(&req)

	encoder := json.NewEncoder(conn)
	encoder.Encode(resp)
}

// Client is an IPC client
type Client struct {
	conn net.Conn
}

// Connect connects to the daemon
func Connect() (*Client, error) {
	conn, err := net.Dial("unix", SocketPath())
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send sends a request and returns the response.
// The daemon answers one request per connection.
func (c *Client) Send(req *Request) (*Response, error) {
	encoder := json.NewEncoder(c.conn)
	if err := encoder.Encode(req); err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(c.conn)
	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("daemon closed connection")
		}
		return nil, err
	}

	return &resp, nil
}

// Status requests daemon status
func (c *Client) Status() (*Response, error) {
	return c.Send(&Request{Type: RequestStatus})
}

// Stop requests daemon shutdown
func (c *Client) Stop() (*Response, error) {
	return c.Send(&Request{Type: RequestStop})
}

func (c *Client) OpenSession() (*Response, error) {
	return c.Send(&Request{Type: RequestOpenSession})
}

func (c *Client) CloseSession(id string) (*Response, error) {
	return c.Send(&Request{Type: RequestCloseSession, SessionID: id})
}

func (c *Client) ListSessions() ([]session.Info, error) {
	resp, err := c.Send(&Request{Type: RequestListSessions})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("list sessions failed: %s", resp.Error)
	}
	return resp.Sessions, nil
}

// Exec runs one command line in the given session
func (c *Client) Exec(id, input string) (*Response, error) {
	return c.Send(&Request{
		Type:      RequestExec,
		SessionID: id,
		Input:     input,
	})
}

func (c *Client) Export(id, addr string) (*Response, error) {
	return c.Send(&Request{
		Type:      RequestExport,
		SessionID: id,
		Addr:      addr,
	})
}

func (c *Client) Unexport(id string) (*Response, error) {
	return c.Send(&Request{Type: RequestUnexport, SessionID: id})
}

// IsDaemonRunning checks if the daemon is running
func IsDaemonRunning() bool {
	client, err := Connect()
	if err != nil {
		return false
	}
	client.Close()
	return true
}
