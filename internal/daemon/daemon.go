package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"

	"vshell/internal/session"
	"vshell/internal/storage"
	"vshell/internal/util"
)

func init() {
	// Default logging to discard until explicitly enabled via --logging flag
	log.SetOutput(io.Discard)
}

// maxLogSize is the size past which the log file is truncated on start.
const maxLogSize = 50 * 1024 * 1024

type export struct {
	server NetFSServer
	addr   net.Addr
}

// Daemon hosts shell sessions and serves them over IPC
type Daemon struct {
	ipcServer *Server
	logFile   *os.File
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	lock      *flock.Flock

	// LogLevel sets the logging level: trace, debug, info, warn, off (default: settings)
	LogLevel string

	settings *GlobalSettings
	manager  *session.Manager
	journal  *storage.Journal

	mu      sync.Mutex
	exports map[string]*export // session id -> running export
}

// New creates a new daemon instance
func New() *Daemon {
	return &Daemon{
		stopCh:  make(chan struct{}),
		exports: make(map[string]*export),
	}
}

// configure installs settings and creates the session manager. journal may
// be nil when journaling is disabled.
func (d *Daemon) configure(settings *GlobalSettings, journal *storage.Journal) {
	d.settings = settings
	d.journal = journal

	var rec session.Recorder
	if journal != nil {
		rec = journal
	}
	d.manager = session.NewManager(settings.SessionOptions(rec))
}

// Run starts the daemon and blocks until stopped
func (d *Daemon) Run() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	settings, err := LoadGlobalSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	storage.SetConfigBusyTimeouts(settings.DaemonBusyTimeout, settings.CLIBusyTimeout)

	// Acquire exclusive lock
	d.lock = flock.New(LockPath())
	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another daemon instance is already running")
	}
	defer d.lock.Unlock()

	if err := d.setupLogging(settings); err != nil {
		return err
	}
	if d.logFile != nil {
		defer d.logFile.Close()
	}

	if result := CleanupStale(); result.CleanedPidFile || result.CleanedSocket || len(result.Errors) > 0 {
		log.Infof("[Daemon] startup cleanup: %s", FormatCleanupResult(result))
	}

	if err := d.writePidFile(); err != nil {
		return err
	}
	defer d.removePidFile()

	log.Infof("[Daemon] started (PID %d)", os.Getpid())

	var journal *storage.Journal
	if settings.Journal {
		journal, err = storage.OpenJournalWithContext(JournalPath(), storage.DBContextDaemon)
		if err != nil {
			// Sessions still work without history persistence
			log.Warnf("[Daemon] journal disabled: %v", err)
			journal = nil
		} else {
			defer journal.Close()
		}
	}
	d.configure(settings, journal)

	log.Infof("[Daemon] starting IPC server at %s", SocketPath())
	d.ipcServer = NewServer(d.handleRequest)
	if err := d.ipcServer.Start(); err != nil {
		log.Errorf("[Daemon] IPC server failed to start: %v", err)
		return err
	}
	defer d.ipcServer.Stop()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Infof("[Daemon] received signal %v, shutting down", sig)
	case <-d.stopCh:
		log.Infof("[Daemon] stop requested, shutting down")
	}

	d.shutdownExports()

	// Wait for export goroutines
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Debugf("[Daemon] all export goroutines finished")
	case <-time.After(500 * time.Millisecond):
		log.Warnf("[Daemon] timeout waiting for export goroutines")
	}

	log.Infof("[Daemon] stopped")
	return nil
}

// setupLogging redirects logrus to the log file. The --logging flag wins
// over the settings file.
func (d *Daemon) setupLogging(settings *GlobalSettings) error {
	level := d.LogLevel
	if level == "" {
		level = settings.NormalizedLogLevel()
	}
	if level == "" || level == "off" || level == "none" {
		log.SetOutput(io.Discard)
		return nil
	}

	if err := d.truncateLogFile(maxLogSize); err != nil {
		// Non-fatal, just log to stderr
		fmt.Fprintf(os.Stderr, "Warning: failed to truncate log file: %v\n", err)
	}

	logFile, err := os.OpenFile(LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	d.logFile = logFile
	log.SetOutput(logFile)
	ApplyLogLevel(level)
	return nil
}

// handleRequest processes an IPC request
func (d *Daemon) handleRequest(req *Request) *Response {
	switch req.Type {
	case RequestStatus:
		return d.handleStatus()
	case RequestStop:
		return d.handleStop()
	case RequestOpenSession:
		return d.handleOpenSession()
	case RequestCloseSession:
		return d.handleCloseSession(req)
	case RequestListSessions:
		return d.handleListSessions()
	case RequestExec:
		return d.handleExec(req)
	case RequestExport:
		return d.handleExport(req)
	case RequestUnexport:
		return d.handleUnexport(req)
	default:
		return &Response{Success: false, Error: "unknown request type"}
	}
}

func (d *Daemon) handleStatus() *Response {
	return &Response{
		Success:  true,
		PID:      os.Getpid(),
		Sessions: d.manager.List(),
		Exports:  d.listExports(),
	}
}

func (d *Daemon) handleStop() *Response {
	d.stopOnce.Do(func() { close(d.stopCh) })
	return &Response{Success: true, Message: "Daemon stopping"}
}

func (d *Daemon) handleOpenSession() *Response {
	s, err := d.manager.Open()
	if err != nil {
		return &Response{Success: false, Error: err.Error()}
	}
	cwd, _ := s.Prompt()
	return &Response{
		Success:   true,
		SessionID: s.ID.String(),
		Cwd:       cwd,
	}
}

func (d *Daemon) handleCloseSession(req *Request) *Response {
	d.stopExport(req.SessionID)
	if err := d.manager.Close(req.SessionID); err != nil {
		return &Response{Success: false, Error: err.Error()}
	}
	return &Response{Success: true, Message: fmt.Sprintf("Closed session %s", req.SessionID)}
}

func (d *Daemon) handleListSessions() *Response {
	return &Response{Success: true, Sessions: d.manager.List()}
}

func (d *Daemon) handleExec(req *Request) *Response {
	s, err := d.manager.Get(req.SessionID)
	if err != nil {
		return &Response{Success: false, Error: err.Error()}
	}

	output := s.Exec(context.Background(), req.Input)
	cwd, password := s.Prompt()
	return &Response{
		Success:   true,
		SessionID: req.SessionID,
		Output:    output,
		Cwd:       cwd,
		Password:  password,
	}
}

func (d *Daemon) handleExport(req *Request) *Response {
	s, err := d.manager.Get(req.SessionID)
	if err != nil {
		return &Response{Success: false, Error: err.Error()}
	}

	// Binding can take a while; hold only a reservation, not d.mu
	slot, err := d.reserveExport(req.SessionID)
	if err != nil {
		return &Response{Success: false, Error: err.Error()}
	}

	addr := req.Addr
	if addr == "" {
		addr = d.settings.ExportAddr
	}

	server := NewNFSServer(NewBillyAdapter(s))
	bound, err := server.Listen(addr)
	if err != nil {
		d.releaseExport(req.SessionID, slot)
		return &Response{Success: false, Error: err.Error()}
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := server.Serve(); err != nil {
			log.Errorf("[Daemon] export %s stopped: %v", req.SessionID, err)
		}
	}()

	if err := waitForAddr(bound, 2*time.Second); err != nil {
		server.Shutdown()
		d.releaseExport(req.SessionID, slot)
		return &Response{Success: false, Error: err.Error()}
	}

	if !d.commitExport(req.SessionID, slot, server, bound) {
		server.Shutdown()
		return &Response{Success: false, Error: fmt.Sprintf("export of session %s was cancelled", req.SessionID)}
	}

	log.Infof("[Daemon] exported session %s at %s", req.SessionID, bound)
	return &Response{
		Success:   true,
		SessionID: req.SessionID,
		Addr:      bound.String(),
		Message:   MountHint(bound, "<mountpoint>"),
	}
}

// reserveExport claims the export slot of a session. A reserved slot has no
// server until commitExport fills it.
func (d *Daemon) reserveExport(id string) (*export, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.exports[id]; ok {
		if e.server == nil {
			return nil, fmt.Errorf("session %s is already being exported", id)
		}
		return nil, fmt.Errorf("session %s already exported at %s", id, e.addr)
	}
	slot := &export{}
	d.exports[id] = slot
	return slot, nil
}

// commitExport fills a reserved slot. It reports false if the reservation
// was cancelled in the meantime.
func (d *Daemon) commitExport(id string, slot *export, server NetFSServer, addr net.Addr) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.exports[id] != slot {
		return false
	}
	slot.server = server
	slot.addr = addr
	return true
}

func (d *Daemon) releaseExport(id string, slot *export) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.exports[id] == slot {
		delete(d.exports, id)
	}
}

func (d *Daemon) handleUnexport(req *Request) *Response {
	if !d.stopExport(req.SessionID) {
		return &Response{Success: false, Error: fmt.Sprintf("session %s is not exported", req.SessionID)}
	}
	return &Response{Success: true, Message: fmt.Sprintf("Stopped export of %s", req.SessionID)}
}

// stopExport shuts down the export of a session, reporting whether one ran.
// A pending reservation is cancelled; its export shuts itself down.
func (d *Daemon) stopExport(id string) bool {
	d.mu.Lock()
	e, ok := d.exports[id]
	delete(d.exports, id)
	var server NetFSServer
	if ok {
		server = e.server
	}
	d.mu.Unlock()

	if !ok {
		return false
	}
	if server != nil {
		server.Shutdown()
	}
	log.Infof("[Daemon] unexported session %s", id)
	return true
}

func (d *Daemon) shutdownExports() {
	d.mu.Lock()
	ids := make([]string, 0, len(d.exports))
	for id := range d.exports {
		ids = append(ids, id)
	}
	d.mu.Unlock()

	for _, id := range ids {
		d.stopExport(id)
	}
}

func (d *Daemon) listExports() []ExportStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	exports := make([]ExportStatus, 0, len(d.exports))
	for id, e := range d.exports {
		if e.server == nil {
			continue
		}
		exports = append(exports, ExportStatus{
			SessionID: id,
			Addr:      e.addr.String(),
			Type:      NetFSType(),
		})
	}
	sort.Slice(exports, func(i, j int) bool {
		return exports[i].SessionID < exports[j].SessionID
	})
	return exports
}

func (d *Daemon) writePidFile() error {
	data := []byte(strconv.Itoa(os.Getpid()))
	return os.WriteFile(PidPath(), data, 0600)
}

func (d *Daemon) removePidFile() {
	os.Remove(PidPath())
}

// GetPID reads the daemon PID from file
func GetPID() (int, error) {
	data, err := os.ReadFile(PidPath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data))
}

// waitForAddr waits until addr is accepting TCP connections
func waitForAddr(addr net.Addr, timeout time.Duration) error {
	if util.WaitWithDeadline(time.Now().Add(timeout), 50*time.Millisecond, func() bool {
		conn, err := net.DialTimeout("tcp", addr.String(), 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return true
		}
		return false
	}) {
		return nil
	}
	return errors.New("timeout waiting for " + addr.String())
}

// truncateLogFile truncates the log file if it exceeds maxSize bytes.
// It keeps the last half of the file content to preserve recent logs.
func (d *Daemon) truncateLogFile(maxSize int64) error {
	logPath := LogPath()

	info, err := os.Stat(logPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if info.Size() <= maxSize {
		return nil
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		return err
	}

	keepSize := len(data) / 2
	startIdx := len(data) - keepSize

	// Find the next newline to avoid cutting a line in the middle
	for i := startIdx; i < len(data); i++ {
		if data[i] == '\n' {
			startIdx = i + 1
			break
		}
	}

	truncatedData := data[startIdx:]
	header := []byte(fmt.Sprintf("--- Log truncated at %s (kept last %d bytes) ---\n",
		time.Now().Format(time.RFC3339), len(truncatedData)))

	return os.WriteFile(logPath, append(header, truncatedData...), 0600)
}
