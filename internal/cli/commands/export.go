package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vshell/internal/daemon"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Serve a session's namespace over NFS",
	Long: `Serves a namespace over NFSv3 so it can be mounted like a real directory.

Without --session a fresh local session is served until interrupted; add
--repl to use its shell at the same time. With --session the daemon serves
one of its sessions in the background; --stop ends that export.

Examples:
  vshell export --repl
  vshell export --session 5f0c... --addr 127.0.0.1:12049
  vshell export --session 5f0c... --stop`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var exportSession string
var exportAddr string
var exportStop bool
var exportRepl bool
var exportMountPoint string

func init() {
	exportCmd.Flags().StringVarP(&exportSession, "session", "s", "", "Daemon session to export")
	exportCmd.Flags().StringVar(&exportAddr, "addr", "", "Listen address (default from settings)")
	exportCmd.Flags().BoolVar(&exportStop, "stop", false, "Stop exporting the daemon session")
	exportCmd.Flags().BoolVar(&exportRepl, "repl", false, "Run a shell on the exported local session")
	exportCmd.Flags().StringVar(&exportMountPoint, "mount-point", "/mnt/vshell", "Mount point shown in the mount hint")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportSession != "" {
		return runDaemonExport(cmd)
	}
	if exportStop {
		return fmt.Errorf("--stop requires --session")
	}
	return runLocalExport(cmd)
}

func runDaemonExport(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	ctx := context.Background()

	if exportStop {
		resp, err := daemonRequest(ctx, func(c *daemon.Client) (*daemon.Response, error) {
			return c.Unexport(exportSession)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, resp.Message)
		return nil
	}

	resp, err := daemonRequest(ctx, func(c *daemon.Client) (*daemon.Response, error) {
		return c.Export(exportSession, exportAddr)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported session %s at %s\n", exportSession, resp.Addr)
	fmt.Fprintf(out, "Mount with:\n  %s\n", mountHintFor(resp.Addr))
	return nil
}

func mountHintFor(addr string) string {
	tcp, err := resolveTCPAddr(addr)
	if err != nil {
		return fmt.Sprintf("(address %s: %v)", addr, err)
	}
	return daemon.MountHint(tcp, exportMountPoint)
}

func runLocalExport(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	settings, err := daemon.LoadGlobalSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	addr := exportAddr
	if addr == "" {
		addr = settings.ExportAddr
	}

	s, cleanup, err := openLocalSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	server := daemon.NewNFSServer(daemon.NewBillyAdapter(s))
	bound, err := server.Listen(addr)
	if err != nil {
		return err
	}
	defer server.Shutdown()

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve() }()

	fmt.Fprintf(out, "Serving session %s at %s\n", s.ID, bound)
	fmt.Fprintf(out, "Mount with:\n  %s\n", daemon.MountHint(bound, exportMountPoint))
	log.Infof("[Export] serving %s at %s", s.ID, bound)

	if exportRepl {
		cwd, _ := s.Prompt()
		t := newTerminal(out, settings)
		loopErr := make(chan error, 1)
		go func() {
			loopErr <- t.Loop(context.Background(), &localRunner{s: s}, newStdinReader(cmd.InOrStdin()), cwd)
		}()
		select {
		case err := <-loopErr:
			return err
		case err := <-serveErr:
			return err
		}
	}

	fmt.Fprintln(out, "Press Ctrl+C to stop")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		fmt.Fprintln(out, "Stopping export")
		return nil
	case err := <-serveErr:
		return err
	}
}
