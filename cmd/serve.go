package cmd

import (
	"fmt"
	"net"
	"time"

	"github.com/daschewie/cm4gdbridge/pkg/armdebug"
	"github.com/daschewie/cm4gdbridge/pkg/connection"
	"github.com/daschewie/cm4gdbridge/pkg/memprobe"
	"github.com/daschewie/cm4gdbridge/pkg/probesession"
	"github.com/daschewie/cm4gdbridge/pkg/worker"
	"github.com/spf13/cobra"
)

var listenFlag string

// serveCmd starts the RSP server a GDB client connects to.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GDB remote-serial server",
	Long: `Start a TCP server speaking the GDB Remote Serial Protocol. GDB's
"target remote host:port" command connects here; each RSP command is
translated into ARM Cortex-M4 debug-register accesses against the probe.

Only one GDB session may be attached at a time: connections are served one
after another, so a later client waits until the current session ends, and
a probe lock is held for the lifetime of each connection, so another
process attaching to the same probe fails while the session is live.

Example:
  cm4gdbridge serve --listen 127.0.0.1:2159`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenFlag, "listen", "", "Address to listen on for GDB connections (host:port)")
}

func runServe() error {
	if err := validateConnectionFlags(); err != nil {
		return err
	}

	listenAddr := listenFlag
	if listenAddr == "" {
		listenAddr = cfg.ListenAddr
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
	}
	defer listener.Close()

	printInfo("Listening for GDB connections on %s -> probe %s\n", listenAddr, cfg.Port)

	for {
		conn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("accept failed: %w", err)
		}
		handleGdbConnection(conn)
	}
}

// handleGdbConnection serves exactly one GDB client to completion before
// returning, enforcing the bridge's single-session model: the accept loop
// does not take the next client until this one is done, and the probe lock
// is held for the connection's lifetime, so an attach from another process
// fails rather than interleaving with a live debug session.
func handleGdbConnection(conn net.Conn) {
	defer conn.Close()

	printInfo("GDB client connected from %s\n", conn.RemoteAddr())

	lock, err := probesession.Acquire(cfg.Port)
	if err != nil {
		printError("%v", err)
		return
	}
	defer lock.Release()

	probeConn := connection.NewConnection(cfg.Port)
	if err := probeConn.Open(cfg.Port); err != nil {
		printError("failed to open probe connection: %v", err)
		return
	}
	defer probeConn.Close()

	prober := memprobe.NewProber(probeConn)
	engine := armdebug.NewEngine(prober)

	pollInterval := time.Duration(cfg.PollIntervalMillis) * time.Millisecond
	w := worker.New(conn, engine, pollInterval)
	w.OnEvent = func(msg string) {
		printInfo("%s\n", msg)
	}

	if err := w.Run(); err != nil {
		printError("session ended: %v", err)
		return
	}
	printInfo("GDB client %s disconnected\n", conn.RemoteAddr())
}
