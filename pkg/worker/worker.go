// Package worker implements the single-connection RSP request/response
// loop: it owns a Cortex-M4 debug engine and a client connection, and
// cooperatively multiplexes inbound packets with a background halt-poll so
// that a `continue` command never blocks the packet path.
//
// The accept-loop-per-connection shape and its line-by-line error logging
// are grounded in the TCP relay server's Bridge.Listen/handleConnection;
// the packet-channel-plus-ticker multiplexing is grounded in the RSP
// command loop of the aykevl-emculator reference (gdbHandle/gdbRecvPackets),
// here split into its own goroutine so a background poll can interleave.
package worker

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/daschewie/cm4gdbridge/pkg/armdebug"
	"github.com/daschewie/cm4gdbridge/pkg/gdbpacket"
	"github.com/daschewie/cm4gdbridge/pkg/rsp"
)

// stopNotification is the unsolicited reply emitted when a target halts
// while the worker awaits it, per the hardware-breakpoint stop reply RSP
// expects.
const stopNotification = "T05hwbreak:;"

// Worker drives one RSP session end to end: reading packets from conn,
// dispatching them against engine, and writing replies back to conn.
type Worker struct {
	conn         io.ReadWriter
	engine       *armdebug.Engine
	pollInterval time.Duration

	// OnEvent, when set, is called with human-readable progress notes
	// (dropped invalid packets, client detach) the way the CLI commands
	// report progress via printInfo/printError; nil is a valid no-op sink.
	OnEvent func(string)
}

// New creates a worker over conn and engine. pollInterval governs how often
// the worker checks for an asynchronous halt while awaiting one.
func New(conn io.ReadWriter, engine *armdebug.Engine, pollInterval time.Duration) *Worker {
	return &Worker{conn: conn, engine: engine, pollInterval: pollInterval}
}

func (w *Worker) emit(format string, args ...interface{}) {
	if w.OnEvent != nil {
		w.OnEvent(fmt.Sprintf(format, args...))
	}
}

// Run executes the session loop until the client disconnects, issues `D`,
// or a transport or debug-engine error occurs. It returns nil on a clean
// disconnect or `D`, and an error otherwise.
func (w *Worker) Run() error {
	reader := bufio.NewReader(w.conn)

	packets := make(chan gdbpacket.Packet)
	readErr := make(chan error, 1)
	go func() {
		for {
			pkt, err := gdbpacket.Read(reader)
			if err != nil {
				if err == io.EOF {
					readErr <- nil
				} else {
					readErr <- err
				}
				close(packets)
				return
			}
			packets <- pkt
		}
	}()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	awaitsHalt := false
	for {
		select {
		case pkt, ok := <-packets:
			if !ok {
				return <-readErr
			}
			if !pkt.Valid {
				w.emit("dropped packet with invalid framing")
				continue
			}

			replyText, terminate, newAwaits := rsp.Dispatch(pkt.Payload, w.engine, awaitsHalt)
			awaitsHalt = newAwaits

			if replyText != nil {
				if _, err := w.conn.Write(gdbpacket.Encode(*replyText)); err != nil {
					return fmt.Errorf("writing reply: %w", err)
				}
			}
			if terminate {
				if replyText == nil {
					// The dispatcher ends the session without a reply only
					// when a debug-engine operation failed.
					return fmt.Errorf("debug engine error while handling %q", pkt.Payload)
				}
				w.emit("session terminated by client")
				return nil
			}

		case <-ticker.C:
			if !awaitsHalt {
				continue
			}
			halted, err := w.engine.CoreHalted()
			if err != nil {
				return fmt.Errorf("polling core status: %w", err)
			}
			if halted {
				awaitsHalt = false
				if _, err := w.conn.Write(gdbpacket.Encode(stopNotification)); err != nil {
					return fmt.Errorf("writing stop notification: %w", err)
				}
			}
		}
	}
}
