package transport

import (
	"bufio"
	"io"
	"log/slog"
	"os"

	"workspace-bridge/pkg/rpc"
)

// RunStdio starts the bridge over standard I/O. Requests are read from stdin
// one per line, responses are written to stdout one per line. Notifications
// produce no output line.
func RunStdio(dispatcher *rpc.Dispatcher) {
	slog.Info("Starting stdio transport listener")
	runStdio(os.Stdin, os.Stdout, dispatcher)
}

func runStdio(in io.Reader, out io.Writer, dispatcher *rpc.Dispatcher) {
	reader := bufio.NewReader(in)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				slog.Error("Error reading from stdin", "error", err)
			} else {
				slog.Info("EOF received, shutting down stdio listener")
			}
			return
		}

		respBytes := dispatcher.Dispatch(line)
		if respBytes == nil {
			continue
		}

		if _, err := out.Write(respBytes); err != nil {
			slog.Error("Failed to write response", "error", err)
			return
		}
		if _, err := out.Write([]byte("\n")); err != nil {
			slog.Error("Failed to write response delimiter", "error", err)
			return
		}
	}
}
