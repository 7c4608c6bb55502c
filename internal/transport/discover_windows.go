// discover_windows.go implements Discord IPC endpoint discovery for
// Windows via named pipes, using go-winio, with a bounded PIPE_BUSY
// retry: a pipe instance may be momentarily saturated by another
// client's handshake, and a single immediate failure there should not be
// treated the same as "no such pipe".

//go:build windows

package transport

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Microsoft/go-winio"
)

// pipeBusyRetries bounds how many times Discover retries a single pipe
// slot that reports ERROR_PIPE_BUSY before moving to the next slot.
const pipeBusyRetries = 5

// pipeBusyBackoff is the delay between PIPE_BUSY retries on one slot.
const pipeBusyBackoff = 100 * time.Millisecond

// Discover tries each Discord named pipe slot and returns the first
// connection that succeeds.
func Discover() (net.Conn, error) {
	for i := range MaxIPCSlots {
		path := fmt.Sprintf(`\\?\pipe\discord-ipc-%d`, i)

		for attempt := 0; attempt < pipeBusyRetries; attempt++ {
			conn, err := winio.DialPipe(path, nil)
			if err == nil {
				return conn, nil
			}
			if !isPipeBusy(err) {
				break
			}
			time.Sleep(pipeBusyBackoff)
		}
	}
	return nil, ErrEndpointNotFound
}

// isPipeBusy reports whether err indicates the pipe instance limit was
// momentarily reached (ERROR_PIPE_BUSY), as opposed to "no such pipe".
// go-winio surfaces the underlying Windows error text rather than a typed
// sentinel, so this matches on the message.
func isPipeBusy(err error) bool {
	return strings.Contains(err.Error(), "busy")
}
