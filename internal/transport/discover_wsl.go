// discover_wsl.go provides WSL-specific Discord IPC endpoint discovery.
//
// When running inside WSL, Discord runs on the Windows host side. Its IPC
// endpoint is a Windows named pipe, which is not directly reachable from
// WSL2 as a Unix socket. Users commonly bridge it with:
//
//	socat UNIX-LISTEN:/tmp/discord-ipc-0,fork EXEC:"npiperelay.exe -ep -s //./pipe/discord-ipc-0"
//
// This file adds the Unix socket paths such a relay would create so
// Discover finds them automatically when present.

//go:build linux

package transport

import (
	"fmt"
	"os"
	"strings"
)

// isWSL reports whether the current process is running inside WSL.
func isWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), "microsoft")
}

// wslSocketPaths returns additional socket paths to try under WSL, where a
// socat/npiperelay bridge would typically create the Unix socket.
func wslSocketPaths() []string {
	if !isWSL() {
		return nil
	}

	var paths []string
	for i := range MaxIPCSlots {
		paths = append(paths, fmt.Sprintf("/tmp/discord-ipc-%d", i))
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		for i := range MaxIPCSlots {
			paths = append(paths, fmt.Sprintf("%s/discord-ipc-%d", dir, i))
		}
	}
	return paths
}
