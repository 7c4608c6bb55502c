// discover_unix.go implements Discord IPC endpoint discovery for Unix-like
// systems (Linux, macOS, FreeBSD). It probes XDG_RUNTIME_DIR, /tmp, Snap,
// and Flatpak socket paths, then dials the first one that accepts a
// connection.

//go:build !windows

package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// ///////////////////////////////////////////////
// Discover
// ///////////////////////////////////////////////

// Discover tries each known IPC socket path and returns the first
// connection that succeeds. Candidates are skipped if the socket on
// disk isn't owned by the current user: several probe directories
// (/tmp, TMPDIR) are world-writable, so another local user could plant
// a lookalike socket there to intercept commands or OAuth2 tokens sent
// over what looks like Discord's own IPC channel.
func Discover() (net.Conn, error) {
	for _, path := range candidatePaths() {
		if !ownedByCurrentUser(path) {
			continue
		}
		conn, err := net.Dial("unix", path)
		if err == nil {
			return conn, nil
		}
	}

	if isWSL() {
		return nil, fmt.Errorf("%w: running under WSL, a relay (socat + npiperelay.exe) may be required", ErrEndpointNotFound)
	}
	return nil, ErrEndpointNotFound
}

// candidatePaths enumerates every Unix socket path dgrpc will attempt, in
// probe order.
func candidatePaths() []string {
	var paths []string

	// XDG_RUNTIME_DIR is the preferred runtime directory on most Linux
	// systems. Per spec the correct spelling is XDG_RUNTIME_DIR; an
	// earlier prototype probed the misspelled XGD_RUNTIME_DIR and found
	// nothing on a conforming system.
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		paths = append(paths, slotPaths(dir+"/%s-%d")...)
	}

	// TMPDIR / TMP / TEMP / /tmp fallbacks, checked in that order, for
	// systems without XDG_RUNTIME_DIR set.
	for _, envVar := range []string{"TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(envVar); dir != "" {
			paths = append(paths, slotPaths(dir+"/%s-%d")...)
		}
	}
	paths = append(paths, slotPaths("/tmp/%s-%d")...)

	uid := strconv.Itoa(os.Getuid())

	// Snap-packaged Discord uses a distinct socket directory.
	for _, sd := range snapDirs {
		for i := range MaxIPCSlots {
			paths = append(paths, fmt.Sprintf("/run/user/%s/%s/discord-ipc-%d", uid, sd, i))
		}
	}

	// Flatpak-packaged Discord uses its own app-scoped directory.
	for _, app := range flatpakApps {
		for i := range MaxIPCSlots {
			paths = append(paths, fmt.Sprintf("/run/user/%s/app/%s/discord-ipc-%d", uid, app, i))
		}
	}

	// Under WSL, append paths a socat + npiperelay bridge would create.
	// These may overlap with the paths above; deduplication is not
	// worthwhile since dialing a missing path is cheap.
	paths = append(paths, wslSocketPaths()...)

	return paths
}

// ownedByCurrentUser reports whether path is a socket owned by the
// calling process's uid, and also returns true when path does not
// exist. Any other stat failure returns false. A missing path is not an error
// here: most candidates don't exist and dialing them fails cheaply
// right after, same as before this check existed.
func ownedByCurrentUser(path string) bool {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return errors.Is(err, unix.ENOENT)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFSOCK {
		slog.Warn("transport_candidate_not_a_socket", "path", path)
		return false
	}
	if int(st.Uid) != os.Getuid() {
		slog.Warn("transport_candidate_owner_mismatch", "path", path, "owner_uid", st.Uid)
		return false
	}
	return true
}

// slotPaths expands a "%s-%d" template across every client variant and
// IPC slot.
func slotPaths(template string) []string {
	var paths []string
	for _, v := range variants {
		for i := range MaxIPCSlots {
			paths = append(paths, fmt.Sprintf(template, v, i))
		}
	}
	return paths
}
