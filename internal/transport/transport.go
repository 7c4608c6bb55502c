// Package transport discovers and dials the local Discord IPC endpoint:
// a Unix domain socket on POSIX systems, a named pipe on Windows, and a
// socat/npiperelay bridge socket under WSL.
package transport

import (
	"errors"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

const (
	// MaxIPCSlots is the number of IPC endpoint slots Discord may listen
	// on (discord-ipc-0 through discord-ipc-9).
	MaxIPCSlots = 10
)

// ErrEndpointNotFound is returned when no candidate endpoint accepts a
// connection.
var ErrEndpointNotFound = errors.New("transport: no discord IPC endpoint found")

// Discord client variants, each with its own socket/pipe name prefix.
var variants = []string{"discord-ipc", "discordcanary-ipc", "discordptb-ipc"}

// Flatpak-packaged Discord app ids, each with its own app-scoped runtime
// directory.
var flatpakApps = []string{
	"com.discordapp.Discord",
	"com.discordapp.DiscordCanary",
	"com.discordapp.DiscordPTB",
}

// Snap-packaged Discord channel directories.
var snapDirs = []string{"snap.discord", "snap.discord-canary", "snap.discord-ptb"}
