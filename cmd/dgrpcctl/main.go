// Command dgrpcctl is a small CLI exercising the dgrpc façade end to
// end: connect to a running Discord client, push a Rich Presence
// activity, look up a guild or channel, and subscribe to push events
// from a terminal. It is an example program, not part of the library's
// core; see go.alderamin.dev/dgrpc for the package it drives.
package main

import "go.alderamin.dev/dgrpc/cmd/dgrpcctl/cmd"

func main() {
	cmd.Execute()
}
