// radiusctl is a CLI client for exercising a radiusd server: sending
// AUTH/ACCT/CoA requests, dumping a loaded dictionary, and decoding raw
// packet captures.
package main

import "github.com/radiusgo/radiusd/cmd/radiusctl/commands"

func main() {
	commands.Execute()
}
