// Command bootstrap runs a standalone noderuntime node suitable for use as
// a DHT bootstrap / circuit relay point. It follows the teacher's own
// main.go convention: a manual flag.NewFlagSet per subcommand, log.Fatalf
// on startup failure, and a short banner before entering the run loop.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "peer-id":
		runPeerID(os.Args[2:])
	case "run":
		runRun(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("bootstrap - standalone noderuntime bootstrap/relay node")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  bootstrap peer-id [--key-file <path>]")
	fmt.Println("  bootstrap run [--tcp-port <u16>] [--quic-port <u16>] [--key-file <path>]")
	fmt.Println("                [--listen-addr <ip>] [--idle-timeout <secs>] [--external-ip <ip>]")
}
