package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/nodecore/noderuntime/internal/keyfile"
)

func runPeerID(args []string) {
	fs := flag.NewFlagSet("peer-id", flag.ExitOnError)
	keyFile := fs.String("key-file", "bootstrap.key", "path to the identity key file")
	fs.Parse(args)

	priv, _, err := keyfile.LoadOrCreate(*keyFile)
	if err != nil {
		log.Fatalf("peer-id: %v", err)
	}

	id, err := peerIDFromKey(priv)
	if err != nil {
		log.Fatalf("peer-id: %v", err)
	}
	fmt.Println(id)
}
