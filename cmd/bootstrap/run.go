package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	noderuntime "github.com/nodecore/noderuntime"
	"github.com/nodecore/noderuntime/internal/keyfile"
)

func peerIDFromKey(priv crypto.PrivKey) (peer.ID, error) {
	return peer.IDFromPrivateKey(priv)
}

func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	tcpPort := fs.Int("tcp-port", 4001, "TCP listen port")
	quicPort := fs.Int("quic-port", 4001, "QUIC listen port")
	keyFile := fs.String("key-file", "bootstrap.key", "path to the identity key file")
	listenAddr := fs.String("listen-addr", "0.0.0.0", "listen IP address")
	idleTimeout := fs.Int("idle-timeout", 120, "idle connection timeout, seconds")
	externalIP := fs.String("external-ip", "", "externally reachable IP to advertise (TCP + QUIC)")
	fs.Parse(args)

	priv, isNew, err := keyfile.LoadOrCreate(*keyFile)
	if err != nil {
		log.Fatalf("run: load identity: %v", err)
	}
	id, err := peerIDFromKey(priv)
	if err != nil {
		log.Fatalf("run: derive peer id: %v", err)
	}
	if isNew {
		log.Printf("generated new identity key: %s", *keyFile)
	} else {
		log.Printf("loaded identity key: %s", *keyFile)
	}

	listenAddrs, err := buildListenAddrs(*listenAddr, *tcpPort, *quicPort)
	if err != nil {
		log.Fatalf("run: invalid listen address: %v", err)
	}

	cfg := noderuntime.Default()
	cfg.ListenAddrs = listenAddrs
	cfg.KadServerMode = true
	cfg.IdleConnTimeout = time.Duration(*idleTimeout) * time.Second
	cfg.KeyFile = *keyFile

	if *externalIP != "" {
		extAddrs, err := buildListenAddrs(*externalIP, *tcpPort, *quicPort)
		if err != nil {
			log.Fatalf("run: invalid external IP: %v", err)
		}
		cfg.ExternalAddrs = extAddrs
	}

	printBanner(id, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down...")
		cancel()
	}()

	client, events, err := noderuntime.Start(ctx, priv, cfg)
	if err != nil {
		log.Fatalf("run: start node: %v", err)
	}
	defer client.Shutdown()

	for {
		ev, ok := events.Recv(ctx)
		if !ok {
			return
		}
		logEvent(ev)
	}
}

func buildListenAddrs(ip string, tcpPort, quicPort int) ([]ma.Multiaddr, error) {
	tcp, err := ma.NewMultiaddr(fmt.Sprintf("/ip4/%s/tcp/%d", ip, tcpPort))
	if err != nil {
		return nil, err
	}
	quic, err := ma.NewMultiaddr(fmt.Sprintf("/ip4/%s/udp/%d/quic-v1", ip, quicPort))
	if err != nil {
		return nil, err
	}
	return []ma.Multiaddr{tcp, quic}, nil
}

func printBanner(id peer.ID, cfg noderuntime.Config) {
	fmt.Println("────────────────────────────────────────────")
	fmt.Println(" noderuntime bootstrap node")
	fmt.Println("────────────────────────────────────────────")
	fmt.Printf(" peer id:    %s\n", id)
	fmt.Printf(" listen:     %v\n", cfg.ListenAddrs)
	if len(cfg.ExternalAddrs) > 0 {
		fmt.Printf(" external:   %v\n", cfg.ExternalAddrs)
	}
	fmt.Printf(" kad mode:   server\n")
	fmt.Println("────────────────────────────────────────────")
	fmt.Println(" press Ctrl+C to stop")
	fmt.Println()
}

func logEvent(ev noderuntime.NodeEvent) {
	switch v := ev.(type) {
	case noderuntime.PeerConnected:
		log.Printf("peer connected: %s", v.Peer)
	case noderuntime.PeerDisconnected:
		log.Printf("peer disconnected: %s", v.Peer)
	case noderuntime.RelayReservationAccepted:
		log.Printf("relay reservation accepted via %s (renewal=%v)", v.RelayPeer, v.Renewal)
	case noderuntime.NatStatusChanged:
		log.Printf("nat status changed: public addr %s", v.PublicAddr)
	default:
		log.Printf("event: %T", ev)
	}
}
