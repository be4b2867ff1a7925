// Package main is a small interactive client for poking at a single Bitcoin
// peer. It connects, completes the handshake and then reads commands from
// stdin:
//
//	send ping [nonce]        send a ping
//	send getaddr             ask for addresses
//	send getheaders [hash]   ask for headers after hash, genesis by default
//	send getdata tx|block <hash>...
//	send inv tx|block <hash>...
//	state                    dump the peer state
//	exit
package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/bsv-blockchain/legacy-p2p/chaincfg"
	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/peer"
	"github.com/bsv-blockchain/legacy-p2p/ulogger"
	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"
)

const (
	userAgentName    = "peercli"
	userAgentVersion = "1.0.0"
)

func main() {
	app := &cli.App{
		Name:  "peercli",
		Usage: "A CLI tool to interact with Bitcoin peers",
		Commands: []*cli.Command{
			{
				Name:   "connect",
				Usage:  "Connect to a Bitcoin peer",
				Action: connect,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "address",
						Usage:    "Address of the Bitcoin peer",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "network",
						Usage: "mainnet, testnet, regtest or signet",
						Value: "mainnet",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the handshake",
						Value: 10 * time.Second,
					},
					&cli.StringFlag{
						Name:  "log-level",
						Value: "WARN",
					},
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "Log every message at debug level",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func connect(c *cli.Context) error {
	params, err := chaincfg.GetChainParams(c.String("network"))
	if err != nil {
		return err
	}

	addr := c.String("address")
	timeout := c.Duration("timeout")
	logger := ulogger.New(userAgentName, ulogger.WithLevel(c.String("log-level")))

	steady := make(chan struct{})
	printer := &printer{out: os.Stdout}

	cfg := &peer.Config{
		ChainParams:      params,
		UserAgentName:    userAgentName,
		UserAgentVersion: userAgentVersion,
		HandshakeTimeout: timeout,
		TraceMessages:    c.Bool("trace"),
		Downstream:       printer,
		AddressBook:      printer,
		OnStateChange: func(_ *peer.Peer, _, to peer.State) {
			if to == peer.StateSteady {
				close(steady)
			}
		},
	}

	p, err := peer.NewOutboundPeer(logger, cfg, addr)
	if err != nil {
		return err
	}

	fmt.Printf("Trying to dial: %v\n", addr)

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return errors.NewNetworkError("failed to dial %s", addr, err)
	}

	p.AssociateConnection(conn)

	select {
	case <-steady:
		fmt.Printf("Connected to %s %s, height %d\n", p, p.UserAgent(), p.StartingHeight())
	case <-p.Done():
		return errors.NewNetworkError("peer %s disconnected during handshake", addr, p.DisconnectReason())
	case <-time.After(2 * timeout):
		p.Disconnect("handshake timeout")
		return errors.NewHandshakeTimeoutError("no handshake with %s after %s", addr, timeout)
	}

	interactiveLoop(p, params, os.Stdin, os.Stdout)

	return nil
}

func interactiveLoop(p *peer.Peer, params *chaincfg.Params, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "peercli> ")

		if !scanner.Scan() {
			break
		}

		if !handleCommand(p, params, scanner.Text(), out) {
			break
		}
	}

	p.Disconnect("peercli exiting")
	p.WaitForDisconnect()
}

// handleCommand runs one line of input and reports whether to keep going.
func handleCommand(p *peer.Peer, params *chaincfg.Params, input string, out io.Writer) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return true
	}

	select {
	case <-p.Done():
		fmt.Fprintf(out, "Peer is gone: %v\n", p.DisconnectReason())
		return false
	default:
	}

	switch parts[0] {
	case "exit", "quit":
		fmt.Fprintln(out, "Exiting...")
		return false
	case "state":
		fmt.Fprint(out, spew.Sdump(p.Snapshot()))
	case "send":
		if len(parts) < 2 {
			fmt.Fprintln(out, "Usage: send <msgType> [args...]")
			return true
		}

		msg, err := buildMessage(params, parts[1], parts[2:]...)
		if err != nil {
			fmt.Fprintln(out, "Error building message:", err)
			return true
		}

		done := make(chan struct{})
		p.QueueMessage(msg, done)

		select {
		case <-done:
			fmt.Fprintf(out, "Message of type %s sent to Bitcoin peer\n", msg.Command())
		case <-p.Done():
			fmt.Fprintf(out, "Peer is gone: %v\n", p.DisconnectReason())
			return false
		}
	default:
		fmt.Fprintln(out, "Unknown command:", parts[0])
	}

	return true
}
