package main

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/chaincfg"
	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
)

// printer writes whatever the peer hands over to out.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func (pr *printer) printf(format string, args ...interface{}) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	fmt.Fprintf(pr.out, format, args...)
}

func (pr *printer) SubmitBlock(raw []byte) {
	msg, err := wire.NewMsgBlock(raw)
	if err != nil {
		pr.printf("Received block we could not parse: %v\n", err)
		return
	}

	pr.printf("Received block message: %s (%d bytes)\n", msg.Header.BlockHash(), len(raw))
}

func (pr *printer) SubmitTransaction(raw []byte) {
	pr.printf("Received tx message: %s\n", wire.NewMsgTx(raw).TxHash())
}

func (pr *printer) SubmitBlockHeaders(headers []wire.BlockHeader, done chan<- bool) {
	if len(headers) > 0 {
		last := headers[len(headers)-1]
		pr.printf("Received %d headers, last %s\n", len(headers), last.BlockHash())
	} else {
		pr.printf("Received empty headers\n")
	}

	// one batch is enough for a human
	done <- false
}

func (pr *printer) SubmitFilter(filterType wire.FilterType, blockHash chainhash.Hash, bits uint8, fpRate uint64, elementCount uint32, raw []byte) {
	pr.printf("Received cfilter type %d for %s: P=%d M=%d N=%d, %d bytes\n", filterType, blockHash, bits, fpRate, elementCount, len(raw))
}

func (pr *printer) SubmitFilterHeaders(filterType wire.FilterType, stopHash, prevHeader chainhash.Hash, headers []chainhash.Hash) {
	pr.printf("Received %d cfheaders type %d up to %s, previous %s\n", len(headers), filterType, stopHash, prevHeader)
}

func (pr *printer) Import(addrs []wire.NetAddress) {
	pr.printf("Received %d addresses\n", len(addrs))

	for i, na := range addrs {
		pr.printf("%d. %s services %s\n", i, na.Addr(), na.Services)
	}
}

func parseNonce(args []string) (uint64, error) {
	if len(args) == 0 {
		return 0, nil
	}

	nonce, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, errors.NewInvalidArgumentError("invalid nonce value: %s", args[0])
	}

	return nonce, nil
}

// parseInvs reads "tx|block <hash>..." into inventory vectors.
func parseInvs(args []string) ([]wire.InvVect, error) {
	if len(args) < 2 {
		return nil, errors.NewInvalidArgumentError("need a type (tx or block) and at least one hash")
	}

	var typ wire.InvType

	switch args[0] {
	case "tx":
		typ = wire.InvTypeTx
	case "block":
		typ = wire.InvTypeBlock
	default:
		return nil, errors.NewInvalidArgumentError("unknown inventory type: %s", args[0])
	}

	invs := make([]wire.InvVect, 0, len(args)-1)

	for _, arg := range args[1:] {
		hash, err := chainhash.NewHashFromStr(arg)
		if err != nil {
			return nil, errors.NewInvalidArgumentError("invalid hash %s", arg, err)
		}

		invs = append(invs, wire.NewInvVect(typ, hash))
	}

	return invs, nil
}

func buildMessage(params *chaincfg.Params, msgType string, args ...string) (wire.Message, error) {
	switch msgType {
	case "ping":
		nonce, err := parseNonce(args)
		if err != nil {
			return nil, err
		}

		return wire.NewMsgPing(nonce), nil
	case "pong":
		nonce, err := parseNonce(args)
		if err != nil {
			return nil, err
		}

		return wire.NewMsgPong(nonce), nil
	case "getaddr":
		return wire.MsgGetAddr{}, nil
	case "mempool":
		return wire.MsgMemPool{}, nil
	case "getheaders":
		locator := []chainhash.Hash{*params.GenesisHash}

		if len(args) > 0 {
			hash, err := chainhash.NewHashFromStr(args[0])
			if err != nil {
				return nil, errors.NewInvalidArgumentError("invalid hash %s", args[0], err)
			}

			locator = []chainhash.Hash{*hash}
		}

		return wire.NewMsgGetHeaders(locator, nil), nil
	case "getdata":
		invs, err := parseInvs(args)
		if err != nil {
			return nil, err
		}

		return wire.NewMsgGetData(invs...), nil
	case "inv":
		invs, err := parseInvs(args)
		if err != nil {
			return nil, err
		}

		return wire.NewMsgInv(invs...), nil
	default:
		return nil, errors.NewInvalidArgumentError("unknown message type: %s", msgType)
	}
}
