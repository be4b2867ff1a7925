package wire

// Command identifies a message type. The set is closed: ParseMessage switches
// over it and every value maps to exactly one wire command string.
type Command uint8

const (
	CmdUnknown Command = iota
	CmdVersion
	CmdVerAck
	CmdPing
	CmdPong
	CmdInv
	CmdGetData
	CmdNotFound
	CmdGetHeaders
	CmdGetBlocks
	CmdHeaders
	CmdGetCFHeaders
	CmdCFHeaders
	CmdGetCFilters
	CmdCFilter
	CmdGetCFCheckpt
	CmdCFCheckpt
	CmdReject
	CmdTx
	CmdBlock
	CmdMerkleBlock
	CmdCmpctBlock
	CmdSendCmpct
	CmdGetBlockTxn
	CmdBlockTxn
	CmdAddr
	CmdGetAddr
	CmdFilterLoad
	CmdFilterAdd
	CmdFilterClear
	CmdMemPool
	CmdSendHeaders
	CmdFeeFilter

	numCommands
)

var commandNames = [numCommands]string{
	CmdUnknown:      "",
	CmdVersion:      "version",
	CmdVerAck:       "verack",
	CmdPing:         "ping",
	CmdPong:         "pong",
	CmdInv:          "inv",
	CmdGetData:      "getdata",
	CmdNotFound:     "notfound",
	CmdGetHeaders:   "getheaders",
	CmdGetBlocks:    "getblocks",
	CmdHeaders:      "headers",
	CmdGetCFHeaders: "getcfheaders",
	CmdCFHeaders:    "cfheaders",
	CmdGetCFilters:  "getcfilters",
	CmdCFilter:      "cfilter",
	CmdGetCFCheckpt: "getcfcheckpt",
	CmdCFCheckpt:    "cfcheckpt",
	CmdReject:       "reject",
	CmdTx:           "tx",
	CmdBlock:        "block",
	CmdMerkleBlock:  "merkleblock",
	CmdCmpctBlock:   "cmpctblock",
	CmdSendCmpct:    "sendcmpct",
	CmdGetBlockTxn:  "getblocktxn",
	CmdBlockTxn:     "blocktxn",
	CmdAddr:         "addr",
	CmdGetAddr:      "getaddr",
	CmdFilterLoad:   "filterload",
	CmdFilterAdd:    "filteradd",
	CmdFilterClear:  "filterclear",
	CmdMemPool:      "mempool",
	CmdSendHeaders:  "sendheaders",
	CmdFeeFilter:    "feefilter",
}

var commandsByName = func() map[string]Command {
	m := make(map[string]Command, numCommands)
	for c := CmdVersion; c < numCommands; c++ {
		m[commandNames[c]] = c
	}

	return m
}()

// String returns the wire name of the command.
func (c Command) String() string {
	if c < numCommands && c != CmdUnknown {
		return commandNames[c]
	}

	return "unknown"
}

// LookupCommand maps a wire command string to its Command, or CmdUnknown.
func LookupCommand(name string) Command {
	return commandsByName[name]
}

// Commands returns every known command in declaration order.
func Commands() []Command {
	cmds := make([]Command, 0, numCommands-1)
	for c := CmdVersion; c < numCommands; c++ {
		cmds = append(cmds, c)
	}

	return cmds
}
