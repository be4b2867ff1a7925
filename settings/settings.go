package settings

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/bsv-blockchain/legacy-p2p/chaincfg"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
)

func NewSettings() *Settings {
	params, err := chaincfg.GetChainParams(getString("network", "mainnet"))
	if err != nil {
		panic(err)
	}

	applyCheckpointOverrides(params)

	return &Settings{
		ClientName:              getString("clientName", "legacy-p2p"),
		LogLevel:                getString("logLevel", "INFO"),
		LoggerType:              getString("logger", "zerolog"),
		PrettyLogs:              getBool("PRETTY_LOGS", true),
		PrometheusListenAddress: getString("prometheusListenAddress", ":9091"),
		HealthCheckPort:         getInt("health_check_port", 8000),
		ChainCfgParams:          params,
		Legacy: LegacySettings{
			ConnectPeers:      getMultiString("legacy_connect_peers", "|"),
			ListenAddress:     getString("legacy_listenAddress", ""),
			MaxPeers:          getInt("legacy_maxPeers", 8),
			ProtocolVersion:   uint32(getInt("legacy_protocolVersion", int(wire.ProtocolVersion))), //nolint:gosec // config value
			Services:          uint64(getInt("legacy_services", int(wire.SFNodeNetwork|wire.SFNodeWitness|wire.SFNodeCF))), //nolint:gosec // config value
			UserAgentName:     getString("legacy_userAgentName", "legacy-p2p"),
			UserAgentVersion:  getString("legacy_userAgentVersion", "0.1.0"),
			UserAgentComments: getMultiString("legacy_userAgentComments", "|"),
			DisableRelayTx:    getBool("legacy_disableRelayTx", false),
			VerifyCheckpoint:  getBool("legacy_verifyCheckpoint", false),
			HandshakeTimeout:  getDuration("legacy_handshakeTimeout", 5*time.Second),
			VerifyTimeout:     getDuration("legacy_verifyTimeout", 30*time.Second),
			PingInterval:      getDuration("legacy_pingInterval", 2*time.Minute),
			PingTimeout:       getDuration("legacy_pingTimeout", time.Minute),
			GetHeadersTimeout: getDuration("legacy_getHeadersTimeout", 2*time.Minute),
			DialTimeout:       getDuration("legacy_dialTimeout", 30*time.Second),
			ReconnectRetries:  getInt("legacy_reconnectRetries", 5),
			ReconnectBackoff:  getDuration("legacy_reconnectBackoff", time.Second),
			GetHeadersRate:    getFloat64("legacy_getHeadersRate", 2),
			GetHeadersBurst:   getInt("legacy_getHeadersBurst", 4),
			GetDataExpiry:     getDuration("legacy_getDataExpiry", 2*time.Minute),
			AddressTTL:        getDuration("legacy_addressTTL", 3*time.Hour),
			Proxy:             getString("legacy_proxy", ""),
			ProxyUser:         getString("legacy_proxyUser", ""),
			ProxyPass:         getString("legacy_proxyPass", ""),
			HTTPListenAddress: getString("legacy_httpListenAddress", ":8099"),
			CacheExpiry:       getDuration("legacy_cacheExpiry", 10*time.Minute),
			TraceMessages:     getBool("legacy_traceMessages", false),
		},
		Kafka: KafkaSettings{
			Enabled:           getBool("KAFKA_ENABLED", false),
			Scheme:            getString("KAFKA_SCHEME", "kafka"),
			Hosts:             getString("KAFKA_HOSTS", "localhost:9092"),
			Port:              getInt("KAFKA_PORT", 9092),
			Partitions:        getInt("KAFKA_PARTITIONS", 1),
			ReplicationFactor: getInt("KAFKA_REPLICATION_FACTOR", 1),
			FlushFrequency:    getDuration("KAFKA_FLUSH_FREQUENCY", time.Second),
			Blocks:            getString("KAFKA_LEGACY_BLOCKS", "legacy-blocks"),
			BlockHeaders:      getString("KAFKA_LEGACY_HEADERS", "legacy-headers"),
			Transactions:      getString("KAFKA_LEGACY_TXS", "legacy-txs"),
			Filters:           getString("KAFKA_LEGACY_FILTERS", "legacy-filters"),
			FilterHeaders:     getString("KAFKA_LEGACY_FILTER_HEADERS", "legacy-filter-headers"),
		},
	}
}

// applyCheckpointOverrides lets the verification checkpoint be moved or
// completed from config. The filter header is never shipped in chaincfg.
func applyCheckpointOverrides(params *chaincfg.Params) {
	cp := &params.VerifyCheckpoint

	if h := getInt("checkpoint_height", -1); h >= 0 {
		cp.Height = int32(h) //nolint:gosec // heights fit in int32
	}

	if h := getHash("checkpoint_hash"); h != nil {
		cp.Hash = h
	}

	if h := getHash("checkpoint_parentHash"); h != nil {
		cp.ParentHash = h
	}

	if h := getHash("checkpoint_filterHeader"); h != nil {
		cp.FilterHeader = h
	}
}

func brokerList(hosts string, port int) []string {
	var brokers []string

	for _, h := range strings.Split(hosts, ",") {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}

		if _, _, err := net.SplitHostPort(h); err != nil {
			h = net.JoinHostPort(h, strconv.Itoa(port))
		}

		brokers = append(brokers, h)
	}

	return brokers
}
