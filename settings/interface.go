package settings

import (
	"time"

	"github.com/bsv-blockchain/legacy-p2p/chaincfg"
)

type KafkaSettings struct {
	Enabled           bool
	Scheme            string // "kafka", or "memory" for the in-process broker
	Hosts             string
	Port              int
	Partitions        int
	ReplicationFactor int
	FlushFrequency    time.Duration
	Blocks            string
	BlockHeaders      string
	Transactions      string
	Filters           string
	FilterHeaders     string
}

// Brokers returns the broker list in "host:port" form. Hosts that already carry
// a port are left alone.
func (k KafkaSettings) Brokers() []string {
	return brokerList(k.Hosts, k.Port)
}

type LegacySettings struct {
	ConnectPeers      []string
	ListenAddress     string
	MaxPeers          int
	ProtocolVersion   uint32
	Services          uint64
	UserAgentName     string
	UserAgentVersion  string
	UserAgentComments []string
	DisableRelayTx    bool
	VerifyCheckpoint  bool
	HandshakeTimeout  time.Duration
	VerifyTimeout     time.Duration
	PingInterval      time.Duration
	PingTimeout       time.Duration
	GetHeadersTimeout time.Duration
	DialTimeout       time.Duration
	ReconnectRetries  int
	ReconnectBackoff  time.Duration
	GetHeadersRate    float64
	GetHeadersBurst   int
	GetDataExpiry     time.Duration
	AddressTTL        time.Duration
	Proxy             string
	ProxyUser         string
	ProxyPass         string
	HTTPListenAddress string
	CacheExpiry       time.Duration
	TraceMessages     bool
}

type Settings struct {
	ClientName              string
	LogLevel                string
	LoggerType              string
	PrettyLogs              bool
	PrometheusListenAddress string
	HealthCheckPort         int
	ChainCfgParams          *chaincfg.Params
	Legacy                  LegacySettings
	Kafka                   KafkaSettings
}
