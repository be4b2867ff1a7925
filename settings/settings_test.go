package settings

import (
	"testing"
	"time"

	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// check settings object is initialised
func TestInitialiseSettings(t *testing.T) {
	tSettings := NewSettings()

	require.NotNil(t, tSettings.ChainCfgParams)
	assert.Equal(t, wire.MainNet, tSettings.ChainCfgParams.Net)

	assert.Equal(t, uint32(wire.ProtocolVersion), tSettings.Legacy.ProtocolVersion)
	assert.Equal(t, 5*time.Second, tSettings.Legacy.HandshakeTimeout)
	assert.False(t, tSettings.Legacy.VerifyCheckpoint)
	assert.True(t, wire.ServiceFlag(tSettings.Legacy.Services).HasFlag(wire.SFNodeCF))
	assert.Nil(t, tSettings.ChainCfgParams.VerifyCheckpoint.FilterHeader)
}

func TestNetworkSetting(t *testing.T) {
	t.Setenv("network", "testnet")

	tSettings := NewSettings()
	assert.Equal(t, wire.TestNet3, tSettings.ChainCfgParams.Net)
	assert.Equal(t, "18333", tSettings.ChainCfgParams.DefaultPort)
}

func TestCheckpointOverrides(t *testing.T) {
	const filterHeader = "9f3c30f0c37fb977cf3e1a3173c631e8ff119ad3088b6f5b2bced0802139c202"

	t.Setenv("checkpoint_filterHeader", filterHeader)
	t.Setenv("checkpoint_height", "7")

	tSettings := NewSettings()
	cp := tSettings.ChainCfgParams.VerifyCheckpoint

	require.NotNil(t, cp.FilterHeader)
	assert.Equal(t, filterHeader, cp.FilterHeader.String())
	assert.Equal(t, int32(7), cp.Height)
	assert.True(t, cp.Complete())
}

func TestDurationSetting(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected time.Duration
	}{
		{"Default", "", 5 * time.Second},
		{"Explicit", "250ms", 250 * time.Millisecond},
		{"Malformed", "soon", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("legacy_handshakeTimeout", tt.envValue)
			}

			tSettings := NewSettings()
			assert.Equal(t, tt.expected, tSettings.Legacy.HandshakeTimeout)
		})
	}
}

func TestBrokers(t *testing.T) {
	k := KafkaSettings{Hosts: "kafka1, kafka2:9093,,", Port: 9092}
	assert.Equal(t, []string{"kafka1:9092", "kafka2:9093"}, k.Brokers())
}
