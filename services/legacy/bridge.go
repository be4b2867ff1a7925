package legacy

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/peer"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
	"github.com/bsv-blockchain/legacy-p2p/settings"
	"github.com/bsv-blockchain/legacy-p2p/ulogger"
	"github.com/bsv-blockchain/legacy-p2p/util/kafka"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/ordishs/go-utils/expiringmap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const publishBufferSize = 1_000

// HeadersWorkItem is published for every batch of headers that extends the chain.
type HeadersWorkItem struct {
	Headers   []string `json:"headers"`
	TipHash   string   `json:"tipHash"`
	TipHeight int32    `json:"tipHeight"`
}

// FilterWorkItem carries a committed filter and its Golomb coding parameters.
type FilterWorkItem struct {
	FilterType   uint8  `json:"filterType"`
	BlockHash    string `json:"blockHash"`
	Bits         uint8  `json:"p"`
	FPRate       uint64 `json:"m"`
	ElementCount uint32 `json:"n"`
	Filter       string `json:"filter"`
}

type FilterHeadersWorkItem struct {
	FilterType uint8    `json:"filterType"`
	StopHash   string   `json:"stopHash"`
	PrevHeader string   `json:"prevHeader"`
	Headers    []string `json:"headers"`
}

// Producers holds one producer per downstream topic. A nil producer drops
// the items of its topic.
type Producers struct {
	Blocks        kafka.KafkaAsyncProducerI
	BlockHeaders  kafka.KafkaAsyncProducerI
	Transactions  kafka.KafkaAsyncProducerI
	Filters       kafka.KafkaAsyncProducerI
	FilterHeaders kafka.KafkaAsyncProducerI
}

// NewProducers connects a started producer to every configured topic.
func NewProducers(ctx context.Context, logger ulogger.Logger, ks settings.KafkaSettings) (Producers, error) {
	var (
		p   Producers
		err error
	)

	if !ks.Enabled {
		return p, nil
	}

	topics := []struct {
		topic string
		dst   *kafka.KafkaAsyncProducerI
	}{
		{ks.Blocks, &p.Blocks},
		{ks.BlockHeaders, &p.BlockHeaders},
		{ks.Transactions, &p.Transactions},
		{ks.Filters, &p.Filters},
		{ks.FilterHeaders, &p.FilterHeaders},
	}

	for _, t := range topics {
		if t.topic == "" {
			continue
		}

		var producer *kafka.KafkaAsyncProducer

		producer, err = kafka.NewKafkaAsyncProducerFromURL(logger, producerURL(ks, t.topic))
		if err != nil {
			p.Stop()
			return Producers{}, errors.NewServiceError("failed to create producer for topic %s", t.topic, err)
		}

		producer.Start(ctx, make(chan *kafka.Message, publishBufferSize))
		*t.dst = producer
	}

	return p, nil
}

func producerURL(ks settings.KafkaSettings, topic string) *url.URL {
	query := url.Values{}
	query.Set("partitions", strconv.Itoa(ks.Partitions))
	query.Set("replication", strconv.Itoa(ks.ReplicationFactor))
	query.Set("flush_frequency", ks.FlushFrequency.String())

	scheme := ks.Scheme
	if scheme == "" {
		scheme = "kafka"
	}

	return &url.URL{
		Scheme:   scheme,
		Host:     strings.Join(ks.Brokers(), ","),
		Path:     "/" + topic,
		RawQuery: query.Encode(),
	}
}

func (p Producers) Stop() {
	for _, producer := range []kafka.KafkaAsyncProducerI{p.Blocks, p.BlockHeaders, p.Transactions, p.Filters, p.FilterHeaders} {
		if producer != nil {
			_ = producer.Stop()
		}
	}
}

// Bridge is the downstream of every peer. It stores headers in the header
// chain, publishes work items to Kafka and keeps recent blocks and
// transactions around for the HTTP API.
type Bridge struct {
	logger     ulogger.Logger
	chain      *HeaderChain
	producers  Producers
	blockCache *expiringmap.ExpiringMap[chainhash.Hash, []byte]
	txCache    *expiringmap.ExpiringMap[chainhash.Hash, []byte]
}

var _ peer.Downstream = (*Bridge)(nil)

func NewBridge(logger ulogger.Logger, chain *HeaderChain, producers Producers, cacheExpiry time.Duration) *Bridge {
	initPrometheusMetrics()

	return &Bridge{
		logger:     logger,
		chain:      chain,
		producers:  producers,
		blockCache: expiringmap.New[chainhash.Hash, []byte](cacheExpiry),
		txCache:    expiringmap.New[chainhash.Hash, []byte](cacheExpiry),
	}
}

func (b *Bridge) publish(producer kafka.KafkaAsyncProducerI, topic string, key, value []byte) {
	if producer == nil {
		return
	}

	producer.Publish(&kafka.Message{Key: key, Value: value})
	prometheusLegacyPublished.WithLabelValues(topic).Inc()
}

func (b *Bridge) publishJSON(producer kafka.KafkaAsyncProducerI, topic string, key []byte, item any) {
	if producer == nil {
		return
	}

	value, err := json.Marshal(item)
	if err != nil {
		b.logger.Errorf("[Bridge] failed to encode %s work item: %v", topic, err)
		return
	}

	b.publish(producer, topic, key, value)
}

func (b *Bridge) SubmitBlock(raw []byte) {
	msg, err := wire.NewMsgBlock(raw)
	if err != nil {
		b.logger.Warnf("[Bridge] dropping block: %v", err)
		return
	}

	hash := msg.BlockHash()
	b.blockCache.Set(hash, raw)

	b.logger.Debugf("[Bridge] block %s (%d bytes)", hash, len(raw))
	b.publish(b.producers.Blocks, "blocks", hash[:], raw)
}

func (b *Bridge) SubmitTransaction(raw []byte) {
	hash := wire.NewMsgTx(raw).TxHash()
	b.txCache.Set(hash, raw)

	b.publish(b.producers.Transactions, "txs", hash[:], raw)
}

// SubmitBlockHeaders adds headers to the chain and asks for more as long as
// the batch extended it.
func (b *Bridge) SubmitBlockHeaders(headers []wire.BlockHeader, done chan<- bool) {
	added, err := b.chain.Add(headers)
	if err != nil {
		b.logger.Warnf("[Bridge] rejected headers batch after %d new: %v", added, err)
	}

	tipHash, tipHeight := b.chain.Tip()
	prometheusLegacyHeaderHeight.Set(float64(tipHeight))

	if added > 0 {
		item := HeadersWorkItem{
			Headers:   make([]string, 0, len(headers)),
			TipHash:   tipHash.String(),
			TipHeight: tipHeight,
		}

		for i := range headers {
			item.Headers = append(item.Headers, hex.EncodeToString(headers[i].Bytes()))
		}

		b.publishJSON(b.producers.BlockHeaders, "headers", tipHash[:], item)
		b.logger.Infof("[Bridge] %d new headers, tip %s at height %d", added, tipHash, tipHeight)
	}

	done <- err == nil && added > 0
}

func (b *Bridge) SubmitFilter(filterType wire.FilterType, blockHash chainhash.Hash, bits uint8, fpRate uint64, elementCount uint32, raw []byte) {
	b.publishJSON(b.producers.Filters, "filters", blockHash[:], FilterWorkItem{
		FilterType:   uint8(filterType),
		BlockHash:    blockHash.String(),
		Bits:         bits,
		FPRate:       fpRate,
		ElementCount: elementCount,
		Filter:       hex.EncodeToString(raw),
	})
}

func (b *Bridge) SubmitFilterHeaders(filterType wire.FilterType, stopHash, prevHeader chainhash.Hash, headers []chainhash.Hash) {
	item := FilterHeadersWorkItem{
		FilterType: uint8(filterType),
		StopHash:   stopHash.String(),
		PrevHeader: prevHeader.String(),
		Headers:    make([]string, 0, len(headers)),
	}

	for _, h := range headers {
		item.Headers = append(item.Headers, h.String())
	}

	b.publishJSON(b.producers.FilterHeaders, "filter_headers", stopHash[:], item)
}

// BlockHandler serves a recently received block as raw bytes.
func (b *Bridge) BlockHandler(c echo.Context) error {
	return b.serveCached(c, b.blockCache)
}

// TxHandler serves a recently received transaction as raw bytes.
func (b *Bridge) TxHandler(c echo.Context) error {
	return b.serveCached(c, b.txCache)
}

func (b *Bridge) serveCached(c echo.Context, cache *expiringmap.ExpiringMap[chainhash.Hash, []byte]) error {
	hash, err := chainhash.NewHashFromStr(c.Param("hash"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, "invalid hash")
	}

	raw, ok := cache.Get(*hash)
	if !ok {
		return c.JSON(http.StatusNotFound, "not found")
	}

	return c.Blob(http.StatusOK, "application/octet-stream", raw)
}

type tipResponse struct {
	Hash   string `json:"hash"`
	Height int32  `json:"height"`
}

func (b *Bridge) TipHandler(c echo.Context) error {
	hash, height := b.chain.Tip()

	return c.JSON(http.StatusOK, tipResponse{Hash: hash.String(), Height: height})
}
