// Package kafka publishes messages to Kafka topics through a sarama async
// producer, or to an in-process broker when the URL scheme is "memory".
package kafka

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/ulogger"
)

const memoryScheme = "memory"

// Message is a single record to publish.
type Message struct {
	Key   []byte
	Value []byte
}

type MessageStatus struct {
	Success bool
	Error   error
	Time    time.Time
}

// KafkaAsyncProducerI is what the rest of the code publishes through.
type KafkaAsyncProducerI interface {
	Start(ctx context.Context, ch chan *Message)
	Stop() error
	BrokersURL() []string
	Publish(msg *Message)
}

type KafkaProducerConfig struct {
	Logger                ulogger.Logger
	URL                   *url.URL
	BrokersURL            []string
	Topic                 string
	Partitions            int32
	ReplicationFactor     int16
	RetentionPeriodMillis string
	SegmentBytes          string
	FlushBytes            int
	FlushMessages         int
	FlushFrequency        time.Duration
}

// NewKafkaProducerConfigFromURL reads a producer config from a URL of the form
// kafka://host1:9092,host2:9092/topic?partitions=3&replication=2.
func NewKafkaProducerConfigFromURL(logger ulogger.Logger, kafkaURL *url.URL) (KafkaProducerConfig, error) {
	cfg := KafkaProducerConfig{
		Logger:     logger,
		URL:        kafkaURL,
		BrokersURL: strings.Split(kafkaURL.Host, ","),
		Topic:      strings.TrimPrefix(kafkaURL.Path, "/"),
	}

	if cfg.Topic == "" {
		return cfg, errors.NewConfigurationError("kafka URL %s has no topic", kafkaURL)
	}

	partitions, err := queryInt(kafkaURL, "partitions", 1, 32)
	if err != nil {
		return cfg, err
	}

	replication, err := queryInt(kafkaURL, "replication", 1, 16)
	if err != nil {
		return cfg, err
	}

	flushBytes, err := queryInt(kafkaURL, "flush_bytes", 1024*1024, 32)
	if err != nil {
		return cfg, err
	}

	flushMessages, err := queryInt(kafkaURL, "flush_messages", 50_000, 32)
	if err != nil {
		return cfg, err
	}

	cfg.Partitions = int32(partitions)
	cfg.ReplicationFactor = int16(replication)
	cfg.FlushBytes = int(flushBytes)
	cfg.FlushMessages = int(flushMessages)
	cfg.RetentionPeriodMillis = queryString(kafkaURL, "retention", "600000")
	cfg.SegmentBytes = queryString(kafkaURL, "segment_bytes", "1073741824")

	cfg.FlushFrequency = 10 * time.Second
	if v := kafkaURL.Query().Get("flush_frequency"); v != "" {
		if cfg.FlushFrequency, err = time.ParseDuration(v); err != nil {
			return cfg, errors.NewConfigurationError("invalid flush_frequency %q", v, err)
		}
	}

	return cfg, nil
}

func queryString(u *url.URL, key, defaultValue string) string {
	if v := u.Query().Get(key); v != "" {
		return v
	}

	return defaultValue
}

func queryInt(u *url.URL, key string, defaultValue int64, bits int) (int64, error) {
	v := u.Query().Get(key)
	if v == "" {
		return defaultValue, nil
	}

	i, err := strconv.ParseInt(v, 10, bits)
	if err != nil {
		return 0, errors.NewConfigurationError("invalid %s %q", key, v, err)
	}

	return i, nil
}
