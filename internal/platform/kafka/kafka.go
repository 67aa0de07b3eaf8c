// Package kafka builds the franz-go client backing the durable ledger.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"chainaudit/internal/platform/config"
)

// NewClient returns a producer that waits for all in-sync replicas and keeps
// per-partition ordering, so entries of one chain stay in append order.
func NewClient(cfg config.Kafka, extra ...kgo.Opt) (*kgo.Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordPartitioner(kgo.StickyKeyPartitioner(nil)),
	}
	client, err := kgo.NewClient(append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// EnsureTopic creates the ledger topic when it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, cfg config.Kafka, logger *slog.Logger) error {
	adm := kadm.NewClient(client)
	partitions := cfg.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	replication := cfg.ReplicationFactor
	if replication <= 0 {
		replication = 1
	}

	resp, err := adm.CreateTopic(ctx, partitions, replication, nil, cfg.Topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", cfg.Topic, err)
	}
	if resp.Err != nil {
		if errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create topic %s: %w", cfg.Topic, resp.Err)
	}
	logger.InfoContext(ctx, "ledger topic created", "topic", cfg.Topic, "partitions", partitions)
	return nil
}

// Health pings the seed brokers.
func Health(ctx context.Context, client *kgo.Client) error {
	return client.Ping(ctx)
}

// Replayer reads a topic from its start offsets up to the end offsets
// observed when Replay is called. Records produced afterwards are not read.
type Replayer struct {
	brokers []string
	admin   *kadm.Client
}

func NewReplayer(cfg config.Kafka, client *kgo.Client) *Replayer {
	return &Replayer{brokers: cfg.Brokers, admin: kadm.NewClient(client)}
}

func (r *Replayer) Replay(ctx context.Context, topic string, fn func(value []byte) error) error {
	starts, err := r.admin.ListStartOffsets(ctx, topic)
	if err != nil {
		return fmt.Errorf("list start offsets of %s: %w", topic, err)
	}
	ends, err := r.admin.ListEndOffsets(ctx, topic)
	if err != nil {
		return fmt.Errorf("list end offsets of %s: %w", topic, err)
	}
	if err := errors.Join(starts.Error(), ends.Error()); err != nil {
		return fmt.Errorf("list offsets of %s: %w", topic, err)
	}

	remaining := make(map[int32]int64)
	assign := make(map[int32]kgo.Offset)
	ends.Each(func(end kadm.ListedOffset) {
		start, ok := starts.Lookup(topic, end.Partition)
		if !ok || end.Offset <= start.Offset {
			return
		}
		remaining[end.Partition] = end.Offset
		assign[end.Partition] = kgo.NewOffset().At(start.Offset)
	})
	if len(remaining) == 0 {
		return nil
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(r.brokers...),
		kgo.ConsumePartitions(map[string]map[int32]kgo.Offset{topic: assign}),
	)
	if err != nil {
		return fmt.Errorf("create replay consumer: %w", err)
	}
	defer consumer.Close()

	for len(remaining) > 0 {
		fetches := consumer.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			return fmt.Errorf("replay %s partition %d: %w", errs[0].Topic, errs[0].Partition, errs[0].Err)
		}

		var fnErr error
		fetches.EachRecord(func(rec *kgo.Record) {
			end, ok := remaining[rec.Partition]
			if fnErr != nil || !ok {
				return
			}
			fnErr = fn(rec.Value)
			if rec.Offset+1 >= end {
				delete(remaining, rec.Partition)
			}
		})
		if fnErr != nil {
			return fnErr
		}
	}
	return nil
}
