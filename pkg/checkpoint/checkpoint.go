// Package checkpoint persists the last processed position of event hub
// partitions.
//
// A Store needs nothing from its backend except Get and Set on opaque keys
// (see KV). Each checkpoint is written as a small JSON document under
//
//	{namespace}/{eventhub}/{consumergroup}/checkpoint/{partition}
//
// where the first three segments are lowercased.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rhuss/respkit/pkg/debug"
	"github.com/rhuss/respkit/pkg/observability"
)

var (
	// ErrNotFound is returned when no checkpoint exists for a partition.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrInvalid is returned for a checkpoint that cannot be stored.
	ErrInvalid = errors.New("invalid checkpoint")
)

// Checkpoint is the position of one consumer group in one partition.
type Checkpoint struct {
	FullyQualifiedNamespace string
	EventHubName            string
	ConsumerGroup           string
	PartitionID             string
	Offset                  *string
	SequenceNumber          *int64
}

// value is the stored JSON document.
type value struct {
	Offset         *string `json:"offset,omitempty"`
	SequenceNumber *int64  `json:"sequenceNumber,omitempty"`
}

// KV is the storage a Store writes to.
type KV interface {
	// Get returns the value under key, or an error wrapping ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Store reads and writes checkpoints.
type Store struct {
	kv KV
}

// NewStore returns a Store backed by kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Key returns the storage key of a partition's checkpoint.
func Key(namespace, eventHub, consumerGroup, partitionID string) string {
	return strings.ToLower(namespace) + "/" +
		strings.ToLower(eventHub) + "/" +
		strings.ToLower(consumerGroup) + "/checkpoint/" +
		partitionID
}

// Validate checks that cp names a partition and carries a position.
func (cp Checkpoint) Validate() error {
	var errs []error
	for _, f := range []struct{ name, v string }{
		{"fully qualified namespace", cp.FullyQualifiedNamespace},
		{"event hub name", cp.EventHubName},
		{"consumer group", cp.ConsumerGroup},
		{"partition id", cp.PartitionID},
	} {
		if f.v == "" {
			errs = append(errs, fmt.Errorf("%w: %s is required", ErrInvalid, f.name))
		}
	}
	if cp.Offset == nil && cp.SequenceNumber == nil {
		errs = append(errs, fmt.Errorf("%w: offset or sequence number is required", ErrInvalid))
	}
	return errors.Join(errs...)
}

// UpdateCheckpoint writes cp, replacing the partition's previous checkpoint.
// Invalid checkpoints are rejected before the KV is touched.
func (s *Store) UpdateCheckpoint(ctx context.Context, cp Checkpoint) error {
	if err := cp.Validate(); err != nil {
		record("update", err)
		return err
	}
	key := Key(cp.FullyQualifiedNamespace, cp.EventHubName, cp.ConsumerGroup, cp.PartitionID)
	data, err := json.Marshal(value{Offset: cp.Offset, SequenceNumber: cp.SequenceNumber})
	if err != nil {
		return fmt.Errorf("encoding checkpoint %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		err = fmt.Errorf("writing checkpoint %s: %w", key, err)
		record("update", err)
		return err
	}
	debug.Log("checkpoint", "updated", "key", key, "value", string(data))
	record("update", nil)
	return nil
}

// GetCheckpoint reads the checkpoint of one partition.
func (s *Store) GetCheckpoint(ctx context.Context, namespace, eventHub, consumerGroup, partitionID string) (*Checkpoint, error) {
	key := Key(namespace, eventHub, consumerGroup, partitionID)
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			err = fmt.Errorf("reading checkpoint %s: %w", key, err)
		} else {
			err = fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		record("get", err)
		return nil, err
	}

	var v value
	if err := json.Unmarshal(data, &v); err != nil {
		err = fmt.Errorf("decoding checkpoint %s: %w", key, err)
		record("get", err)
		return nil, err
	}
	debug.Log("checkpoint", "read", "key", key, "value", string(data))
	record("get", nil)
	return &Checkpoint{
		FullyQualifiedNamespace: namespace,
		EventHubName:            eventHub,
		ConsumerGroup:           consumerGroup,
		PartitionID:             partitionID,
		Offset:                  v.Offset,
		SequenceNumber:          v.SequenceNumber,
	}, nil
}

func record(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case errors.Is(err, ErrInvalid):
		result = "invalid"
	default:
		result = "error"
	}
	observability.CheckpointOperationsTotal.WithLabelValues(op, result).Inc()
}
