package checkpoint

import (
	"context"
	"errors"
	"testing"

	"github.com/rhuss/respkit/pkg/observability"
)

func ptr[T any](v T) *T { return &v }

// countingKV records how often the store touched the backend.
type countingKV struct {
	*MemoryKV
	sets int
}

func (c *countingKV) Set(ctx context.Context, key string, value []byte) error {
	c.sets++
	return c.MemoryKV.Set(ctx, key, value)
}

func validCheckpoint() Checkpoint {
	return Checkpoint{
		FullyQualifiedNamespace: "MyNamespace.servicebus.windows.net",
		EventHubName:            "Orders",
		ConsumerGroup:           "$Default",
		PartitionID:             "3",
		Offset:                  ptr("1024"),
		SequenceNumber:          ptr(int64(42)),
	}
}

func TestKey(t *testing.T) {
	got := Key("MyNamespace.servicebus.windows.net", "Orders", "$Default", "Part-A")
	want := "mynamespace.servicebus.windows.net/orders/$default/checkpoint/Part-A"
	if got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
}

func TestUpdateThenGet(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := NewStore(kv)

	cp := validCheckpoint()
	if err := s.UpdateCheckpoint(ctx, cp); err != nil {
		t.Fatalf("UpdateCheckpoint failed: %v", err)
	}

	raw, err := kv.Get(ctx, Key(cp.FullyQualifiedNamespace, cp.EventHubName, cp.ConsumerGroup, cp.PartitionID))
	if err != nil {
		t.Fatalf("stored value missing: %v", err)
	}
	if want := `{"offset":"1024","sequenceNumber":42}`; string(raw) != want {
		t.Errorf("stored value = %s, want %s", raw, want)
	}

	got, err := s.GetCheckpoint(ctx, "mynamespace.servicebus.windows.net", "ORDERS", "$default", "3")
	if err != nil {
		t.Fatalf("GetCheckpoint failed: %v", err)
	}
	if *got.Offset != "1024" || *got.SequenceNumber != 42 || got.PartitionID != "3" {
		t.Errorf("checkpoint = %+v", got)
	}
}

func TestOffsetOnly(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryKV())
	cp := validCheckpoint()
	cp.SequenceNumber = nil
	if err := s.UpdateCheckpoint(ctx, cp); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetCheckpoint(ctx, cp.FullyQualifiedNamespace, cp.EventHubName, cp.ConsumerGroup, cp.PartitionID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SequenceNumber != nil || got.Offset == nil {
		t.Errorf("checkpoint = %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := NewStore(NewMemoryKV())
	before := observability.CounterValue(observability.CheckpointOperationsTotal, "get", "not_found")

	_, err := s.GetCheckpoint(context.Background(), "ns", "hub", "cg", "0")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if got := observability.CounterValue(observability.CheckpointOperationsTotal, "get", "not_found") - before; got != 1 {
		t.Errorf("not_found counted %v times", got)
	}
}

func TestInvalidCheckpointNeverWritten(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Checkpoint)
	}{
		{"no namespace", func(c *Checkpoint) { c.FullyQualifiedNamespace = "" }},
		{"no event hub", func(c *Checkpoint) { c.EventHubName = "" }},
		{"no consumer group", func(c *Checkpoint) { c.ConsumerGroup = "" }},
		{"no partition", func(c *Checkpoint) { c.PartitionID = "" }},
		{"no position", func(c *Checkpoint) { c.Offset, c.SequenceNumber = nil, nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := &countingKV{MemoryKV: NewMemoryKV()}
			cp := validCheckpoint()
			tt.mutate(&cp)

			err := NewStore(kv).UpdateCheckpoint(context.Background(), cp)
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("error = %v, want ErrInvalid", err)
			}
			if kv.sets != 0 || kv.Len() != 0 {
				t.Errorf("invalid checkpoint reached the KV")
			}
		})
	}
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return []byte("{not json"), nil }
func (failingKV) Set(context.Context, string, []byte) error   { return errors.New("backend down") }

func TestBackendErrors(t *testing.T) {
	s := NewStore(failingKV{})
	ctx := context.Background()

	err := s.UpdateCheckpoint(ctx, validCheckpoint())
	if err == nil || errors.Is(err, ErrInvalid) {
		t.Errorf("Update error = %v", err)
	}
	_, err = s.GetCheckpoint(ctx, "ns", "hub", "cg", "0")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v", err)
	}
}
