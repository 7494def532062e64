package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/checkpoint"
	"github.com/rhuss/respkit/pkg/storage"
	"github.com/rhuss/respkit/pkg/transport"
)

var (
	dbOnce sync.Once
	dbDSN  string
	dbErr  error
)

// startDB starts one PostgreSQL container for the whole package.
func startDB() (string, error) {
	dbOnce.Do(func() {
		ctx := context.Background()
		container, err := pgmodule.Run(ctx,
			"postgres:16-alpine",
			pgmodule.WithDatabase("respkit_test"),
			pgmodule.WithUsername("test"),
			pgmodule.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			dbErr = err
			return
		}
		dbDSN, dbErr = container.ConnectionString(ctx, "sslmode=disable")
	})
	return dbDSN, dbErr
}

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("SKIP_INTEGRATION") != "" {
		t.Skip("SKIP_INTEGRATION set, skipping PostgreSQL tests")
	}
	dsn, err := startDB()
	if err != nil {
		t.Skipf("could not start PostgreSQL container: %v", err)
	}

	store, err := New(context.Background(), Config{DSN: dsn, MaxConns: 5, MigrateOnStart: true})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func uniqueID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func makeTestResponse(id string) *api.Response {
	return &api.Response{
		ID:        id,
		Object:    api.ObjectResponse,
		CreatedAt: time.Now().UnixNano(),
		Status:    api.ResponseStatusCompleted,
		Model:     "test-model",
		Output: api.Items{
			&api.Message{
				ItemBase: api.ItemBase{ID: "msg_out1", Status: api.ItemStatusCompleted},
				Role:     api.RoleAssistant,
				Content:  api.ContentParts{&api.OutputText{Text: "hi there"}},
			},
			&api.FunctionCall{CallID: "call_1", Name: "lookup", Arguments: `{"q":"x"}`},
		},
		Usage: &api.Usage{InputTokens: 5, OutputTokens: 3, TotalTokens: 8},
	}
}

func makeInput() api.Items {
	first := api.NewUserMessage("hello")
	first.ID = "msg_in1"
	return api.Items{first, &api.FunctionCallOutput{ItemBase: api.ItemBase{ID: "fco_1"}, CallID: "call_0", Output: "42"}}
}

func TestPostgres_SaveAndGet(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	resp := makeTestResponse(uniqueID("resp_pg"))
	if err := store.SaveResponse(ctx, resp, makeInput()); err != nil {
		t.Fatalf("SaveResponse failed: %v", err)
	}
	got, err := store.GetResponse(ctx, resp.ID)
	if err != nil {
		t.Fatalf("GetResponse failed: %v", err)
	}
	if got.Status != api.ResponseStatusCompleted || got.OutputText() != "hi there" {
		t.Errorf("got %+v", got)
	}
	if calls := got.FunctionCalls(); len(calls) != 1 || calls[0].Name != "lookup" {
		t.Errorf("function calls = %+v", calls)
	}
	if got.Usage == nil || got.Usage.TotalTokens != 8 {
		t.Errorf("Usage = %+v", got.Usage)
	}

	items, err := store.GetInputItems(ctx, resp.ID, transport.ListOptions{})
	if err != nil {
		t.Fatalf("GetInputItems failed: %v", err)
	}
	if len(items.Data) != 2 {
		t.Fatalf("len(items) = %d", len(items.Data))
	}
	if _, ok := items.Data[1].(*api.FunctionCallOutput); !ok {
		t.Errorf("item 1 = %T", items.Data[1])
	}
}

func TestPostgres_NotFoundAndConflict(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if _, err := store.GetResponse(ctx, "resp_nonexistent"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetResponse error = %v", err)
	}
	if _, err := store.GetInputItems(ctx, "resp_nonexistent", transport.ListOptions{}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetInputItems error = %v", err)
	}

	resp := makeTestResponse(uniqueID("resp_dup"))
	store.SaveResponse(ctx, resp, nil)
	if err := store.SaveResponse(ctx, resp, nil); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate save error = %v", err)
	}
}

func TestPostgres_UpdateResponse(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	resp := makeTestResponse(uniqueID("resp_upd"))
	resp.Status = api.ResponseStatusQueued
	store.SaveResponse(ctx, resp, makeInput())

	resp.Status = api.ResponseStatusCancelled
	if err := store.UpdateResponse(ctx, resp); err != nil {
		t.Fatalf("UpdateResponse failed: %v", err)
	}
	got, _ := store.GetResponse(ctx, resp.ID)
	if got.Status != api.ResponseStatusCancelled {
		t.Errorf("Status = %q", got.Status)
	}
	if err := store.UpdateResponse(ctx, makeTestResponse("resp_missing")); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("update of missing response error = %v", err)
	}
}

func TestPostgres_SoftDeleteKeepsChain(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	respA := makeTestResponse(uniqueID("resp_chain_a"))
	respB := makeTestResponse(uniqueID("resp_chain_b"))
	respB.PreviousResponseID = &respA.ID
	store.SaveResponse(ctx, respA, nil)
	store.SaveResponse(ctx, respB, nil)

	if err := store.DeleteResponse(ctx, respB.ID); err != nil {
		t.Fatalf("DeleteResponse failed: %v", err)
	}
	if _, err := store.GetResponse(ctx, respB.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetResponse after delete = %v", err)
	}
	gotB, err := store.GetResponseForChain(ctx, respB.ID)
	if err != nil {
		t.Fatalf("GetResponseForChain failed: %v", err)
	}
	if gotB.PreviousResponseID == nil || *gotB.PreviousResponseID != respA.ID {
		t.Errorf("B.previous = %v, want %q", gotB.PreviousResponseID, respA.ID)
	}
}

func TestPostgres_ListResponses(t *testing.T) {
	store := setupTestDB(t)
	tenant := uniqueID("tenant")
	ctx := storage.SetTenant(context.Background(), tenant)

	var ids []string
	for i := 0; i < 4; i++ {
		resp := makeTestResponse(uniqueID(fmt.Sprintf("resp_list%d", i)))
		resp.CreatedAt = int64(1000 + i)
		store.SaveResponse(ctx, resp, nil)
		ids = append(ids, resp.ID)
	}

	page, err := store.ListResponses(ctx, transport.ListOptions{Limit: 3})
	if err != nil {
		t.Fatalf("ListResponses failed: %v", err)
	}
	if len(page.Data) != 3 || !page.HasMore || page.Data[0].ID != ids[3] {
		t.Fatalf("first page = %d items, more=%v", len(page.Data), page.HasMore)
	}

	page, _ = store.ListResponses(ctx, transport.ListOptions{After: *page.LastID})
	if len(page.Data) != 1 || page.Data[0].ID != ids[0] || page.HasMore {
		t.Errorf("second page = %+v", page)
	}

	page, _ = store.ListResponses(ctx, transport.ListOptions{Order: api.OrderAsc, After: ids[1]})
	if len(page.Data) != 2 || page.Data[0].ID != ids[2] {
		t.Errorf("asc page after %s = %+v", ids[1], page)
	}

	other := storage.SetTenant(context.Background(), "someone-else")
	page, _ = store.ListResponses(other, transport.ListOptions{After: ids[0]})
	if len(page.Data) != 0 {
		t.Errorf("other tenant listed %d responses", len(page.Data))
	}
}

func TestPostgres_TenantIsolation(t *testing.T) {
	store := setupTestDB(t)
	ctxA := storage.SetTenant(context.Background(), "tenant-a")
	ctxB := storage.SetTenant(context.Background(), "tenant-b")

	resp := makeTestResponse(uniqueID("resp_tenant"))
	store.SaveResponse(ctxA, resp, nil)

	if _, err := store.GetResponse(ctxA, resp.ID); err != nil {
		t.Fatalf("tenant A should see own response: %v", err)
	}
	if _, err := store.GetResponse(ctxB, resp.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Error("tenant B should not see tenant A's response")
	}
	if err := store.DeleteResponse(ctxB, resp.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Error("tenant B deleted tenant A's response")
	}
}

func TestPostgres_CheckpointKV(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	cps := checkpoint.NewStore(store)

	ns := uniqueID("ns") + ".servicebus.windows.net"
	if _, err := cps.GetCheckpoint(ctx, ns, "hub", "$default", "0"); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Fatalf("miss error = %v", err)
	}

	seq := int64(7)
	cp := checkpoint.Checkpoint{
		FullyQualifiedNamespace: ns,
		EventHubName:            "hub",
		ConsumerGroup:           "$default",
		PartitionID:             "0",
		SequenceNumber:          &seq,
	}
	if err := cps.UpdateCheckpoint(ctx, cp); err != nil {
		t.Fatalf("UpdateCheckpoint failed: %v", err)
	}
	seq = 8
	if err := cps.UpdateCheckpoint(ctx, cp); err != nil {
		t.Fatalf("second UpdateCheckpoint failed: %v", err)
	}
	got, err := cps.GetCheckpoint(ctx, ns, "hub", "$default", "0")
	if err != nil {
		t.Fatalf("GetCheckpoint failed: %v", err)
	}
	if got.SequenceNumber == nil || *got.SequenceNumber != 8 || got.Offset != nil {
		t.Errorf("checkpoint = %+v", got)
	}
}

func TestPostgres_MigrateIsIdempotent(t *testing.T) {
	store := setupTestDB(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	ms, err := embeddedMigrations()
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) < 2 || ms[0].version != 1 || ms[1].version != 2 {
		t.Errorf("migrations = %+v", ms)
	}
}
