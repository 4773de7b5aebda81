package memory

import (
	"context"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/webshop/internal/domain"
)

func TestOutboxRepository_EnqueueAndPull(t *testing.T) {
	repo := NewOutboxRepository()
	ctx := context.Background()

	first := repo.Enqueue(domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   "1",
		EventType:     domain.EventTypeOrderPlaced,
		Payload:       []byte(`{"order_id":1}`),
	})
	second := repo.Enqueue(domain.OutboxMessage{AggregateType: domain.AggregateTypeOrder, AggregateID: "2"})
	if first.ID == "" || second.ID == "" {
		t.Fatal("expected generated ids")
	}

	pending, err := repo.PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending messages, got %d", len(pending))
	}
	if pending[0].ID != first.ID || pending[1].ID != second.ID {
		t.Fatalf("expected insertion order, got %s, %s", pending[0].ID, pending[1].ID)
	}

	limited, err := repo.PullPending(ctx, 1)
	if err != nil {
		t.Fatalf("pull pending with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 message with limit, got %d", len(limited))
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 2 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestOutboxRepository_MarkSentAndFailed(t *testing.T) {
	repo := NewOutboxRepository()
	ctx := context.Background()

	saved := repo.Enqueue(domain.OutboxMessage{AggregateType: domain.AggregateTypeOrder})

	if err := repo.MarkSent(ctx, saved.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}

	pending, err := repo.PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending messages after mark sent, got %d", len(pending))
	}

	if err := repo.MarkFailed(ctx, saved.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	if err := repo.MarkFailed(ctx, "missing"); err == nil {
		t.Fatal("expected error for missing record")
	}
}

func TestOutboxRepository_DeleteProcessedBefore(t *testing.T) {
	repo := NewOutboxRepository()
	ctx := context.Background()

	sent := repo.Enqueue(domain.OutboxMessage{AggregateID: "1"})
	failed := repo.Enqueue(domain.OutboxMessage{AggregateID: "2"})
	pending := repo.Enqueue(domain.OutboxMessage{AggregateID: "3"})
	if err := repo.MarkSent(ctx, sent.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkFailed(ctx, failed.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	deleted, err := repo.DeleteProcessedBefore(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil || deleted != 0 {
		t.Fatalf("expected nothing older than an hour, got %d, %v", deleted, err)
	}

	future := time.Now().Add(time.Minute)
	deleted, err = repo.DeleteProcessedBefore(ctx, future, 1)
	if err != nil || deleted != 1 {
		t.Fatalf("expected one deletion with limit 1, got %d, %v", deleted, err)
	}
	deleted, err = repo.DeleteProcessedBefore(ctx, future, 10)
	if err != nil || deleted != 1 {
		t.Fatalf("expected remaining processed message deleted, got %d, %v", deleted, err)
	}

	left, err := repo.PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(left) != 1 || left[0].ID != pending.ID {
		t.Fatalf("pending message must survive cleanup, got %+v", left)
	}
	if err := repo.MarkSent(ctx, sent.ID); err == nil {
		t.Fatal("expected deleted record to be gone")
	}
}
