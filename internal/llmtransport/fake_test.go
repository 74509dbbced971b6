package llmtransport

import (
	"context"
	"testing"
)

func TestFakeReturnsQueuedResponsesInOrder(t *testing.T) {
	fake := &Fake{Responses: []*Response{{Text: "first"}, {Text: "second"}}}

	r1, err := fake.Complete(context.Background(), Request{Model: "m"})
	if err != nil || r1.Text != "first" {
		t.Fatalf("unexpected first response: %+v, err=%v", r1, err)
	}
	r2, err := fake.Complete(context.Background(), Request{Model: "m"})
	if err != nil || r2.Text != "second" {
		t.Fatalf("unexpected second response: %+v, err=%v", r2, err)
	}
	if len(fake.Requests) != 2 {
		t.Fatalf("expected 2 recorded requests, got %d", len(fake.Requests))
	}
}
