package retrieval

import (
	"context"
	"testing"
)

func TestRetrieveRanksByOverlap(t *testing.T) {
	r := NewMemoryRetriever()
	r.Add("apply pressure to a bleeding cut and tell an adult", "first-aid")
	r.Add("never share your address with a stranger online", "stranger-safety")
	r.Add("dial 911 in an emergency", "emergency")

	snippets, err := r.Retrieve(context.Background(), "my cut is bleeding", 2)
	if err != nil {
		t.Fatalf("Retrieve err: %v", err)
	}
	if len(snippets) == 0 {
		t.Fatal("expected at least one snippet")
	}
	if snippets[0].Source != "first-aid" {
		t.Fatalf("expected first-aid ranked first, got %q", snippets[0].Source)
	}
	for i := 1; i < len(snippets); i++ {
		if snippets[i].Score > snippets[i-1].Score {
			t.Fatalf("snippets out of order at %d", i)
		}
	}
}

func TestRetrieveNoOverlap(t *testing.T) {
	r := NewMemoryRetriever()
	r.Add("dial 911 in an emergency", "emergency")

	snippets, err := r.Retrieve(context.Background(), "zzz qqq", 3)
	if err != nil {
		t.Fatalf("Retrieve err: %v", err)
	}
	if len(snippets) != 0 {
		t.Fatalf("expected no snippets, got %v", snippets)
	}
}

func TestRetrieveZeroK(t *testing.T) {
	r := NewMemoryRetriever()
	r.Add("dial 911 in an emergency", "emergency")

	snippets, err := r.Retrieve(context.Background(), "emergency", 0)
	if err != nil || snippets != nil {
		t.Fatalf("k=0 should be a silent no-op, got %v, %v", snippets, err)
	}
}
