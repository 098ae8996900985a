package signaling

import "testing"

func TestRegistry_RegisterAssignsUniqueIDs(t *testing.T) {
	r := NewRegistry()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		c := &Client{}
		id := r.Register(c)
		if id == "" {
			t.Fatalf("empty id")
		}
		if c.ID() != id {
			t.Fatalf("client id %q != returned id %q", c.ID(), id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
	if r.Len() != 100 {
		t.Fatalf("Len = %d, want 100", r.Len())
	}
}

func TestRegistry_LookupAndUnregister(t *testing.T) {
	r := NewRegistry()
	c := &Client{}
	id := r.Register(c)

	got, ok := r.Lookup(id)
	if !ok || got != c {
		t.Fatalf("Lookup(%q) = %v, %v", id, got, ok)
	}

	r.Unregister(id)
	if _, ok := r.Lookup(id); ok {
		t.Fatalf("expected lookup to fail after unregister")
	}

	// Unregistering an already-removed id is a no-op, not an error.
	r.Unregister(id)
	r.Unregister("never-registered")
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
}
