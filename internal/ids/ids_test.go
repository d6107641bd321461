package ids

import (
	"sync"
	"testing"
)

func TestNewProducesValidSortedIDs(t *testing.T) {
	first := New()
	second := New()
	if !Valid(first) || !Valid(second) {
		t.Fatalf("expected valid ids, got %q %q", first, second)
	}
	if first >= second {
		t.Fatalf("ids must be monotonic within a process: %q then %q", first, second)
	}
}

func TestNewIsSafeForConcurrentUse(t *testing.T) {
	const n = 200
	var wg sync.WaitGroup
	seen := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- New()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[string]struct{}, n)
	for id := range seen {
		if _, dup := unique[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		unique[id] = struct{}{}
	}
}

func TestValidRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not-an-id", "01HZXMPL0USR00000000000"} {
		if Valid(raw) {
			t.Fatalf("%q should be invalid", raw)
		}
	}
}
