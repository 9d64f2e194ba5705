package repository

import "testing"

func TestTreapDeleteKeepsSizes(t *testing.T) {
	b := newBoard()
	for i, id := range []string{"a", "b", "c", "d", "e", "f"} {
		b.put(id, float64(i))
	}
	b.put("a", 10)
	b.put("c", 11)

	if got := nsize(b.root); got != len(b.byID) {
		t.Fatalf("tree size %d, want %d", got, len(b.byID))
	}
	if got := countGreater(b.root, 10); got != 1 {
		t.Fatalf("countGreater(10) = %d, want 1", got)
	}

	var out []Entry
	collectTopN(b.root, 3, &out)
	if len(out) != 3 || out[0].PlayerID != "c" || out[1].PlayerID != "a" || out[2].PlayerID != "f" {
		t.Fatalf("unexpected order %+v", out)
	}
}

func TestAssignRanks(t *testing.T) {
	entries := []Entry{{Score: 9}, {Score: 7}, {Score: 7}, {Score: 7}, {Score: 1}}
	assignRanks(entries)
	want := []int{1, 2, 2, 2, 5}
	for i, e := range entries {
		if e.Rank != want[i] {
			t.Fatalf("entry %d rank %d, want %d", i, e.Rank, want[i])
		}
	}
}
