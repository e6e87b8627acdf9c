package mtrie

import "testing"

func newTestTree4(t *testing.T) (*Tree4[string], *ShadowTable[string]) {
	t.Helper()
	arena := NewArena4[string](nil)
	shadow := NewShadowTable[string](nil)
	tree, err := NewTree4[string](arena, shadow, 1, nil)
	if err != nil {
		t.Fatalf("NewTree4: %v", err)
	}
	return tree, shadow
}

func TestTree4SearchMiss(t *testing.T) {
	tree, _ := newTestTree4(t)
	if _, ok := tree.Search(ip4(8, 8, 8, 8)); ok {
		t.Fatalf("expected a miss on an empty tree")
	}
}

func TestTree4DefaultRoute(t *testing.T) {
	tree, _ := newTestTree4(t)

	if err := tree.Insert(0, 0, "default"); err != nil {
		t.Fatalf("Insert /0: %v", err)
	}
	if got, ok := tree.Search(ip4(203, 0, 113, 1)); !ok || got != "default" {
		t.Fatalf("Search = (%q,%v), want (default,true)", got, ok)
	}

	if err := tree.Insert(ip4(203, 0, 113, 0), 24, "more-specific"); err != nil {
		t.Fatalf("Insert /24: %v", err)
	}
	if got, ok := tree.Search(ip4(203, 0, 113, 1)); !ok || got != "more-specific" {
		t.Fatalf("Search = (%q,%v), want (more-specific,true)", got, ok)
	}
	if got, ok := tree.Search(ip4(198, 51, 100, 1)); !ok || got != "default" {
		t.Fatalf("Search outside /24 = (%q,%v), want fallback to default", got, ok)
	}

	if _, ok := tree.Remove(0, 0); !ok {
		t.Fatalf("Remove /0 should have found the default route")
	}
	if _, ok := tree.Remove(0, 0); ok {
		t.Fatalf("Remove /0 a second time should report not-found")
	}
}

func TestTree4InsertAcrossLevelsAndRemoveDetachesChild(t *testing.T) {
	tree, _ := newTestTree4(t)

	tenNet := ip4(10, 0, 0, 0)
	tenOneNet := ip4(10, 1, 0, 0)

	if err := tree.Insert(tenNet, 8, "ten"); err != nil {
		t.Fatalf("Insert /8: %v", err)
	}
	if err := tree.Insert(tenOneNet, 16, "ten-one"); err != nil {
		t.Fatalf("Insert /16: %v", err)
	}

	if got, ok := tree.Search(ip4(10, 1, 2, 3)); !ok || got != "ten-one" {
		t.Fatalf("Search 10.1.2.3 = (%q,%v), want (ten-one,true)", got, ok)
	}
	if got, ok := tree.Search(ip4(10, 2, 3, 4)); !ok || got != "ten" {
		t.Fatalf("Search 10.2.3.4 = (%q,%v), want (ten,true) via /8 fallback", got, ok)
	}

	if live, _, _ := tree.arena.Stats(); live != 1 {
		t.Fatalf("expected exactly one small node live, got %d", live)
	}

	removed, ok := tree.Remove(tenOneNet, 16)
	if !ok || removed != "ten-one" {
		t.Fatalf("Remove /16 = (%q,%v), want (ten-one,true)", removed, ok)
	}

	if live, _, _ := tree.arena.Stats(); live != 0 {
		t.Fatalf("expected the /16's node to be freed, got %d live", live)
	}
	if got, ok := tree.Search(ip4(10, 1, 2, 3)); !ok || got != "ten" {
		t.Fatalf("Search 10.1.2.3 after removing /16 = (%q,%v), want fallback to (ten,true)", got, ok)
	}
}

func TestTree4RemoveResurrectsOverlappingPrefixAtSameLevel(t *testing.T) {
	tree, _ := newTestTree4(t)

	tenNet := ip4(10, 0, 0, 0)
	tenHiNet := ip4(10, 128, 0, 0)

	if err := tree.Insert(tenNet, 8, "ten"); err != nil {
		t.Fatalf("Insert /8: %v", err)
	}
	if err := tree.Insert(tenHiNet, 9, "ten-hi"); err != nil {
		t.Fatalf("Insert /9: %v", err)
	}

	if got, ok := tree.Search(tenHiNet); !ok || got != "ten-hi" {
		t.Fatalf("Search 10.128.0.0 = (%q,%v), want (ten-hi,true)", got, ok)
	}
	if got, ok := tree.Search(tenNet); !ok || got != "ten" {
		t.Fatalf("Search 10.0.0.0 = (%q,%v), want (ten,true)", got, ok)
	}

	removed, ok := tree.Remove(tenHiNet, 9)
	if !ok || removed != "ten-hi" {
		t.Fatalf("Remove /9 = (%q,%v), want (ten-hi,true)", removed, ok)
	}

	if got, ok := tree.Search(tenHiNet); !ok || got != "ten" {
		t.Fatalf("Search 10.128.0.0 after removing /9 = (%q,%v), want resurrected (ten,true)", got, ok)
	}
	if got, ok := tree.Search(tenNet); !ok || got != "ten" {
		t.Fatalf("Search 10.0.0.0 after removing /9 = (%q,%v), want (ten,true) unaffected", got, ok)
	}
}

func TestTree4RemoveUnknownPrefix(t *testing.T) {
	tree, _ := newTestTree4(t)
	if _, ok := tree.Remove(ip4(172, 16, 0, 0), 12); ok {
		t.Fatalf("Remove of a never-inserted prefix should report not-found")
	}
}
