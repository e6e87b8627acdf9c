package mtrie

import (
	"errors"
	"testing"
)

func TestNewTableRequiresInitGlobal(t *testing.T) {
	if globalOpen {
		t.Fatalf("globalOpen must start false for this test")
	}

	if _, err := NewTable[string, string]("pretest", nil); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("NewTable before InitGlobal = %v, want ErrNotInitialized", err)
	}

	if err := InitGlobal(); err != nil {
		t.Fatalf("InitGlobal: %v", err)
	}
	defer func() {
		if err := TermGlobal(); err != nil {
			t.Fatalf("TermGlobal: %v", err)
		}
	}()

	if err := InitGlobal(); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second InitGlobal = %v, want ErrAlreadyInitialized", err)
	}

	tbl, err := NewTable[string, string]("lifecycle-test", nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	found, err := LookupTable[string, string]("lifecycle-test")
	if err != nil || found != tbl {
		t.Fatalf("LookupTable = (%v,%v), want the table just created", found, err)
	}

	if err := FreeTable("lifecycle-test"); err != nil {
		t.Fatalf("FreeTable: %v", err)
	}
	if _, err := LookupTable[string, string]("lifecycle-test"); !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("LookupTable after FreeTable = %v, want ErrTableNotFound", err)
	}
}

func TestTableTraverseRulesForwardsToShadow(t *testing.T) {
	if err := InitGlobal(); err != nil {
		t.Fatalf("InitGlobal: %v", err)
	}
	defer func() {
		if err := TermGlobal(); err != nil {
			t.Fatalf("TermGlobal: %v", err)
		}
	}()

	tbl, err := NewTable[string, string]("traverse-test", nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	vrf, err := tbl.VRF(1)
	if err != nil {
		t.Fatalf("VRF: %v", err)
	}
	if err := vrf.Insert(ip4(10, 0, 0, 0), 8, "ten"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	var got []string
	tbl.TraverseRules(1, func(vrf uint16, addr uint32, masklen uint8, data string) {
		got = append(got, data)
	})

	if len(got) != 1 || got[0] != "ten" {
		t.Fatalf("TraverseRules = %v, want [ten]", got)
	}
}

func TestArenaStatsCrossChecksLiveBitmap(t *testing.T) {
	a := NewArena4[int](nil)
	n, err := a.allocSmall()
	if err != nil {
		t.Fatalf("allocSmall: %v", err)
	}

	if live, _, _ := a.Stats(); live != 1 {
		t.Fatalf("Stats live = %d, want 1", live)
	}

	a.freeSmallNode(n)
	if live, _, _ := a.Stats(); live != 0 {
		t.Fatalf("Stats live after free = %d, want 0", live)
	}
}
