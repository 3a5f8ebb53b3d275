package cbeardy

// Common helpers plus trainer and exit-container tests.

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func trainStrings(e *Engine, sentence ...string) {
	words := make([]Word, len(sentence))
	for i, s := range sentence {
		words[i] = e.Intern([]byte(s))
	}
	e.Train(words)
}

// testKey builds a node key; "" stands for the null word.
func testKey(e *Engine, a, b string) (key [ORDER]Word) {
	if a != "" {
		key[0] = e.Intern([]byte(a))
	}
	if b != "" {
		key[1] = e.Intern([]byte(b))
	}
	return
}

// lookupNode finds a node without creating it. Returns 0 if absent.
func lookupNode(e *Engine, a, b string) nodeRef {
	key := testKey(e, a, b)
	h := hashWords(&key) & (markovTableSize - 1)
	for ref := nodeRef(e.nodeTable[h]); ref != 0; {
		nd := e.node(ref)
		if nd.words == key {
			return ref
		}
		ref = nd.bucketNext
	}
	return 0
}

// mustNode is lookupNode or test failure.
func mustNode(t *testing.T, e *Engine, a, b string) nodeRef {
	t.Helper()
	ref := lookupNode(e, a, b)
	if ref == 0 {
		t.Fatalf("node (%q,%q) missing", a, b)
	}
	return ref
}

// exitCounts collects a node's exits as a target->count map, failing
// on duplicate targets.
func exitCounts(t *testing.T, e *Engine, from nodeRef) map[nodeRef]int32 {
	t.Helper()
	got := map[nodeRef]int32{}
	e.forEachExit(e.node(from), func(target nodeRef, count int32) {
		if _, dup := got[target]; dup {
			t.Fatalf("duplicate exit to node %d", target)
		}
		got[target] = count
	})
	return got
}

func startCount(e *Engine, ref nodeRef) int32 {
	h := hashNode(ref) & (startTableSize - 1)
	for cur := e.startTable[h]; cur != 0; {
		en := e.hashExitPool.slot(cur)[0]
		if en.node == ref {
			return en.count
		}
		cur = en.next
	}
	return 0
}

func TestTrainSimple(t *testing.T) {
	e := NewEngine()
	trainStrings(e, "the", "cat", "sat")

	theCat := mustNode(t, e, "the", "cat")
	catSat := mustNode(t, e, "cat", "sat")
	satEnd := mustNode(t, e, "sat", "")
	if e.nodePool.count != 3 {
		t.Errorf("expected 3 nodes; got %d", e.nodePool.count)
	}
	if got := startCount(e, theCat); got != 1 {
		t.Errorf("expected start count 1; got %d", got)
	}
	if e.numStart != 1 {
		t.Errorf("expected 1 start entry; got %d", e.numStart)
	}
	if got := exitCounts(t, e, theCat); len(got) != 1 || got[catSat] != 1 {
		t.Errorf("bad exits of (the,cat): %v", got)
	}
	if got := exitCounts(t, e, catSat); len(got) != 1 || got[satEnd] != 1 {
		t.Errorf("bad exits of (cat,sat): %v", got)
	}
	if nd := e.node(satEnd); nd.numExits != 0 {
		t.Errorf("terminal node has %d exits", nd.numExits)
	}
}

func TestTrainRepeated(t *testing.T) {
	e := NewEngine()
	trainStrings(e, "the", "cat")
	trainStrings(e, "the", "cat")

	theCat := mustNode(t, e, "the", "cat")
	catEnd := mustNode(t, e, "cat", "")
	if e.nodePool.count != 2 {
		t.Errorf("expected 2 nodes; got %d", e.nodePool.count)
	}
	if got := startCount(e, theCat); got != 2 {
		t.Errorf("expected start count 2; got %d", got)
	}
	if got := exitCounts(t, e, theCat); len(got) != 1 || got[catEnd] != 2 {
		t.Errorf("bad exits of (the,cat): %v", got)
	}
}

func TestTrainBranching(t *testing.T) {
	e := NewEngine()
	trainStrings(e, "a", "b", "c", "d")
	trainStrings(e, "a", "b", "x", "d")

	ab := mustNode(t, e, "a", "b")
	bc := mustNode(t, e, "b", "c")
	bx := mustNode(t, e, "b", "x")
	if got := startCount(e, ab); got != 2 {
		t.Errorf("expected start count 2; got %d", got)
	}
	if got := exitCounts(t, e, ab); len(got) != 2 || got[bc] != 1 || got[bx] != 1 {
		t.Errorf("bad exits of (a,b): %v", got)
	}
	// Both branches rejoin at (d,NIL) through their own (c|x,d) node.
	cd := mustNode(t, e, "c", "d")
	xd := mustNode(t, e, "x", "d")
	dEnd := mustNode(t, e, "d", "")
	if got := exitCounts(t, e, cd); len(got) != 1 || got[dEnd] != 1 {
		t.Errorf("bad exits of (c,d): %v", got)
	}
	if got := exitCounts(t, e, xd); len(got) != 1 || got[dEnd] != 1 {
		t.Errorf("bad exits of (x,d): %v", got)
	}
}

func TestTrainShort(t *testing.T) {
	e := NewEngine()
	trainStrings(e, "a")

	aEnd := mustNode(t, e, "a", "")
	if e.nodePool.count != 1 {
		t.Errorf("expected 1 node; got %d", e.nodePool.count)
	}
	if got := startCount(e, aEnd); got != 1 {
		t.Errorf("expected start count 1; got %d", got)
	}
	if nd := e.node(aEnd); nd.numExits != 0 {
		t.Errorf("padded start node has %d exits", nd.numExits)
	}
}

func TestTrainEmpty(t *testing.T) {
	e := NewEngine()
	e.Train(nil)
	if e.nodePool.count != 0 || e.numStart != 0 {
		t.Error("empty sentence must not change the model")
	}
}

func TestSharedTerminal(t *testing.T) {
	e := NewEngine()
	trainStrings(e, "x", "foo")
	trainStrings(e, "y", "bar", "foo")

	xFoo := mustNode(t, e, "x", "foo")
	barFoo := mustNode(t, e, "bar", "foo")
	fooEnd := mustNode(t, e, "foo", "")
	if got := exitCounts(t, e, xFoo); len(got) != 1 || got[fooEnd] != 1 {
		t.Errorf("bad exits of (x,foo): %v", got)
	}
	if got := exitCounts(t, e, barFoo); len(got) != 1 || got[fooEnd] != 1 {
		t.Errorf("bad exits of (bar,foo): %v", got)
	}
}

func TestTrainTwiceDoublesCounts(t *testing.T) {
	e := NewEngine()
	for i := 0; i < 2; i++ {
		trainStrings(e, "a", "b", "c", "d")
		trainStrings(e, "a", "b", "x", "d")
	}
	ab := mustNode(t, e, "a", "b")
	if got := startCount(e, ab); got != 4 {
		t.Errorf("expected start count 4; got %d", got)
	}
	for target, count := range exitCounts(t, e, ab) {
		if count != 2 {
			t.Errorf("exit to %d: expected count 2; got %d", target, count)
		}
	}
}

// Grow one node's fan-out across every capacity boundary and make
// sure no (target, count) pair is lost or duplicated on the way.
func TestExitGrowth(t *testing.T) {
	e := NewEngine()
	src := e.getNode(testKey(e, "src", "node"))

	const n = 300
	targets := make([]nodeRef, n)
	for i := range targets {
		targets[i] = e.getNode(testKey(e, fmt.Sprintf("t%d", i), ""))
	}

	checkpoints := map[int]bool{
		1: true, 2: true, 3: true, 15: true, 16: true, 17: true,
		32: true, 33: true, 64: true, 65: true, 128: true, 129: true,
		200: true, 256: true, 257: true, n: true,
	}
	for i := 0; i < n; i++ {
		e.addExit(src, targets[i])
		size := i + 1
		if !checkpoints[size] {
			continue
		}
		if got := e.node(src).numExits; got != int32(size) {
			t.Fatalf("after %d exits: numExits = %d", size, got)
		}
		got := exitCounts(t, e, src)
		if len(got) != size {
			t.Fatalf("after %d exits: %d distinct targets", size, len(got))
		}
		for j := 0; j < size; j++ {
			if got[targets[j]] != 1 {
				t.Fatalf("after %d exits: target %d has count %d", size, j, got[targets[j]])
			}
		}
	}

	// Increments must find existing pairs in hash mode too.
	for i := 0; i < n; i++ {
		e.addExit(src, targets[i])
	}
	got := exitCounts(t, e, src)
	if len(got) != n {
		t.Fatalf("expected %d distinct targets; got %d", n, len(got))
	}
	for i, target := range targets {
		if got[target] != 2 {
			t.Errorf("target %d: expected count 2; got %d", i, got[target])
		}
	}
	if got := e.node(src).numExits; got != n {
		t.Errorf("expected numExits %d; got %d", n, got)
	}
}

// The dense slots released by container migration must circulate back
// through the size-class pools.
func TestExitSlabReuse(t *testing.T) {
	e := NewEngine()
	a := e.getNode(testKey(e, "a", "a"))
	b := e.getNode(testKey(e, "b", "b"))
	t1 := e.getNode(testKey(e, "t1", ""))
	t2 := e.getNode(testKey(e, "t2", ""))

	e.addExit(a, t1)
	freed := e.node(a).exitSlot
	e.addExit(a, t2) // a migrates from the 1-exit class to the 2-exit class
	e.addExit(b, t1) // b must reuse a's freed 1-exit slot
	if got := e.node(b).exitSlot; got != freed {
		t.Errorf("expected b to reuse freed 1-exit slot %d; got %d", freed, got)
	}
	if e.exitPools[0].count != 1 {
		t.Errorf("expected one live 1-exit slot; got %d", e.exitPools[0].count)
	}
	if got := exitCounts(t, e, a); len(got) != 2 || got[t1] != 1 || got[t2] != 1 {
		t.Errorf("bad exits of a: %v", got)
	}
	if got := exitCounts(t, e, b); len(got) != 1 || got[t1] != 1 {
		t.Errorf("bad exits of b: %v", got)
	}
}

func TestStatsAndDump(t *testing.T) {
	e := NewEngine()
	trainStrings(e, "the", "cat", "sat")

	var stats bytes.Buffer
	e.WriteStats(&stats)
	out := stats.String()
	for _, want := range []string{"String table", "Start table", "Node table", "Node pool", "String pool: 3 strings"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q", want)
		}
	}

	var dump bytes.Buffer
	e.Dump(&dump)
	for _, want := range []string{"START\n", "NODE the cat", "NODE cat sat", "1 -> cat sat"} {
		if !strings.Contains(dump.String(), want) {
			t.Errorf("dump output missing %q", want)
		}
	}
}
