package cbeardy

// Engine owns the whole training-side state: the string pool, the node
// and start tables and every slab pool. There is no package-level
// mutable state; independent engines are fully isolated.

import (
	"fmt"
	"io"
)

type Engine struct {
	strings    *stringPool
	nodeTable  []int32 // nodeRef heads
	startTable []int32 // hashExit heads
	numStart   int32

	nodePool     *mempool[node]
	hashExitPool *mempool[hashExit]
	exitPools    [len(denseCaps)]*mempool[exit]

	// Hash-mode exit tables are allocated outside the pools; track
	// them for the stats report.
	largeCount int
	largeTotal int
}

func NewEngine() *Engine {
	e := &Engine{
		strings:      newStringPool(),
		nodeTable:    make([]int32, markovTableSize),
		startTable:   make([]int32, startTableSize),
		nodePool:     newMempool[node](1),
		hashExitPool: newMempool[hashExit](1),
	}
	for i, c := range denseCaps {
		e.exitPools[i] = newMempool[exit](int(c))
	}
	return e
}

// Intern returns the canonical handle for a word. Equal bytes always
// yield the same handle.
func (e *Engine) Intern(word []byte) Word {
	return e.strings.intern(word)
}

// WordBytes returns the bytes of an interned word. Not valid after
// Export.
func (e *Engine) WordBytes(w Word) []byte {
	return e.strings.bytes(w)
}

// tableStats walks one bucket table and reports element count, filled
// slots, max chain depth and the sum of squared depths.
func tableStats(slots int, chain func(bucket int) int) (count, filled, maxDepth, totalDepth int) {
	for i := 0; i < slots; i++ {
		depth := chain(i)
		if depth > 0 {
			filled++
		}
		count += depth
		totalDepth += depth * depth
		if depth > maxDepth {
			maxDepth = depth
		}
	}
	return
}

func writeTableStats(w io.Writer, name string, slots, count, filled, maxDepth, totalDepth int) {
	fmt.Fprintf(w, "%s\n", name)
	fmt.Fprintf(w, "%d elements, %d/%d slots, load factor %f\n", count, filled, slots, float64(count)/float64(slots))
	fmt.Fprintf(w, "%d empty slots, %f usage\n", slots-filled, float64(filled)/float64(slots))
	if count > 0 {
		fmt.Fprintf(w, "Max depth %d, average depth %f\n", maxDepth, float64(totalDepth)/float64(count))
	}
	fmt.Fprintf(w, "Memory used by hash table structure: %dk\n\n", slots*4/1024)
}

// WriteStats reports table occupancy and pool usage, the shutdown
// report the trainer prints.
func (e *Engine) WriteStats(w io.Writer) {
	count, filled, maxDepth, totalDepth := tableStats(stringTableSize, func(i int) int {
		depth := 0
		for s := e.strings.buckets[i]; s != WORD_NIL; s = e.strings.entries[s].next {
			depth++
		}
		return depth
	})
	fmt.Fprintln(w)
	writeTableStats(w, "String table", stringTableSize, count, filled, maxDepth, totalDepth)

	count, filled, maxDepth, totalDepth = tableStats(startTableSize, func(i int) int {
		depth := 0
		for cur := e.startTable[i]; cur != 0; cur = e.hashExitPool.slot(cur)[0].next {
			depth++
		}
		return depth
	})
	writeTableStats(w, "Start table", startTableSize, count, filled, maxDepth, totalDepth)

	count, filled, maxDepth, totalDepth = tableStats(markovTableSize, func(i int) int {
		depth := 0
		for cur := nodeRef(e.nodeTable[i]); cur != 0; cur = e.node(cur).bucketNext {
			depth++
		}
		return depth
	})
	writeTableStats(w, "Node table", markovTableSize, count, filled, maxDepth, totalDepth)

	fmt.Fprintf(w, "Node pool: %d, %dk mem usage\n", e.nodePool.count, e.nodePool.memUsage()/1024)
	fmt.Fprintf(w, "Hash exit pool: %d, %dk mem usage\n", e.hashExitPool.count, e.hashExitPool.memUsage()/1024)
	for i, c := range denseCaps {
		fmt.Fprintf(w, "%d exits pool: %d, %dk mem usage\n", c, e.exitPools[i].count, e.exitPools[i].memUsage()/1024)
	}
	fmt.Fprintf(w, "Larger nodes: %d, %dk mem usage\n", e.largeCount, e.largeTotal*4/1024)
	fmt.Fprintf(w, "String pool: %d strings, %dk mem usage\n", e.strings.numStrings(), e.strings.memUsed/1024)
}

// Dump prints the whole model in readable form: every start entry,
// then every node with its raw exit counts. Debugging only; not valid
// after Export.
func (e *Engine) Dump(w io.Writer) {
	fmt.Fprintf(w, "START\n")
	for i := 0; i < startTableSize; i++ {
		for cur := e.startTable[i]; cur != 0; {
			en := e.hashExitPool.slot(cur)[0]
			fmt.Fprintf(w, "  %d ->", en.count)
			e.dumpWords(w, e.node(en.node))
			fmt.Fprintln(w)
			cur = en.next
		}
	}

	for i := 0; i < markovTableSize; i++ {
		for cur := nodeRef(e.nodeTable[i]); cur != 0; {
			nd := e.node(cur)
			fmt.Fprintf(w, "NODE")
			e.dumpWords(w, nd)
			fmt.Fprintln(w)
			e.forEachExit(nd, func(target nodeRef, count int32) {
				fmt.Fprintf(w, "  %d ->", count)
				e.dumpWords(w, e.node(target))
				fmt.Fprintln(w)
			})
			cur = nd.bucketNext
		}
	}
}

func (e *Engine) dumpWords(w io.Writer, nd *node) {
	for _, word := range nd.words {
		fmt.Fprintf(w, " %s", e.strings.bytes(word))
	}
}
