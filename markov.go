package cbeardy

// The Markov graph: node table, adaptive exit containers and the start
// table, plus the trainer that feeds them.

// nodeRef addresses a node in the engine's node pool. 0 is nil.
type nodeRef int32

// exit is an in-memory outgoing edge in dense mode.
type exit struct {
	node  nodeRef
	count int32
}

// hashExit is a chained (target, count) entry. It backs both the
// hash-mode exit tables and the start table.
type hashExit struct {
	next  int32 // hashExit pool reference
	node  nodeRef
	count int32
}

// node is a state of the chain, keyed by ORDER interned words. The
// exit container is discriminated by numExits: a dense slab slot up to
// maxDenseExits, a chained hash table above. Readers must inspect
// numExits before touching either field.
type node struct {
	bucketNext nodeRef
	words      [ORDER]Word
	numExits   int32
	exitSlot   int32   // dense mode: slot in the matching size-class pool
	table      []int32 // hash mode: bucket heads of hashExit references
	exportOff  int64   // assigned by the exporter's first pass
}

// denseCaps are the dense exit capacities, one slab pool each.
var denseCaps = [...]int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 32, 64, 128}

// denseCap returns the dense capacity holding n exits.
func denseCap(n int32) int32 {
	switch {
	case n <= 16:
		return n
	case n <= 32:
		return 32
	case n <= 64:
		return 64
	default:
		return 128
	}
}

// denseClass returns the pool index for a dense capacity.
func denseClass(cap int32) int {
	switch {
	case cap <= 16:
		return int(cap) - 1
	case cap == 32:
		return 16
	case cap == 64:
		return 17
	default:
		return 18
	}
}

// node resolves a reference to its storage. Pool blocks never move, so
// the pointer stays valid for the life of the engine.
func (e *Engine) node(ref nodeRef) *node {
	return &e.nodePool.slot(int32(ref))[0]
}

// denseExits returns the live dense exits of nd.
func (e *Engine) denseExits(nd *node) []exit {
	pool := e.exitPools[denseClass(denseCap(nd.numExits))]
	return pool.slot(nd.exitSlot)[:nd.numExits]
}

// getNode finds the node keyed by words, creating it on first sight.
func (e *Engine) getNode(words [ORDER]Word) nodeRef {
	h := hashWords(&words) & (markovTableSize - 1)
	for ref := nodeRef(e.nodeTable[h]); ref != 0; {
		nd := e.node(ref)
		if nd.words == words {
			return ref
		}
		ref = nd.bucketNext
	}

	ref, slot := e.nodePool.alloc()
	slot[0] = node{bucketNext: nodeRef(e.nodeTable[h]), words: words}
	e.nodeTable[h] = int32(ref)
	return nodeRef(ref)
}

// incrementExit bumps the count of an existing edge from nd to target.
// Reports false if the edge does not exist yet.
func (e *Engine) incrementExit(nd *node, target nodeRef) bool {
	if nd.numExits == 0 {
		return false
	}
	if nd.numExits > maxDenseExits {
		h := hashNode(target) & uint32(len(nd.table)-1)
		for cur := nd.table[h]; cur != 0; {
			en := &e.hashExitPool.slot(cur)[0]
			if en.node == target {
				en.count++
				return true
			}
			cur = en.next
		}
	} else {
		exits := e.denseExits(nd)
		for i := range exits {
			if exits[i].node == target {
				exits[i].count++
				return true
			}
		}
	}
	return false
}

// growExits makes room for one more exit when nd's container is full:
// the next size class while dense, conversion to a hash table at
// maxDenseExits, doubling of the table at each power of two beyond.
func (e *Engine) growExits(nd *node) {
	switch {
	case nd.numExits == 0:
		nd.exitSlot, _ = e.exitPools[0].alloc()

	case nd.numExits < maxDenseExits:
		oldPool := e.exitPools[denseClass(denseCap(nd.numExits))]
		newPool := e.exitPools[denseClass(denseCap(nd.numExits+1))]
		slot, dst := newPool.alloc()
		copy(dst, oldPool.slot(nd.exitSlot)[:nd.numExits])
		oldPool.free(nd.exitSlot)
		nd.exitSlot = slot

	case nd.numExits == maxDenseExits:
		// Convert to a hash table with twice the dense capacity.
		pool := e.exitPools[denseClass(maxDenseExits)]
		exits := pool.slot(nd.exitSlot)
		nd.table = make([]int32, 2*maxDenseExits)
		mask := uint32(len(nd.table) - 1)
		for _, x := range exits {
			h := hashNode(x.node) & mask
			ref, slot := e.hashExitPool.alloc()
			slot[0] = hashExit{next: nd.table[h], node: x.node, count: x.count}
			nd.table[h] = ref
		}
		pool.free(nd.exitSlot)
		nd.exitSlot = 0
		e.largeCount++
		e.largeTotal += len(nd.table)

	default:
		// Double the table and rehash each chain in place. An entry
		// either stays in bucket i or moves to bucket i+oldLen, so the
		// scan never revisits a moved entry.
		oldLen := len(nd.table)
		table := make([]int32, 2*oldLen)
		copy(table, nd.table)
		mask := uint32(len(table) - 1)
		for i := 0; i < oldLen; i++ {
			insert := &table[i]
			for cur := *insert; cur != 0; {
				en := &e.hashExitPool.slot(cur)[0]
				if h := hashNode(en.node) & mask; int(h) != i {
					*insert = en.next
					en.next = table[h]
					table[h] = cur
				} else {
					insert = &en.next
				}
				cur = *insert
			}
		}
		nd.table = table
		e.largeTotal += oldLen + oldLen/2
	}
}

// addExit records one observed transition from -> to.
func (e *Engine) addExit(from, to nodeRef) {
	nd := e.node(from)
	if e.incrementExit(nd, to) {
		return
	}

	if nd.numExits <= 16 || isPowerOf2(nd.numExits) {
		e.growExits(nd)
	}

	nd.numExits++
	if nd.numExits > maxDenseExits {
		h := hashNode(to) & uint32(len(nd.table)-1)
		ref, slot := e.hashExitPool.alloc()
		slot[0] = hashExit{next: nd.table[h], node: to, count: 1}
		nd.table[h] = ref
	} else {
		pool := e.exitPools[denseClass(denseCap(nd.numExits))]
		pool.slot(nd.exitSlot)[nd.numExits-1] = exit{node: to, count: 1}
	}
}

// forEachExit visits nd's exits: array order in dense mode, bucket
// then chain order in hash mode. The exporter depends on this order
// being stable between its two passes.
func (e *Engine) forEachExit(nd *node, f func(target nodeRef, count int32)) {
	if nd.numExits > maxDenseExits {
		for _, head := range nd.table {
			for cur := head; cur != 0; {
				en := e.hashExitPool.slot(cur)[0]
				f(en.node, en.count)
				cur = en.next
			}
		}
	} else if nd.numExits > 0 {
		for _, x := range e.denseExits(nd) {
			f(x.node, x.count)
		}
	}
}

// addStart counts one sentence beginning at ref.
func (e *Engine) addStart(ref nodeRef) {
	h := hashNode(ref) & (startTableSize - 1)
	for cur := e.startTable[h]; cur != 0; {
		en := &e.hashExitPool.slot(cur)[0]
		if en.node == ref {
			en.count++
			return
		}
		cur = en.next
	}

	entry, slot := e.hashExitPool.alloc()
	slot[0] = hashExit{next: e.startTable[h], node: ref, count: 1}
	e.startTable[h] = entry
	e.numStart++
}

// Train feeds one sentence of interned words into the model. Sentences
// shorter than ORDER become a single padded start node with no exits;
// everything else contributes a start entry, one exit per consecutive
// word pair, and a final exit into the terminal node whose last word
// is WORD_NIL.
func (e *Engine) Train(sentence []Word) {
	if len(sentence) == 0 {
		return
	}

	var key [ORDER]Word
	if len(sentence) < ORDER {
		copy(key[:], sentence)
		e.addStart(e.getNode(key))
		return
	}

	copy(key[:], sentence[:ORDER])
	cur := e.getNode(key)
	e.addStart(cur)

	for i := ORDER; i < len(sentence); i++ {
		copy(key[:], sentence[i-ORDER+1:i+1])
		next := e.getNode(key)
		e.addExit(cur, next)
		cur = next
	}

	copy(key[:], sentence[len(sentence)-ORDER+1:])
	key[ORDER-1] = WORD_NIL
	e.addExit(cur, e.getNode(key))
}
