package cbeardy

// Slab allocation for the node, exit and start stores. Each pool hands
// out slots of one fixed size; everything lives until process exit.

import "unsafe"

// poolBlockSize is the size of the blocks carved into slots.
const poolBlockSize = 65536

// mempool hands out slots of slotLen elements of type T, carved from
// large uniform blocks. Freed slots are kept on a free list of slot
// references and reused before a new block is requested; blocks are
// never returned to the runtime. References are 1-based so that a
// zeroed bucket table reads as "no entry".
type mempool[T any] struct {
	slotLen  int
	perBlock int
	slotSize int // in bytes, for the stats report
	blocks   [][]T
	freeList []int32
	used     int32 // slots carved from blocks so far
	count    int   // live slots
}

func newMempool[T any](slotLen int) *mempool[T] {
	var zero T
	size := slotLen * int(unsafe.Sizeof(zero))
	per := poolBlockSize / size
	if per < 1 {
		per = 1
	}
	return &mempool[T]{slotLen: slotLen, perBlock: per, slotSize: size}
}

// alloc returns a slot reference and its storage. Storage reuses freed
// slots verbatim; the caller overwrites what it needs.
func (p *mempool[T]) alloc() (int32, []T) {
	p.count++
	if n := len(p.freeList); n > 0 {
		ref := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return ref, p.slot(ref)
	}
	if int(p.used) == len(p.blocks)*p.perBlock {
		p.blocks = append(p.blocks, make([]T, p.perBlock*p.slotLen))
	}
	p.used++
	return p.used, p.slot(p.used)
}

// free returns a slot to the pool.
func (p *mempool[T]) free(ref int32) {
	p.freeList = append(p.freeList, ref)
	p.count--
}

// slot returns the storage of a previously allocated reference.
func (p *mempool[T]) slot(ref int32) []T {
	i := int(ref - 1)
	b := p.blocks[i/p.perBlock]
	j := (i % p.perBlock) * p.slotLen
	return b[j : j+p.slotLen : j+p.slotLen]
}

// memUsage is the live working set of the pool in bytes.
func (p *mempool[T]) memUsage() int {
	return p.count * p.slotSize
}
