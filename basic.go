package cbeardy

// Basic types and related constants.

// ORDER is the order of the Markov model: the number of consecutive
// words that make up one chain state.
const ORDER = 2

// Word is the stable identity of an interned word. Two Words compare
// equal if and only if the underlying byte strings are equal. Words
// are only meaningful together with the Engine that issued them.
type Word int32

// WORD_NIL is the null word. It pads sentences shorter than ORDER and
// terminates every sentence: a node whose last word is WORD_NIL has no
// exits and stops generation.
const WORD_NIL Word = 0

// Hash table sizes. All powers of two; hashes are masked, not reduced
// modulo.
const (
	markovTableSize = 1 << 24 // node table buckets
	startTableSize  = 1 << 21 // start table buckets
	stringTableSize = 1 << 22 // string pool buckets
)

// maxDenseExits is the largest exit count stored as a dense array.
// Nodes with more exits use a chained hash table keyed by target.
const maxDenseExits = 128

// Database file names, created in and opened from the working
// directory.
const (
	STRINGDB_FILE = "stringdb"
	MARKOVDB_FILE = "markovdb"
	STARTDB_FILE  = "startdb"
)

// On-disk record sizes. The file format packs fields at 4-byte
// alignment with no padding, so records are read and written field by
// field rather than overlaid on structs:
//
//	node:  strings [ORDER]int64, numExits int32
//	exit:  node int64, count int32 (cumulative)
//	start: numStartStates int32, then numStartStates exits
//
// All integers are little-endian. Offsets are absolute byte offsets
// into stringdb and markovdb; a string offset of -1 is the null word.
const (
	exportNodeSize = ORDER*8 + 4
	exportExitSize = 8 + 4
)

// NULL_OFFSET is the exported offset of WORD_NIL.
const NULL_OFFSET int64 = -1

// Input limits for the trainer. A longer word is truncated, a longer
// sentence is trained in chunks; both are reported.
const (
	MAX_WORD_LEN   = 8191
	MAX_SENT_WORDS = 8192
)
