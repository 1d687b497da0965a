// Package mempool implements fixed-block memory pools carved from one
// owned arena.
//
// Each pool lends equally sized blocks tracked by an occupancy bit-vector;
// the bit-vector is the only bookkeeping — no free lists, no per-block
// headers. Release recovers the owning pool and block index from the
// block's position inside the arena, so a foreign or stale slice can be
// rejected in O(1) without consulting any side table.
package mempool
