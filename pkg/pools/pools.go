// Package pools provides object pooling for reducing GC pressure.
//
// The UArr encoder and the WAL record writer both assemble records in
// memory before a single write, so short-lived byte buffers dominate
// allocation on the hot path:
//
//   - BytePool: size-class based byte slice pooling
//   - BufferBuilder: little-endian buffer construction with pooling
package pools
