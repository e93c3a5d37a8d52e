// Package layout decides how dataset raw data is laid out and moves it
// between selections and a byte arena.
//
// # Layout Decisions
//
// [Thresholds.Decide] picks a layout class from a byte volume:
//
//   - Compact (class 0): below MaxCompactBytes (32 KiB). Data is kept with
//     the object itself. Implemented by [CompactStore].
//
//   - Contiguous (class 1): below MaxContiguousBytes (512 KiB). Data is one
//     block in the arena. Implemented by [ContiguousStore].
//
//   - Chunked (class 2): everything larger, and every dataset whose max
//     shape differs from its shape. Data is divided into fixed-size chunks
//     that pass through a filter pipeline and are indexed by chunk origin.
//     Implemented by [ChunkedStore].
//
// [Thresholds.ChunkDims] guesses chunk dimensions as an N-dimensional cube
// between MinChunkBytes and MaxChunkBytes, rounded up to a power of two.
// [CheckCompatibility] reports every conflict between a layout, a shape,
// chunk dims and a max shape at once.
//
// # Storage Handlers
//
// Use [New] to create the handler for a layout class:
//
//	st, err := layout.New(backend, layout.Params{Class: layout.Chunked, ...})
//	err = st.Write(selection, packed)
//	data, err := st.Read(selection)
//
// Reads and writes walk the selection as contiguous runs along the last
// axis. For chunked data each run is further split at chunk boundaries, and
// every touched chunk is decoded and re-encoded once per call.
//
// Only chunked storage can change extent. Shrinking drops the chunks that
// fall outside and clears the outside part of chunks that straddle the new
// edge.
package layout
