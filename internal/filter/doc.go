// Package filter implements the chunk filter pipeline.
//
// Chunked datasets pass every chunk through a pipeline of filters. Writes
// apply the filters in order; reads apply them in reverse.
//
// # Supported Filters
//
//   - DEFLATE (ID 1): zlib compression via [Deflate], backed by
//     klauspost/compress.
//
//   - Shuffle (ID 2): Byte shuffling via [Shuffle]. Groups byte i of every
//     element together so the compressor that follows sees longer runs.
//
//   - Fletcher32 (ID 3): A 32-bit Fletcher checksum appended on encode and
//     verified on decode via [Fletcher32Filter].
//
//   - Zstandard (ID 32015): [Zstd], with pooled encoders and decoders.
//
//   - LZ4 (ID 32004): [LZ4] block compression with a size header.
//
//   - S2 (ID 257): [S2] block compression.
//
// # Filter Mask
//
// Compression stages are optional: when one fails, typically because the
// chunk did not shrink, it is skipped and bit i of the chunk's filter mask is
// set. Decoding skips every filter whose bit is set.
//
//	p, err := filter.NewPipeline(infos)
//	encoded, mask, err := p.Encode(chunk)
//	decoded, err := p.Decode(encoded, mask)
//
// [Plan] builds the stage list for a codec, level and shuffle setting.
package filter
