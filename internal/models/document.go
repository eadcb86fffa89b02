// Package models defines core data structures for documents, chunks, and embeddings.
package models

// Document is the extraction result for one input file: an identifier plus
// the raw text pulled out of it. Documents are ephemeral; they exist only
// while a file moves through the pipeline.
type Document struct {
	Path string `json:"path"`
	Text string `json:"text"`
}

// Chunk is one contiguous span of segmented text, in source order.
type Chunk struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// EmbeddingRecord associates a vector with the chunk it was generated from.
// ChunkIndex keeps the chunk's original position even when earlier chunks
// failed to embed and produced no record, so a downstream consumer that
// needs positional alignment can restore it.
type EmbeddingRecord struct {
	ChunkID    string    `json:"chunk_id"`
	ChunkIndex int       `json:"chunk_index"`
	Vector     []float32 `json:"vector"`
}
