// Package attackmap maps free-text threat-intelligence reports to MITRE
// ATT&CK technique identifiers.
//
// The pipeline splits a document into bounded chunks, retrieves semantically
// relevant techniques per chunk from the catalog's vector index, asks a
// structured-generation capability to extract technique mappings with
// confidence and evidence, validates every mapping against the catalog, and
// aggregates per-chunk results into one deduplicated, confidence-ranked set.
//
// Basic usage:
//
//	cat, err := catalog.LoadSTIX(bundlePath)
//	retriever := retrieve.NewRetriever(embedder, index, cat)
//	extractor := mapping.NewExtractor(generator, cat)
//	pipeline, err := attackmap.New(retriever, extractor, cat,
//	    attackmap.WithConcurrency(4),
//	    attackmap.WithMinConfidence(0.5),
//	)
//	result, err := pipeline.MapDocument(ctx, chunks)
//
// Embedding, similarity search, and generation are consumed as capability
// interfaces; see the embed, vectorindex, and llm packages for the bundled
// implementations.
package attackmap
