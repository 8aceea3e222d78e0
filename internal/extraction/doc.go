// Package extraction implements the hybrid parameter-extraction engine.
//
// Extraction is deterministic first: each parameter's category routes it
// to a direct report-field read, a keyword flag check, or a computed
// calculator over the typed report. Semantic retrieval runs alongside to
// supply similarity evidence for confidence scoring, and an optional
// generative fallback can recover values the structured path missed.
// Confidence is the product of method weight, type certainty, coverage
// and a similarity boost; the fallback's confidence is hard-capped so a
// generative answer never outranks a deterministic one.
package extraction
