// Package catalog provides the authoritative in-memory index of MITRE ATT&CK
// techniques used to validate and enrich technique mappings.
//
// A Catalog is built once from a parsed STIX bundle (or any technique slice)
// and is read-only afterward, so it can be shared across concurrent chunk
// workers without locking. Every mapping that leaves the pipeline references
// a technique id present in the catalog for the loaded framework version.
package catalog
