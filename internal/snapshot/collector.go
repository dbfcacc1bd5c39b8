package snapshot

import "context"

// Fact is one named text artifact produced by a collector.
type Fact struct {
	// File is the fact file name inside the snapshot directory.
	File string
	// Content is the full file content. Empty content still produces the
	// file; a fact that should not exist at all is simply not returned.
	Content string
}

// Collector gathers one category of diagnostic text.
// Collect never returns an error: facts that cannot be gathered are either
// omitted or returned with empty content, depending on the collector's
// contract.
type Collector interface {
	Name() string
	Collect(ctx context.Context) []Fact
}
