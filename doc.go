// Package mortontable provides in-memory 2D point indexes.
//
// Two interchangeable implementations are included. MortonTable is a linear
// quadtree: entries live in flat slices sorted by the Morton code of their
// position, and range queries walk the sorted keyspace, splitting wasteful
// spans with the LITMAX/BIGMIN decomposition. Quadtree is a conventional
// adaptive quadtree with capacity-bounded leaves. Both satisfy Index, so one
// can stand in for the other and be benchmarked against it.
//
// Indexes are not safe for concurrent use. Callers that share an index across
// goroutines must serialize mutations and may only run queries concurrently
// while no mutation is in flight.
package mortontable
