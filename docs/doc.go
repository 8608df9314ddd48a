// Package docs loads the LIKO-12 API documentation and answers questions
// about it.
//
// A [Dataset] is decoded once with [LoadDataset]. [BuildIndex] flattens it
// into an [Index] of lowercase method aliases, which [Index.Resolve] matches
// user queries against. A [Formatter] turns the resolved entry into a
// [Card], and a [Searcher] offers full-text search over the same methods.
//
// Everything except loading is free of I/O, and the built Index, Searcher
// and Formatter are safe for concurrent use.
package docs
