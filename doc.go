// Package convo holds the provider-agnostic conversation model (system, human, AI and tool
// turns with typed content blocks) and the pure transformations every provider adapter needs:
// Merge folds adjacent same-role turns so two-role protocols accept them, and Aggregate
// reconstructs streamed AI chunks into complete tool calls.
//
// All operations copy their input; returned values never alias the caller's slices or maps.
package convo
