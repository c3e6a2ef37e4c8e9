// Package binding holds the resource bindings of a draw call and the
// helpers that compare and merge them.
//
// [Slots] is a fixed-capacity binding array with dirty-range tracking;
// [Splice] and the typed Copy helpers write partial binding lists into it.
// [ResourceState] snapshots the input-assembler bindings and
// [ResourceState.GetDifference] reports which of them changed.
package binding
