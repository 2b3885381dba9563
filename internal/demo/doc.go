// Package demo is the component tree served by `kinesis serve`.
//
// The tree is a board with a clock and a row of counters:
//
//	/        Board    click resets every counter
//	/0       Clock    re-renders itself on every tick via its UpdateFunc
//	/1..n    Counter  click increments, ArrowUp/ArrowDown step, input sets
//
// Counter events re-render only the counter. A reset on the board
// re-renders each counter as a Partial render of the board, so the
// clock is left alone.
package demo
