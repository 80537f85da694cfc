// Package policy turns extracted intent signals, the grid condition and the
// current time into a concrete charging plan.
//
// The engine is a pure function of its Input. It performs no I/O, keeps no
// mutable state and may be evaluated concurrently without coordination. Recent
// plans from other drivers are accepted for explanation only: they are
// summarised in the reasoning and never change the selected option, points or
// times.
package policy
