// Package sim provides the clock-edge stepping primitive the bench is built
// on.
//
// A device under test is anything implementing Stepper: given the input pins
// for the coming edge it advances one full clock period and returns the output
// pins visible after that edge. Bench wraps a Stepper with a monotonic edge
// counter and an optional per-edge hook, which is all the bookkeeping the bus
// transactor needs.
//
// Everything here is single-threaded and synchronous: an edge has fully
// happened when Tick returns.
package sim
