// Package wishbone implements a single-beat transactor for a Wishbone
// classic bus slave in the pipelined-acknowledge profile.
//
// Every transaction takes exactly two clock edges:
//
//	edge 1: cyc=1 stb=1 (we, data for writes)  -> device must answer ack=1, stall=0
//	edge 2: all request lines low              -> device must answer ack=0, stall=0
//
// The second edge is the idle check: an acknowledge that lingers, or a stall
// that appears with no request pending, is a protocol fault even though the
// transaction itself completed. Writes additionally require the device's data
// output to read back the written word once the idle edge has passed.
//
// Bus never tolerates a deviation. Each violation comes back as a
// *ProtocolError naming the fault, the operation, the edge it happened on and
// the output pins the device presented.
package wishbone
