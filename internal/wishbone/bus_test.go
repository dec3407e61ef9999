package wishbone_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtcdate/internal/testutil"
	"github.com/roach88/rtcdate/internal/wishbone"
)

func requireFault(t *testing.T, err error, code wishbone.FaultCode, op wishbone.Op, edge uint64) *wishbone.ProtocolError {
	t.Helper()
	require.Error(t, err)
	require.True(t, wishbone.IsProtocolError(err), "want protocol fault, got %v", err)

	var pe *wishbone.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, code, pe.Code)
	assert.Equal(t, op, pe.Op)
	assert.Equal(t, edge, pe.Edge)
	return pe
}

func TestRead_TwoEdgeHandshake(t *testing.T) {
	dev := testutil.NewScriptedDevice(testutil.Ack(0x19700101), testutil.Idle(0x19700101))
	bus := wishbone.New(dev)

	v, err := bus.Read()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x19700101), v)
	assert.Equal(t, uint64(2), bus.Edges())

	require.Len(t, dev.Inputs, 2)
	assert.Equal(t, wishbone.Inputs{Cyc: true, Stb: true}, dev.Inputs[0])
	assert.Equal(t, wishbone.Inputs{}, dev.Inputs[1], "request must drop on the idle edge")
}

func TestRead_CapturesDataFromAckEdge(t *testing.T) {
	// Data changes on the idle edge; the acknowledged word is what counts.
	dev := testutil.NewScriptedDevice(testutil.Ack(0x20000229), testutil.Idle(0xdeadbeef))
	bus := wishbone.New(dev)

	v, err := bus.Read()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x20000229), v)
}

func TestRead_Faults(t *testing.T) {
	tests := []struct {
		name   string
		script []wishbone.Outputs
		code   wishbone.FaultCode
		edge   uint64
	}{
		{
			name:   "stall on request edge",
			script: []wishbone.Outputs{{Stall: true, Ack: true}},
			code:   wishbone.ErrCodeStall,
			edge:   1,
		},
		{
			name:   "missing ack",
			script: []wishbone.Outputs{{}},
			code:   wishbone.ErrCodeMissingAck,
			edge:   1,
		},
		{
			name:   "lingering ack",
			script: []wishbone.Outputs{testutil.Ack(1), testutil.Ack(1)},
			code:   wishbone.ErrCodeLingeringAck,
			edge:   2,
		},
		{
			name:   "stall on idle edge",
			script: []wishbone.Outputs{testutil.Ack(1), {Stall: true}},
			code:   wishbone.ErrCodeStall,
			edge:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := wishbone.New(testutil.NewScriptedDevice(tt.script...))
			_, err := bus.Read()
			requireFault(t, err, tt.code, wishbone.OpRead, tt.edge)
		})
	}
}

func TestWrite_DrivesPayloadForOneEdge(t *testing.T) {
	dev := testutil.NewScriptedDevice(testutil.Ack(0), testutil.Idle(0x19700101))
	bus := wishbone.New(dev)

	require.NoError(t, bus.Write(0x19700101))

	require.Len(t, dev.Inputs, 2)
	assert.Equal(t, wishbone.Inputs{Cyc: true, Stb: true, We: true, Data: 0x19700101}, dev.Inputs[0])
	assert.Equal(t, wishbone.Inputs{}, dev.Inputs[1])
}

func TestWrite_ReadbackMismatch(t *testing.T) {
	dev := testutil.NewScriptedDevice(testutil.Ack(0), testutil.Idle(0x19700102))
	bus := wishbone.New(dev)

	err := bus.Write(0x19700101)
	pe := requireFault(t, err, wishbone.ErrCodeReadbackMismatch, wishbone.OpWrite, 2)
	assert.Equal(t, uint32(0x19700101), pe.Want)
	assert.Contains(t, err.Error(), "wrote 19700101, read back 19700102")
}

func TestWrite_MissingAck(t *testing.T) {
	bus := wishbone.New(testutil.NewScriptedDevice(testutil.Idle(0)))
	err := bus.Write(0x19700101)
	requireFault(t, err, wishbone.ErrCodeMissingAck, wishbone.OpWrite, 1)
}

func TestPulse_HoldsRequestLinesLow(t *testing.T) {
	dev := testutil.NewScriptedDevice(testutil.Idle(0))
	bus := wishbone.New(dev)

	require.NoError(t, bus.Pulse())
	require.Len(t, dev.Inputs, 1)
	assert.Equal(t, wishbone.Inputs{Aux: true}, dev.Inputs[0])
	assert.Equal(t, uint64(1), bus.Edges())
}

func TestPulse_Faults(t *testing.T) {
	bus := wishbone.New(testutil.NewScriptedDevice(testutil.Ack(0)))
	requireFault(t, bus.Pulse(), wishbone.ErrCodeUnexpectedAck, wishbone.OpPulse, 1)

	bus = wishbone.New(testutil.NewScriptedDevice(wishbone.Outputs{Stall: true}))
	requireFault(t, bus.Pulse(), wishbone.ErrCodeStall, wishbone.OpPulse, 1)
}

func TestObserver_SeesCompletedTransactions(t *testing.T) {
	dev := testutil.NewScriptedDevice(
		// write
		testutil.Ack(0), testutil.Idle(0x19700101),
		// pulse
		testutil.Idle(0x19700101),
		// read
		testutil.Ack(0x19700102), testutil.Idle(0x19700102),
	)

	var seen []wishbone.Transaction
	bus := wishbone.New(dev, wishbone.WithObserver(func(tx wishbone.Transaction) {
		seen = append(seen, tx)
	}))

	require.NoError(t, bus.Write(0x19700101))
	require.NoError(t, bus.Pulse())
	_, err := bus.Read()
	require.NoError(t, err)

	assert.Equal(t, []wishbone.Transaction{
		{Seq: 1, Op: wishbone.OpWrite, Edge: 1, Value: 0x19700101},
		{Seq: 2, Op: wishbone.OpPulse, Edge: 3},
		{Seq: 3, Op: wishbone.OpRead, Edge: 4, Value: 0x19700102},
	}, seen)
}

func TestObserver_NotCalledOnFault(t *testing.T) {
	called := false
	bus := wishbone.New(testutil.NewScriptedDevice(testutil.Idle(0)),
		wishbone.WithObserver(func(wishbone.Transaction) { called = true }))

	_, err := bus.Read()
	require.Error(t, err)
	assert.False(t, called)
}

func TestProtocolError_Message(t *testing.T) {
	err := &wishbone.ProtocolError{
		Code:    wishbone.ErrCodeLingeringAck,
		Op:      wishbone.OpRead,
		Edge:    42,
		Outputs: wishbone.Outputs{Ack: true, Data: 0x19700101},
	}
	assert.Equal(t, "LINGERING_ACK: read at edge 42 (stall=0 ack=1 data=19700101)", err.Error())
}

func TestFaultCodeOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("check: %w", &wishbone.ProtocolError{Code: wishbone.ErrCodeStall})
	assert.Equal(t, wishbone.ErrCodeStall, wishbone.FaultCodeOf(err))
	assert.Equal(t, wishbone.FaultCode(""), wishbone.FaultCodeOf(fmt.Errorf("plain")))
}
