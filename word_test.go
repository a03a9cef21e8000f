package mnsched

import "testing"

import "github.com/stretchr/testify/assert"

func TestSchedWordCPUMaxClamp(t *testing.T) {
	var w schedWord
	w.setCPUMax(maxgomaxprocs + 500)
	assert.Equal(t, maxgomaxprocs, wordCPUMax(w.load()))
}

func TestSchedWordCanAddCPU(t *testing.T) {
	var w schedWord
	w.setCPUMax(2)
	assert.True(t, w.canAddCPU())
	assert.True(t, w.canAddCPU())
	assert.False(t, w.canAddCPU(), "cpu already at cap")
	assert.Equal(t, 2, wordCPU(w.load()))
}

func TestSchedWordAddCPUNegative(t *testing.T) {
	var w schedWord
	w.setCPUMax(4)
	w.canAddCPU()
	w.canAddCPU()
	v := w.addCPU(-1)
	assert.Equal(t, 1, wordCPU(v))
}

func TestSchedWordGWaitingFlags(t *testing.T) {
	var w schedWord
	assert.False(t, wordGWaiting(w.load()))
	w.setGWaiting()
	assert.True(t, wordGWaiting(w.load()))
	w.clearGWaiting()
	assert.False(t, wordGWaiting(w.load()))
}

func TestSchedWordWaitStopQuorum(t *testing.T) {
	var w schedWord
	w.setCPUMax(4)
	w.canAddCPU()
	w.canAddCPU()
	assert.False(t, w.trySetWaitStop(), "cpu=2 should not satisfy the cpu<=1 quorum check")

	w2 := &schedWord{}
	w2.setCPUMax(4)
	w2.canAddCPU()
	assert.True(t, w2.trySetWaitStop())
	assert.True(t, wordWaitStop(w2.load()))
	w2.clearWaitStop()
	assert.False(t, wordWaitStop(w2.load()))
}
