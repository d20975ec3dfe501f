package comm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCycleSequence_NextVal(t *testing.T) {
	seq := NewCycleSequence(1)
	assert.Equal(t, int32(1), seq.NextVal())
	assert.Equal(t, int32(2), seq.NextVal())
	assert.Equal(t, int32(3), seq.NextVal())
}

func TestCycleSequence_Wrap(t *testing.T) {
	seq := NewCycleSequence(MaxSequence - 1)
	assert.Equal(t, MaxSequence-1, seq.NextVal())
	assert.Equal(t, MaxSequence, seq.NextVal())
	assert.Equal(t, int32(1), seq.NextVal())

	seq = NewCycleSequence(0)
	assert.Equal(t, int32(1), seq.NextVal())
}

var seq = NewCycleSequence(1)

func BenchmarkCycleSequence_NextVal(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		seq.NextVal()
	}
}
