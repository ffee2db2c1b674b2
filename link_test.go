package fdtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineParams(t *testing.T) {
	p, err := ParseLineParams("38400,n,8,2")
	require.NoError(t, err)
	assert.Equal(t, DefaultLineParams(), p)

	p, err = ParseLineParams(" 9600 , E , 7 , 1 ")
	require.NoError(t, err)
	assert.Equal(t, LineParams{BaudRate: 9600, DataBits: 7, Parity: ParityEven, StopBits: 1}, p)
	assert.Equal(t, "9600,e,7,1", p.String())
}

func TestParseLineParamsErrors(t *testing.T) {
	tests := []string{
		"",
		"38400,n,8",
		"fast,n,8,2",
		"38400,none,8,2",
		"38400,x,8,2",
		"38400,n,9,2",
		"38400,n,8,3",
		"0,n,8,1",
	}
	for _, s := range tests {
		_, err := ParseLineParams(s)
		assert.ErrorIs(t, err, ErrBadLineParams, s)
	}
}

func TestBitsPerByte(t *testing.T) {
	assert.Equal(t, 11, DefaultLineParams().BitsPerByte())
	assert.Equal(t, 10, LineParams{BaudRate: 9600, DataBits: 7, Parity: ParityOdd, StopBits: 1}.BitsPerByte())
}

func TestTransmitDuration(t *testing.T) {
	p := DefaultLineParams()
	// 10 bytes * 11 bits at 38400 baud is 2.86 ms, rounded up plus one
	assert.Equal(t, 4*time.Millisecond, p.TransmitDuration(10))
	assert.Equal(t, time.Millisecond, p.TransmitDuration(0))

	slow := LineParams{BaudRate: 1200, DataBits: 8, Parity: ParityNone, StopBits: 1}
	assert.Equal(t, 85*time.Millisecond, slow.TransmitDuration(10))
}
