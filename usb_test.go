package fdtest

import (
	"os"
	"testing"

	"github.com/albenik/go-serial/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Hardware tests run only when FDTEST_USB_VID names the adapter to look for,
// e.g. FDTEST_USB_VID=0403.
func TestFindUSBPort(t *testing.T) {
	vid := os.Getenv("FDTEST_USB_VID")
	if vid == "" {
		t.Skip("FDTEST_USB_VID not set")
	}

	details, err := FindUSBPort(vid, "")
	require.NoError(t, err)
	assert.True(t, details.IsUSB)
	assert.Equal(t, vid, details.VID)

	link, err := OpenSerialLink(details.Name, DefaultLineParams())
	require.NoError(t, err)
	assert.True(t, link.IsOpen())
	assert.Equal(t, details.Name, link.Name())

	require.NoError(t, link.Close())
	assert.False(t, link.IsOpen())
	_, err = link.Write([]byte{ACK})
	assert.ErrorIs(t, err, ErrLinkClosed)
}

func TestOpenSerialLinkErrors(t *testing.T) {
	_, err := OpenSerialLink("", DefaultLineParams())
	assert.ErrorIs(t, err, ErrNoPort)

	_, err = OpenSerialLink("/dev/null", LineParams{BaudRate: 9600, DataBits: 9, Parity: ParityNone, StopBits: 1})
	assert.ErrorIs(t, err, ErrBadLineParams)
}

func TestSerialLineMapping(t *testing.T) {
	assert.Equal(t, serial.NoParity, serialParity(ParityNone))
	assert.Equal(t, serial.OddParity, serialParity(ParityOdd))
	assert.Equal(t, serial.EvenParity, serialParity(ParityEven))
	assert.Equal(t, serial.OneStopBit, serialStopBits(1))
	assert.Equal(t, serial.TwoStopBits, serialStopBits(2))
}
