package fdtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlinkMode(t *testing.T) {
	tests := []struct {
		in   string
		want BlinkMode
	}{
		{"", BlinkNone},
		{"none", BlinkNone},
		{"event", BlinkEvent},
		{"Event, Location", BlinkEvent | BlinkLocation},
		{"delimiter,all", BlinkDelimiter | BlinkAll},
		{"event,none", BlinkNone},
	}
	for _, tt := range tests {
		got, err := ParseBlinkMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseBlinkMode("event,sometimes")
	assert.Error(t, err)
}

func TestBlinkModeString(t *testing.T) {
	assert.Equal(t, "none", BlinkNone.String())
	assert.Equal(t, "event,location", (BlinkEvent | BlinkLocation).String())

	mode, err := ParseBlinkMode((BlinkAll | BlinkDelimiter).String())
	require.NoError(t, err)
	assert.Equal(t, BlinkAll|BlinkDelimiter, mode)
}

func TestParseToneMode(t *testing.T) {
	for in, want := range map[string]ToneMode{"": ToneNone, "none": ToneNone, "Call": ToneCall, "alarm": ToneAlarm} {
		got, err := ParseToneMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		if in != "" {
			assert.Equal(t, want.String(), got.String())
		}
	}
	_, err := ParseToneMode("siren")
	assert.Error(t, err)
}

func TestNewCatalog(t *testing.T) {
	c := NewCatalog([]DisplayEvent{
		{Name: "alarm", Type: "fire"},
		{Name: "presence"},
		{Name: "reminder", Type: "officer", Location: "Flur 2"},
	})

	require.Len(t, c, 3)
	for i, ev := range c {
		assert.Equal(t, i+1, ev.ID)
	}
	assert.Equal(t, "fire", c[0].Location)
	assert.Equal(t, "2", c[1].Location)
	assert.Equal(t, "Flur 2", c[2].Location)
}

func TestCatalogNext(t *testing.T) {
	c := NewCatalog([]DisplayEvent{{Name: "a"}, {Name: "b"}, {Name: "c"}})

	next, wrapped := c.Next(c[0])
	assert.Equal(t, 2, next.ID)
	assert.False(t, wrapped)

	next, wrapped = c.Next(c[2])
	assert.Equal(t, 1, next.ID)
	assert.True(t, wrapped)

	next, wrapped = c.Next(DisplayEvent{})
	assert.Equal(t, 1, next.ID)
	assert.False(t, wrapped)

	assert.Equal(t, 3, c.Last().ID)

	next, wrapped = Catalog{}.Next(DisplayEvent{})
	assert.Zero(t, next)
	assert.False(t, wrapped)
	assert.Zero(t, Catalog{}.Last())
}

func TestCatalogHasEqualPriority(t *testing.T) {
	c := NewCatalog([]DisplayEvent{
		{Name: "a", Priority: 10},
		{Name: "b", Priority: 10},
		{Name: "c", Priority: 5},
	})
	assert.True(t, c.HasEqualPriority(c[0]))
	assert.True(t, c.HasEqualPriority(c[1]))
	assert.False(t, c.HasEqualPriority(c[2]))
}
