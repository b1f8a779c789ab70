package coder

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name        string     `json:"name" msgpack:"name"`
	Description *string    `json:"description,omitempty" msgpack:"description,omitempty"`
	Price       float64    `json:"price" msgpack:"price"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" msgpack:"updated_at,omitempty"`
}

func TestJSONRoundTripScalars(t *testing.T) {
	c := JSON{}

	data, err := c.Marshal(42)
	require.NoError(t, err)
	var n int
	require.NoError(t, c.Unmarshal(data, &n))
	assert.Equal(t, 42, n)

	data, err = c.Marshal("hello")
	require.NoError(t, err)
	var s string
	require.NoError(t, c.Unmarshal(data, &s))
	assert.Equal(t, "hello", s)

	data, err = c.Marshal(true)
	require.NoError(t, err)
	var b bool
	require.NoError(t, c.Unmarshal(data, &b))
	assert.True(t, b)
}

func TestJSONRoundTripSequencesAndMaps(t *testing.T) {
	c := JSON{}

	data, err := c.Marshal([]string{"a", "b", "c"})
	require.NoError(t, err)
	var seq []string
	require.NoError(t, c.Unmarshal(data, &seq))
	assert.Equal(t, []string{"a", "b", "c"}, seq)

	data, err = c.Marshal(map[string]int{"x": 1, "y": 2})
	require.NoError(t, err)
	var m map[string]int
	require.NoError(t, c.Unmarshal(data, &m))
	assert.Equal(t, map[string]int{"x": 1, "y": 2}, m)
}

func TestJSONRoundTripTimestamp(t *testing.T) {
	c := JSON{}
	now := time.Now().Round(0)

	data, err := c.Marshal(now)
	require.NoError(t, err)
	// RFC 3339 text, not a locale-dependent or numeric form.
	assert.Contains(t, string(data), now.Format("2006-01-02T"))

	var got time.Time
	require.NoError(t, c.Unmarshal(data, &got))
	assert.True(t, now.Equal(got))
}

func TestJSONRoundTripRecord(t *testing.T) {
	c := JSON{}
	desc := "a structured record"
	now := time.Now().Round(time.Second)
	in := record{Name: "thing", Description: &desc, Price: 10.5, UpdatedAt: &now}

	data, err := c.Marshal(in)
	require.NoError(t, err)
	var out record
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, *in.Description, *out.Description)
	assert.Equal(t, in.Price, out.Price)
	assert.True(t, in.UpdatedAt.Equal(*out.UpdatedAt))

	// Optional fields absent.
	data, err = c.Marshal(record{Name: "bare", Price: 1})
	require.NoError(t, err)
	out = record{}
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Nil(t, out.Description)
	assert.Nil(t, out.UpdatedAt)
}

func TestMsgpackRoundTripRecord(t *testing.T) {
	c := Msgpack{}
	desc := "binary coded"
	in := record{Name: "thing", Description: &desc, Price: 3.25}

	data, err := c.Marshal(in)
	require.NoError(t, err)
	var out record
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, *in.Description, *out.Description)
	assert.Equal(t, in.Price, out.Price)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	header := make(http.Header)
	header.Set("Content-Type", "application/json; charset=utf-8")
	header.Set("X-Custom", "yes")
	in := NewResponseEnvelope(http.StatusCreated, header, []byte(`{"a":1}`))

	for _, c := range []Coder{JSON{}, Msgpack{}} {
		data, err := c.Marshal(in)
		require.NoError(t, err)
		var out ResponseEnvelope
		require.NoError(t, c.Unmarshal(data, &out))
		assert.Equal(t, http.StatusCreated, out.StatusCode)
		assert.Equal(t, []byte(`{"a":1}`), out.Body)
		assert.Equal(t, "application/json; charset=utf-8", out.ContentType)
		assert.Equal(t, "yes", out.Header.Get("X-Custom"))
	}
}

func TestEnvelopeClonesHeader(t *testing.T) {
	header := make(http.Header)
	header.Set("X-Custom", "before")
	env := NewResponseEnvelope(http.StatusOK, header, nil)
	header.Set("X-Custom", "after")
	assert.Equal(t, "before", env.Header.Get("X-Custom"))
}

func TestDecodeErrorOnTruncatedPayload(t *testing.T) {
	c := JSON{}
	data, err := c.Marshal(map[string]any{"a": 1, "b": "two"})
	require.NoError(t, err)

	var out map[string]any
	err = c.Unmarshal(data[:len(data)-3], &out)
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))

	err = Msgpack{}.Unmarshal([]byte{0xc1}, &out)
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))

	assert.False(t, IsDecodeError(assert.AnError))
}
