package db

import (
	"adventcal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecord_Normalizes(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{
		"n": 3, "f": 1.5, "s": "x", "b": true, "z": null,
		"t": {"_seconds": 10, "_nanoseconds": 5},
		"notTs": {"_seconds": 10, "_nanoseconds": 5, "extra": 1},
		"list": [1, {"_seconds": 1, "_nanoseconds": 0}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, int64(3), rec["n"])
	assert.Equal(t, 1.5, rec["f"])
	assert.Equal(t, "x", rec["s"])
	assert.Equal(t, true, rec["b"])
	assert.Nil(t, rec["z"])
	assert.Equal(t, models.Timestamp{Seconds: 10, Nanos: 5}, rec["t"])
	assert.Equal(t, map[string]any{"_seconds": int64(10), "_nanoseconds": int64(5), "extra": int64(1)}, rec["notTs"])
	assert.Equal(t, []any{int64(1), models.Timestamp{Seconds: 1}}, rec["list"])
}

func TestDecodeRecord_Errors(t *testing.T) {
	for _, input := range []string{``, `null`, `[1,2]`, `"str"`, `{bad`} {
		_, err := DecodeRecord([]byte(input))
		assert.Error(t, err, "input %q", input)
	}
}

func TestEncodeRecord_TimestampShape(t *testing.T) {
	data, err := EncodeRecord(models.Record{"t": models.Timestamp{Seconds: 7, Nanos: 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"t":{"_seconds":7,"_nanoseconds":1}}`, string(data))
}

func TestEncodeRecord_Unsupported(t *testing.T) {
	_, err := EncodeRecord(models.Record{"ch": make(chan int)})
	assert.Error(t, err)
}
