package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateLayouts(t *testing.T) {
	want := NewDate(2015, time.May, 10)
	for _, raw := range []string{"10/05/2015", "2015-05-10", "2015/05/10", " 10/5/2015 "} {
		got, err := ParseDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseDate("31/02/2015")
	assert.Error(t, err)
	_, err = ParseDate("ontem")
	assert.Error(t, err)
}

func TestDateFormats(t *testing.T) {
	d := NewDate(2024, time.May, 10)
	assert.Equal(t, "10/05/2024", d.String())
	assert.Equal(t, "2024-05-10", d.ISO())
	assert.Equal(t, "", Date{}.String())
	assert.True(t, d.After(NewDate(2024, time.May, 9)))
	assert.True(t, d.Before(NewDate(2024, time.June, 1)))
	assert.Equal(t, 0, d.Compare(NewDate(2024, time.May, 10)))
}

func TestDateJSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		D Date `json:"d"`
	}{D: NewDate(2015, time.May, 10)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"10/05/2015"}`, string(payload))

	var decoded struct {
		D Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2015-05-10"}`), &decoded))
	assert.Equal(t, NewDate(2015, time.May, 10), decoded.D)
}

func TestDateScanValue(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2016, time.March, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, NewDate(2016, time.March, 2), d)

	require.NoError(t, d.Scan("2017-01-31"))
	assert.Equal(t, NewDate(2017, time.January, 31), d)

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2017-01-31", v)

	assert.Error(t, d.Scan(42))
}
