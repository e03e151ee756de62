package columns

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahiry-mg/tahiry/internal/shared"
)

func TestParseValueByType(t *testing.T) {
	v, err := ParseValue("ref", TypeText, "PV de réception")
	require.NoError(t, err)
	assert.Equal(t, "PV de réception", v.Text)

	v, err = ParseValue("montant", TypeNumber, "1250000.50")
	require.NoError(t, err)
	assert.Equal(t, "1250000.50", v.Number.StringFixed(2))

	v, err = ParseValue("date_reception", TypeDate, "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 2024, v.Date.Year())
	assert.Equal(t, 15, v.Date.Day())

	v, err = ParseValue("conteste", TypeBoolean, "1")
	require.NoError(t, err)
	assert.True(t, v.Bool)

	v, err = ParseValue("pieces", TypeJSON, `{"quittances":["A-12","A-13"]}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"quittances":["A-12","A-13"]}`, string(v.JSON))
}

func TestParseValueRejections(t *testing.T) {
	cases := []struct {
		dataType DataType
		raw      string
	}{
		{TypeNumber, "12,5"},
		{TypeDate, "15/03/2024"},
		{TypeBoolean, "vrai"},
		{TypeJSON, `{"open":`},
		{DataType("binary"), "x"},
	}
	for _, tc := range cases {
		_, err := ParseValue("col", tc.dataType, tc.raw)
		var validation *shared.ValidationError
		require.ErrorAs(t, err, &validation, "type %s raw %q", tc.dataType, tc.raw)
	}
}

func TestValueMarshalJSON(t *testing.T) {
	date, err := ParseValue("d", TypeDate, "2024-12-31")
	require.NoError(t, err)
	b, err := json.Marshal(date)
	require.NoError(t, err)
	assert.Equal(t, `"2024-12-31"`, string(b))

	num, err := ParseValue("n", TypeNumber, "42.5")
	require.NoError(t, err)
	b, err = json.Marshal(num)
	require.NoError(t, err)
	assert.Equal(t, `"42.5"`, string(b))

	empty := Value{Type: TypeJSON}
	b, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}
