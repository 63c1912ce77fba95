package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapboard/lapboard/server/internal/store"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	st, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, st.Cars)
	assert.Empty(t, st.Times)
}

func TestLoad_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{cars: [`,
		"wrong shape":    `{"cars": {"id": "a"}}`,
		"missing id":     `{"cars": [{"name": "a"}]}`,
		"missing name":   `{"cars": [{"id": "a"}]}`,
		"duplicate id":   `{"cars": [{"id": "a", "name": "A"}, {"id": "a", "name": "B"}]}`,
		"negative lap":   `{"cars": [{"id": "a", "name": "A"}], "times": [{"carId": "a", "times": [-1]}]}`,
		"fractional lap": `{"cars": [{"id": "a", "name": "A"}], "times": [{"carId": "a", "times": [1.5]}]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, content))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestLoad_DirectoryIsMalformed(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLoad_NormalizesContent(t *testing.T) {
	p := writeFile(t, `{
  "cars": [
    {"id": "b", "name": "Bravo"},
    {"id": "a", "name": "Alpha", "color": "#f00"}
  ],
  "times": [
    {"carId": "a", "times": [3000, 2000]},
    {"carId": "ghost", "times": [1]}
  ]
}`)

	st, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, []store.Car{
		{ID: "b", Name: "Bravo", Color: store.DefaultColor},
		{ID: "a", Name: "Alpha", Color: "#f00"},
	}, st.Cars)
	assert.Equal(t, []store.LapTimes{
		{CarID: "b", Times: []int64{}},
		{CarID: "a", Times: []int64{3000, 2000}},
	}, st.Times)
}

func TestLoad_EmptyDocument(t *testing.T) {
	st, err := Load(writeFile(t, `{}`))
	require.NoError(t, err)
	assert.Empty(t, st.Cars)
}

func TestEncode_EmptyStateUsesArrays(t *testing.T) {
	data, err := encode(store.State{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cars": [], "times": []}`, string(data))
}
