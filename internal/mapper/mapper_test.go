package mapper

import (
	"testing"

	godbf "github.com/recruitdata/go-dbf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestMapper_Rename(t *testing.T) {
	m, err := New([]Entry{{From: "USER", To: []string{"user_id"}}, {From: "NAME", To: []string{"name"}}})
	require.NoError(t, err)

	out := m.Map(godbf.Row{"USER": godbf.TextValue("u1"), "NAME": godbf.TextValue("A"), "EXTRA": godbf.IntValue(1)})
	assert.Equal(t, godbf.Row{"user_id": godbf.TextValue("u1"), "name": godbf.TextValue("A")}, out)
	assert.Equal(t, []string{"user_id", "name"}, m.Columns())
}

func TestMapper_FanOut(t *testing.T) {
	m, err := New([]Entry{
		{From: "OPT_CODE", To: []string{"cadre_code"}},
		{From: "POST_NO", To: []string{"total_post", "total_post_left"}},
	})
	require.NoError(t, err)

	out := m.Map(godbf.Row{"OPT_CODE": godbf.TextValue("101"), "POST_NO": godbf.TextValue("25")})
	assert.Equal(t, godbf.TextValue("25"), out["total_post"])
	assert.Equal(t, godbf.TextValue("25"), out["total_post_left"])
	assert.Equal(t, []string{"cadre_code", "total_post", "total_post_left"}, m.Columns())
}

func TestMapper_MissingSource(t *testing.T) {
	m, err := New([]Entry{{From: "DOB", To: []string{"dob"}}})
	require.NoError(t, err)
	out := m.Map(godbf.Row{})
	v, ok := out["dob"]
	assert.True(t, ok)
	assert.True(t, v.IsNull())
}

func TestMapper_Identity(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	assert.True(t, m.Identity())
	row := godbf.Row{"A": godbf.IntValue(1)}
	assert.Equal(t, row, m.Map(row))
	assert.Empty(t, m.Columns())
}

func TestMapper_Invalid(t *testing.T) {
	_, err := New([]Entry{{From: "", To: []string{"x"}}})
	assert.Error(t, err)
	_, err = New([]Entry{{From: "A"}})
	assert.Error(t, err)
	_, err = New([]Entry{{From: "A", To: []string{""}}})
	assert.Error(t, err)
}

func TestEntry_UnmarshalYAML(t *testing.T) {
	src := `
- from: USER
  to: user_id
- from: POST_NO
  to: [total_post, total_post_left]
- from: REG
`
	var entries []Entry
	require.NoError(t, yaml.Unmarshal([]byte(src), &entries))
	assert.Equal(t, []Entry{
		{From: "USER", To: []string{"user_id"}},
		{From: "POST_NO", To: []string{"total_post", "total_post_left"}},
		{From: "REG", To: []string{"REG"}},
	}, entries)

	err := yaml.Unmarshal([]byte("- from: A\n  to: {x: y}\n"), &entries)
	assert.Error(t, err)
}
