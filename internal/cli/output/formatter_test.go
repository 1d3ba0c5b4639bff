package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

type row struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

type rows []row

func (r rows) Table() *Table {
	t := &Table{Headers: []string{"NAME", "VALUE"}}
	for _, item := range r {
		t.AddRow(item.Name, item.Value)
	}
	return t
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"table": FormatTable, "JSON": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseFormat("xml")
	require.Error(t, err)
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := rows{{"alpha", 1}, {"", 22.5}}

	require.NoError(t, NewFormatter(FormatTable).Format(&buf, data))
	require.Equal(t, "NAME   VALUE\nalpha  1\n-      22.5\n", buf.String())
}

func TestTableFormatterFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, map[string]int{"a": 1}))
	require.JSONEq(t, `{"a":1}`, buf.String())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON).Format(&buf, rows{{"alpha", 1}}))
	require.JSONEq(t, `[{"name":"alpha","value":1}]`, buf.String())
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatYAML).Format(&buf, rows{{"alpha", 1.5}}))
	require.Equal(t, "- name: alpha\n  value: 1.5\n", buf.String())
}
