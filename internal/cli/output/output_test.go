package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "table", input: "table", want: FormatTable},
		{name: "empty defaults to table", input: "", want: FormatTable},
		{name: "JSON uppercase", input: "JSON", want: FormatJSON},
		{name: "yml alias", input: "yml", want: FormatYAML},
		{name: "whitespace trimmed", input: "  yaml  ", want: FormatYAML},
		{name: "invalid format", input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type decision struct {
	Allowed bool   `json:"allowed" yaml:"allowed"`
	Target  string `json:"target" yaml:"target"`
}

func (d decision) Headers() []string { return []string{"TARGET", "ALLOWED"} }

func (d decision) Rows() [][]string {
	allowed := "no"
	if d.Allowed {
		allowed = "yes"
	}
	return [][]string{{d.Target, allowed}}
}

func TestPrinter_Print(t *testing.T) {
	d := decision{Allowed: true, Target: "refs/heads/master"}

	t.Run("Table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(d))
		assert.Contains(t, buf.String(), "TARGET")
		assert.Contains(t, buf.String(), "refs/heads/master")
		assert.Contains(t, buf.String(), "yes")
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatJSON, false).Print(d))
		assert.JSONEq(t, `{"allowed":true,"target":"refs/heads/master"}`, buf.String())
	})

	t.Run("YAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatYAML, false).Print(d))
		assert.Equal(t, "allowed: true\ntarget: refs/heads/master\n", buf.String())
	})

	t.Run("TableFallsBackToJSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(map[string]int{"a": 1}))
		assert.JSONEq(t, `{"a":1}`, buf.String())
	})
}

func TestPrinter_PrintList(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, false)
	require.NoError(t, p.PrintList([]string{}, true, "No projects found.", NewTableData("NAME")))
	assert.Equal(t, "No projects found.\n", buf.String())

	buf.Reset()
	p = NewPrinter(&buf, FormatJSON, false)
	require.NoError(t, p.PrintList([]string{}, true, "No projects found.", NewTableData("NAME")))
	assert.JSONEq(t, `[]`, buf.String())
}

func TestPrinter_Messages(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, FormatTable, false).Success("allowed")
	assert.Equal(t, "allowed\n", buf.String())

	buf.Reset()
	NewPrinter(&buf, FormatTable, true).Error("denied")
	assert.Equal(t, "\033[31mdenied\033[0m\n", buf.String())
}

func TestTableData(t *testing.T) {
	td := NewTableData("PROJECT", "PARENT")
	td.AddRow("demo", "All-Projects")
	td.AddRow("All-Projects", "-")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, td))
	assert.Contains(t, buf.String(), "PROJECT")
	assert.Contains(t, buf.String(), "All-Projects")
	assert.Len(t, td.Rows(), 2)
}

func TestSimpleTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SimpleTable(&buf, [][2]string{{"Name", "demo"}, {"State", "ACTIVE"}}))
	assert.Contains(t, buf.String(), "demo")
	assert.Contains(t, buf.String(), "ACTIVE")
}
