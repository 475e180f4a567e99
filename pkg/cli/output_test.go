package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{input: "", want: FormatTable},
		{input: "table", want: FormatTable},
		{input: "json", want: FormatJSON},
		{input: "yaml", wantErr: true},
		{input: "JSON", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("input "+tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseFormat(%q) accepted", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFormat(%q) = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]int{"groq": 2}

	if err := WriteJSON(&buf, data); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	if !strings.Contains(buf.String(), "\n  \"groq\": 2\n") {
		t.Errorf("output is not indented: %q", buf.String())
	}
	var back map[string]int
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if back["groq"] != 2 {
		t.Errorf("round-trip = %v", back)
	}
}

func TestTableRender(t *testing.T) {
	table := &Table{Headers: []string{"BACKEND", "KEYS"}}
	table.AddRow("groq", "2")
	table.AddRow("gemini", "1")

	var buf bytes.Buffer
	if err := table.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}

	want := "BACKEND  KEYS\ngroq     2\ngemini   1\n"
	if buf.String() != want {
		t.Errorf("Render output:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestTableRenderNoHeaders(t *testing.T) {
	table := &Table{}
	table.AddRow("only", "row")

	var buf bytes.Buffer
	if err := table.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if buf.String() != "only  row\n" {
		t.Errorf("Render output = %q", buf.String())
	}
}
