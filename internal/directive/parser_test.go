package directive

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_NoDirectives(t *testing.T) {
	text := "Just a conversational reply with no tools."
	directives, narrative := Parse(text)

	assert.Empty(t, directives)
	assert.Equal(t, text, narrative, "narrative must be the unmodified input")
}

func TestParse_SingleDirective(t *testing.T) {
	text := `I'll read the file first.
<tool code="read_file" path="main.go">ignored body</tool>
Then we can discuss it.`

	directives, narrative := Parse(text)

	require.Len(t, directives, 1)
	assert.Equal(t, KindReadFile, directives[0].Kind)
	assert.Equal(t, "main.go", directives[0].Path)
	assert.NotContains(t, narrative, "<tool")
	assert.Contains(t, narrative, "I'll read the file first.")
	assert.Contains(t, narrative, "Then we can discuss it.")
}

func TestParse_MultipleDirectivesInOrder(t *testing.T) {
	text := `First:
<tool code="list_files"></tool>
then:
<tool code="read_file" path="a.go">x</tool>
finally:
<tool code="run_command">go build ./...</tool>`

	directives, narrative := Parse(text)

	want := []Directive{
		{Kind: KindListFiles},
		{Kind: KindReadFile, Path: "a.go", Body: "x"},
		{Kind: KindRunCommand, Body: "go build ./..."},
	}
	if diff := cmp.Diff(want, directives); diff != "" {
		t.Errorf("directive mismatch (-want +got):\n%s", diff)
	}
	assert.NotContains(t, narrative, "<tool")
	assert.NotContains(t, narrative, "</tool>")
}

func TestParse_NonGreedyBodies(t *testing.T) {
	// The first </tool> closes the region; the second directive must not
	// be swallowed into the first body.
	text := `<tool code="write_file" path="a.txt">alpha</tool><tool code="write_file" path="b.txt">beta</tool>`

	directives, _ := Parse(text)

	require.Len(t, directives, 2)
	assert.Equal(t, "alpha", directives[0].Body)
	assert.Equal(t, "beta", directives[1].Body)
}

func TestParse_UnknownKindCarriedThrough(t *testing.T) {
	text := `<tool code="summon_demon" path="x">boo</tool>`

	directives, narrative := Parse(text)

	require.Len(t, directives, 1)
	assert.False(t, directives[0].Kind.Known())
	assert.Empty(t, strings.TrimSpace(narrative))
}

func TestParse_MultilineBody(t *testing.T) {
	body := "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n"
	text := `<tool code="write_file" path="main.go">` + body + `</tool>`

	directives, _ := Parse(text)

	require.Len(t, directives, 1)
	assert.Equal(t, body, directives[0].Body)
}

func TestReplacePair(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantSearch  string
		wantReplace string
		wantErr     bool
	}{
		{
			name:        "well formed",
			body:        "<search>old text</search><replace>new text</replace>",
			wantSearch:  "old text",
			wantReplace: "new text",
		},
		{
			name:        "multiline regions",
			body:        "<search>a\nb</search><replace>c\nd</replace>",
			wantSearch:  "a\nb",
			wantReplace: "c\nd",
		},
		{
			name:    "missing search",
			body:    "<replace>new</replace>",
			wantErr: true,
		},
		{
			name:    "missing replace",
			body:    "<search>old</search>",
			wantErr: true,
		},
		{
			name:    "empty body",
			body:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Directive{Kind: KindReplaceLines, Path: "f.txt", Body: tt.body}
			search, replace, err := d.ReplacePair()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSearch, search)
			assert.Equal(t, tt.wantReplace, replace)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		d       Directive
		wantErr bool
	}{
		{name: "read with path", d: Directive{Kind: KindReadFile, Path: "a.go"}},
		{name: "read without path", d: Directive{Kind: KindReadFile}, wantErr: true},
		{name: "list needs no path", d: Directive{Kind: KindListFiles}},
		{name: "run needs no path", d: Directive{Kind: KindRunCommand, Body: "go build ./..."}},
		{name: "restore without path", d: Directive{Kind: KindRestoreFile}, wantErr: true},
		{
			name:    "replace missing regions",
			d:       Directive{Kind: KindReplaceLines, Path: "f", Body: "no regions"},
			wantErr: true,
		},
		{
			name: "replace well formed",
			d:    Directive{Kind: KindReplaceLines, Path: "f", Body: "<search>a</search><replace>b</replace>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformed)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
