package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/binstruct/pkg/binstruct"
)

const testCatalog = `
structs:
  gif_header:
    - [a3, ":magic"]
    - [a3, ":version"]
    - [v, width]
    - [v, height]
    - [a, ~]
    - [C, bg_color_index]
    - [C, pixel_aspect_ratio]
  packet:
    - [n, length]
    - [x2, ~]
    - [a*, payload]
`

func TestParse(t *testing.T) {
	r := binstruct.NewRegistry()
	c, err := Parse([]byte(testCatalog), WithRegistry(r))
	require.NoError(t, err)

	assert.Equal(t, []string{"gif_header", "packet"}, c.Names())
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 2, r.Len())

	raw, ok := c.Raw("gif_header")
	require.True(t, ok)
	assert.Equal(t, binstruct.RawDefinition{
		"a3", binstruct.Sym("magic"),
		"a3", binstruct.Sym("version"),
		"v", binstruct.Text("width"),
		"v", binstruct.Text("height"),
		"a", nil,
		"C", binstruct.Text("bg_color_index"),
		"C", binstruct.Text("pixel_aspect_ratio"),
	}, raw)

	s, err := c.Lookup("gif_header")
	require.NoError(t, err)
	assert.Equal(t, 13, s.Size())

	again, err := c.Lookup("gif_header")
	require.NoError(t, err)
	assert.Same(t, s.Definition(), again.Definition())

	rec, err := s.Decode([]byte("GIF89a\x10\x00\x10\x00\x80\x00\x00"))
	require.NoError(t, err)
	assert.Equal(t, "GIF", rec[binstruct.Sym("magic")])
	assert.Equal(t, uint64(16), rec[binstruct.Text("width")])

	packet, err := c.Lookup("packet")
	require.NoError(t, err)
	assert.Equal(t, 4, packet.Size())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
		msg     string
	}{
		{
			name: "invalid yaml",
			doc:  "structs: [",
			msg:  "failed to parse catalog",
		},
		{
			name: "structs not a mapping",
			doc:  "structs:\n  - a\n",
			msg:  "structs must be a mapping",
		},
		{
			name:    "unrecognized format",
			doc:     "structs:\n  bad:\n    - [D, x]\n",
			wantErr: binstruct.ErrUnrecognizedFormat,
		},
		{
			name:    "unsupported format",
			doc:     "structs:\n  bad:\n    - [U, x]\n",
			wantErr: binstruct.ErrUnsupportedFormat,
		},
		{
			name:    "field with one element",
			doc:     "structs:\n  bad:\n    - [C]\n",
			wantErr: binstruct.ErrMalformedDefinition,
		},
		{
			name:    "null format",
			doc:     "structs:\n  bad:\n    - [~, x]\n",
			wantErr: binstruct.ErrMalformedDefinition,
		},
		{
			name:    "empty struct",
			doc:     "structs:\n  bad: []\n",
			wantErr: binstruct.ErrMalformedDefinition,
		},
		{
			name: "duplicate struct",
			doc:  "structs:\n  a:\n    - [C, x]\n  a:\n    - [C, y]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), WithRegistry(binstruct.NewRegistry()))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	c, err := Parse([]byte("# nothing here\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Names())
}

func TestLookup_NotFound(t *testing.T) {
	c := New()
	_, err := c.Lookup("missing")
	assert.ErrorIs(t, err, ErrStructNotFound)

	_, ok := c.Raw("missing")
	assert.False(t, ok)
}

func TestAdd(t *testing.T) {
	c := New(WithRegistry(binstruct.NewRegistry()))
	require.NoError(t, c.Add("word", binstruct.RawDefinition{"a*", "word"}))
	assert.Error(t, c.Add("word", binstruct.RawDefinition{"C", "x"}))
	assert.ErrorIs(t, c.Add("", binstruct.RawDefinition{"C", "x"}), binstruct.ErrMalformedDefinition)
	assert.ErrorIs(t, c.Add("bad", binstruct.RawDefinition{"Q_", "x"}), binstruct.ErrInvalidModifier)
	assert.Equal(t, []string{"word"}, c.Names())
}

func TestParse_EscapedNames(t *testing.T) {
	doc := `
structs:
  flags:
    - [C, '\:mode']
    - [C, ":mode"]
    - [C, '\\raw']
`
	c, err := Parse([]byte(doc), WithRegistry(binstruct.NewRegistry()))
	require.NoError(t, err)

	raw, ok := c.Raw("flags")
	require.True(t, ok)
	assert.Equal(t, binstruct.RawDefinition{
		"C", binstruct.Text(":mode"),
		"C", binstruct.Sym("mode"),
		"C", binstruct.Text(`\raw`),
	}, raw)

	s, err := c.Lookup("flags")
	require.NoError(t, err)
	rec, err := s.Decode([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, binstruct.Record{
		binstruct.Text(":mode"): uint64(1),
		binstruct.Sym("mode"):   uint64(2),
		binstruct.Text(`\raw`):  uint64(3),
	}, rec)

	var rendered []string
	for _, name := range s.Names() {
		rendered = append(rendered, name.String())
	}
	assert.Equal(t, []string{`\:mode`, ":mode", `\\raw`}, rendered)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "structs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"gif_header", "packet"}, c.Names())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read catalog")
}
