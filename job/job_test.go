package job

import (
	"strings"
	"testing"
	"time"

	"github.com/ByLCY/memegen/binding"
	"github.com/ByLCY/memegen/export"
)

const drakeJob = `
meme Drake v1 {
  template {
    id: "181913649"
    source: "https://i.imgflip.com/${template}.jpg"
    boxes: 2
  }
  output {
    format: png
    timeout: 2s
    wrap: on
  }
  caption "Writing ${lang} by hand"
  caption "Letting ${user.name} do it"
  caption "ignored third caption"
}
`

func TestLoadBindsData(t *testing.T) {
	data, err := binding.Decode(strings.NewReader(`{"template":"30b1gx","lang":"Go","user":{"name":"Ada"}}`))
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	j, err := Load(strings.NewReader(drakeJob), data)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if j.Name != "Drake" || j.Version != "v1" {
		t.Fatalf("unexpected header %s %s", j.Name, j.Version)
	}
	tpl := j.Template
	if tpl.ID != "181913649" || tpl.URL != "https://i.imgflip.com/30b1gx.jpg" || tpl.BoxCount != 2 {
		t.Fatalf("unexpected template %+v", tpl)
	}
	if tpl.Name != "Drake" {
		t.Fatalf("template name should default to the document name, got %q", tpl.Name)
	}
	if len(j.Captions) != 3 || j.Captions[0] != "Writing Go by hand" || j.Captions[1] != "Letting Ada do it" {
		t.Fatalf("unexpected captions %q", j.Captions)
	}
	if j.Encoding != export.PNG() || j.Timeout != 2*time.Second || !j.Wrap {
		t.Fatalf("unexpected output options %+v", j)
	}
}

func TestBuildDefaults(t *testing.T) {
	j, err := Load(strings.NewReader(`meme Quick v1 {
  template { source: "/tmp/tpl.png" }
  caption "one"
  caption ""
  caption "three"
}`), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if j.Template.BoxCount != 3 {
		t.Fatalf("box count should default to caption count, got %d", j.Template.BoxCount)
	}
	if j.Encoding != export.PNG() || j.Timeout != 0 || j.Wrap {
		t.Fatalf("unexpected defaults %+v", j)
	}

	j, err = Load(strings.NewReader(`meme Q v1 { template { source: "a.png" } output { format: jpg; quality: 75 } }`), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if j.Encoding != export.JPEG(75) {
		t.Fatalf("unexpected encoding %+v", j.Encoding)
	}
}

func TestExplicitZeroBoxesIsKept(t *testing.T) {
	j, err := Load(strings.NewReader(`meme Bare v1 {
  template { source: "a.png"; boxes: 0 }
  caption "top"
  caption "bottom"
}`), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if j.Template.BoxCount != 0 {
		t.Fatalf("explicit boxes: 0 should be kept, got %d", j.Template.BoxCount)
	}
	if len(j.Captions) != 2 {
		t.Fatalf("captions should still be parsed, got %q", j.Captions)
	}
}

func TestBuildErrors(t *testing.T) {
	cases := map[string]string{
		"missing template":  `meme X v1 { caption "a" }`,
		"missing source":    `meme X v1 { template { id: "1" } }`,
		"unknown field":     "meme X v1 {\n template {\n source: \"a.png\"\n color: red\n }\n}",
		"bad quality":       `meme X v1 { template { source: "a.png" } output { quality: 101 } }`,
		"bad format":        `meme X v1 { template { source: "a.png" } output { format: gif } }`,
		"bad timeout":       `meme X v1 { template { source: "a.png" } output { timeout: 0s } }`,
		"negative boxes":    `meme X v1 { template { source: "a.png"; boxes: -1 } }`,
		"size not accepted": `meme X v1 { template { source: "a.png"; size: [1200, 1200] } }`,
		"syntax":            `meme X v1 { template { source "a.png" } }`,
	}
	for name, src := range cases {
		if _, err := Load(strings.NewReader(src), nil); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	_, err := Load(strings.NewReader("meme X v1 {\n template {\n source: \"a.png\"\n color: red\n }\n}"), nil)
	if err == nil || !strings.Contains(err.Error(), "第 4 行") {
		t.Fatalf("error should point at the line, got %v", err)
	}

	_, err = Load(strings.NewReader(`meme X v1 { template { source: "a.png" } caption "${who}" }`), map[string]any{})
	if err == nil || !strings.Contains(err.Error(), "who") {
		t.Fatalf("unresolved placeholder should fail when data is given, got %v", err)
	}
}
