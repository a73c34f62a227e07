package registry

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/nadzzz/jukebox/internal/message"
)

const castbridgeXML = `<?xml version="1.0"?>
<castbridge>
  <common>
    <enabled>1</enabled>
  </common>
  <device>
    <udn>uuid:1</udn>
    <name>kitchen</name>
    <mac>cc:cc:5c:56:cb:58</mac>
  </device>
  <device>
    <udn>uuid:2</udn>
    <name>lounge</name>
    <mac>bb:bb:9a:2d:11:07</mac>
  </device>
</castbridge>
`

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestResolveIsExact(t *testing.T) {
	r := New(message.Device{Name: "kitchen", ID: "aa"})

	if id, ok := r.Resolve("kitchen"); !ok || id != "aa" {
		t.Fatalf("Resolve(kitchen) = %q, %v", id, ok)
	}
	for _, name := range []string{"Kitchen", "kitch", " kitchen", ""} {
		if _, ok := r.Resolve(name); ok {
			t.Fatalf("Resolve(%q) should miss", name)
		}
	}
}

func TestNewLaterDuplicateWins(t *testing.T) {
	r := New(
		message.Device{Name: "kitchen", ID: "aa"},
		message.Device{Name: "kitchen", ID: "bb"},
		message.Device{Name: "", ID: "cc"},
	)
	if id, _ := r.Resolve("kitchen"); id != "bb" {
		t.Fatalf("expected later id, got %q", id)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestDevicesSorted(t *testing.T) {
	r := New(message.Device{Name: "study", ID: "3"}, message.Device{Name: "bedroom", ID: "1"})
	got := r.Devices()
	if len(got) != 2 || got[0].Name != "bedroom" || got[1].Name != "study" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestDefaultID(t *testing.T) {
	r := New(message.Device{Name: "kitchen", ID: "aa"})
	if got := r.DefaultID("kitchen", "zz"); got != "aa" {
		t.Fatalf("got %q", got)
	}
	if got := r.DefaultID("garage", "zz"); got != "zz" {
		t.Fatalf("got %q", got)
	}
	if got := r.DefaultID("", "zz"); got != "zz" {
		t.Fatalf("got %q", got)
	}
}

func TestLoadCastbridge(t *testing.T) {
	path := writeFile(t, "castbridge.xml", castbridgeXML)
	devices, err := LoadCastbridge(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
	if devices[0] != (message.Device{Name: "kitchen", ID: "cc:cc:5c:56:cb:58"}) {
		t.Fatalf("unexpected device %+v", devices[0])
	}
}

func TestLoadCastbridgeMissingFile(t *testing.T) {
	if _, err := LoadCastbridge(filepath.Join(t.TempDir(), "nope.xml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadMergesSources(t *testing.T) {
	xmlPath := writeFile(t, "castbridge.xml", castbridgeXML)
	yamlPath := writeFile(t, "players.yaml", ""+
		"devices:\n"+
		"  - name: lounge\n"+
		"    id: \"11:11:11:11:11:11\"\n"+
		"  - name: study\n"+
		"    id: \"22:22:22:22:22:22\"\n")

	r, err := Load(Sources{
		CastbridgeXML: xmlPath,
		DevicesFile:   yamlPath,
		Inline:        []message.Device{{Name: "study", ID: "33:33:33:33:33:33"}},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := map[string]string{
		"kitchen": "cc:cc:5c:56:cb:58",
		"lounge":  "11:11:11:11:11:11",
		"study":   "33:33:33:33:33:33",
	}
	if r.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", r.Len(), len(want))
	}
	for name, id := range want {
		if got, ok := r.Resolve(name); !ok || got != id {
			t.Fatalf("Resolve(%s) = %q, %v; want %q", name, got, ok, id)
		}
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeFile(t, "players.yaml", "devices: [\n")
	if _, err := Load(Sources{DevicesFile: path}, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadInlineKeepsCase(t *testing.T) {
	r, err := Load(Sources{
		Inline: []message.Device{
			{Name: "Kitchen", ID: "cc:cc:5c:56:cb:58"},
			{Name: "Living Room", ID: "bb:bb:9a:2d:11:07"},
		},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if id, ok := r.Resolve("Kitchen"); !ok || id != "cc:cc:5c:56:cb:58" {
		t.Fatalf("Resolve(Kitchen) = %q, %v", id, ok)
	}
	if _, ok := r.Resolve("kitchen"); ok {
		t.Fatalf("Resolve(kitchen) should miss")
	}
	if got := r.DefaultID("Living Room", "zz"); got != "bb:bb:9a:2d:11:07" {
		t.Fatalf("DefaultID = %q", got)
	}
}
