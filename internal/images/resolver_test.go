package images

import (
	"os"
	"path/filepath"
	"testing"

	"zaehlerwerk/internal/readings/domain"
)

const (
	testObjectID = "aaaabbbb-1111"
	testRoomID   = "ccccdddd-2222"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func placeReading(image string) readings.Reading {
	return readings.Reading{
		MeterKey:  "m1",
		Name:      "EG.Wasser",
		Object:    "Haus 1",
		Room:      "EG",
		RoomID:    testRoomID,
		Taken:     readings.ParseReadingDate("2023-01-01"),
		ImageFile: image,
	}
}

func TestIndexLayouts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, testObjectID+"_"+testRoomID+"_flat.jpg"), "flat")
	writeFile(t, filepath.Join(root, testObjectID, testRoomID, "nested.jpg"), "nested")
	writeFile(t, filepath.Join(root, "loose.jpg"), "loose")

	idx := BuildIndex(root)

	if got := idx.Resolve(testObjectID, testRoomID, "flat.jpg"); got == "" {
		t.Fatal("expected flat file via tuple lookup")
	}
	if got := idx.Resolve(testObjectID, testRoomID, "nested.jpg"); got == "" {
		t.Fatal("expected nested file via tuple lookup")
	}
	if got := idx.Resolve("unknown-object", testRoomID, "flat.jpg"); got == "" {
		t.Fatal("expected room/file fallback to find the flat file")
	}
	if got := idx.Resolve("unknown-object", "unknown-room", "loose.jpg"); got == "" {
		t.Fatal("expected file-only fallback for the loose file")
	}
	if got := idx.Resolve(testObjectID, testRoomID, "missing.jpg"); got != "" {
		t.Fatalf("expected no hit, got %q", got)
	}
}

func TestIndexMissingRoot(t *testing.T) {
	idx := BuildIndex(filepath.Join(t.TempDir(), "does-not-exist"))
	if got := idx.Resolve(testObjectID, testRoomID, "flat.jpg"); got != "" {
		t.Fatalf("expected empty index, got %q", got)
	}
}

func TestPlaceCopiesIntoVisibleTree(t *testing.T) {
	canonical := t.TempDir()
	visible := t.TempDir()
	writeFile(t, filepath.Join(canonical, testObjectID+"_"+testRoomID+"_photo.jpg"), "pixels")

	resolver := NewResolver(canonical, visible, ModeCopy)
	placement, ok, err := resolver.Place(testObjectID, placeReading("photo.jpg"))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !ok {
		t.Fatal("expected a placement")
	}

	wantRel := "Haus 1/EG/EG.Wasser_20230101_photo.jpg"
	if placement.Rel != wantRel {
		t.Fatalf("expected rel %q, got %q", wantRel, placement.Rel)
	}
	data, err := os.ReadFile(filepath.Join(visible, "Haus 1", "EG", "EG.Wasser_20230101_photo.jpg"))
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(data) != "pixels" {
		t.Fatalf("unexpected dest content %q", data)
	}
	if !filepath.IsAbs(placement.Dest) {
		t.Fatalf("expected absolute dest, got %q", placement.Dest)
	}
}

func TestPlaceSkipsWithoutPhotoOrSource(t *testing.T) {
	resolver := NewResolver(t.TempDir(), t.TempDir(), ModeCopy)

	if _, ok, err := resolver.Place(testObjectID, placeReading("")); ok || err != nil {
		t.Fatalf("expected no placement without a photo, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := resolver.Place(testObjectID, placeReading("missing.jpg")); ok || err != nil {
		t.Fatalf("expected no placement without a source, got ok=%v err=%v", ok, err)
	}
	if _, ok, _ := resolver.Place("", placeReading("photo.jpg")); ok {
		t.Fatal("expected no placement without an object id")
	}
}

func TestPlaceLegacyFlatFallback(t *testing.T) {
	canonical := filepath.Join(t.TempDir(), "store")
	visible := t.TempDir()

	// Index is built before the file lands; the direct flat path still
	// resolves it.
	resolver := NewResolver(canonical, visible, ModeCopy)
	writeFile(t, filepath.Join(canonical, testObjectID+"_"+testRoomID+"_late.jpg"), "late")

	_, ok, err := resolver.Place(testObjectID, placeReading("late.jpg"))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !ok {
		t.Fatal("expected the legacy flat path to resolve")
	}
}

func TestPlaceKeepsExistingDest(t *testing.T) {
	canonical := t.TempDir()
	visible := t.TempDir()
	writeFile(t, filepath.Join(canonical, testObjectID+"_"+testRoomID+"_photo.jpg"), "new")
	dest := filepath.Join(visible, "Haus 1", "EG", "EG.Wasser_20230101_photo.jpg")
	writeFile(t, dest, "old")

	resolver := NewResolver(canonical, visible, ModeCopy)
	_, ok, err := resolver.Place(testObjectID, placeReading("photo.jpg"))
	if err != nil || !ok {
		t.Fatalf("place: ok=%v err=%v", ok, err)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "old" {
		t.Fatalf("expected existing destination kept, got %q", data)
	}
}

func TestPlaceUsesNodateWithoutDate(t *testing.T) {
	canonical := t.TempDir()
	visible := t.TempDir()
	writeFile(t, filepath.Join(canonical, testObjectID+"_"+testRoomID+"_photo.jpg"), "pixels")

	reading := placeReading("photo.jpg")
	reading.Taken = readings.ParseReadingDate("kaputt")

	resolver := NewResolver(canonical, visible, ModeCopy)
	placement, ok, err := resolver.Place(testObjectID, reading)
	if err != nil || !ok {
		t.Fatalf("place: ok=%v err=%v", ok, err)
	}
	if placement.Rel != "Haus 1/EG/EG.Wasser_nodate_photo.jpg" {
		t.Fatalf("expected nodate marker, got %q", placement.Rel)
	}
}

func TestPlaceSymlinkMode(t *testing.T) {
	canonical := t.TempDir()
	visible := t.TempDir()
	writeFile(t, filepath.Join(canonical, testObjectID+"_"+testRoomID+"_photo.jpg"), "pixels")

	resolver := NewResolver(canonical, visible, ModeSymlink)
	placement, ok, err := resolver.Place(testObjectID, placeReading("photo.jpg"))
	if err != nil || !ok {
		t.Fatalf("place: ok=%v err=%v", ok, err)
	}
	target, err := os.Readlink(placement.Dest)
	if err != nil {
		t.Fatalf("expected a symlink, got %v", err)
	}
	if target != placement.Source {
		t.Fatalf("expected link to canonical source, got %q", target)
	}
}

func TestParseMode(t *testing.T) {
	if got := ParseMode(" Symlink "); got != ModeSymlink {
		t.Fatalf("expected symlink, got %q", got)
	}
	if got := ParseMode(""); got != ModeCopy {
		t.Fatalf("expected copy default, got %q", got)
	}
	if got := ParseMode("hardlink"); got != ModeCopy {
		t.Fatalf("expected copy for unknown mode, got %q", got)
	}
}

func TestSafeName(t *testing.T) {
	cases := map[string]string{
		"Haus 1.EG":     "Haus 1.EG",
		`a/b\c:d`:       "a_b_c_d",
		`Zähler "groß"`: `Zähler _groß_`,
		"  padded  ":    "padded",
		"":              "unknown",
		" / ":           "_",
	}
	for in, want := range cases {
		if got := SafeName(in); got != want {
			t.Fatalf("SafeName(%q): expected %q, got %q", in, want, got)
		}
	}
}
