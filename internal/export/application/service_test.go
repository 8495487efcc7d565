package application

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"zaehlerwerk/internal/export/infrastructure/memory"
	"zaehlerwerk/internal/export/interfaces/workbook"
	"zaehlerwerk/internal/export/notify"
	readings "zaehlerwerk/internal/readings/domain"
	"zaehlerwerk/internal/readings/infrastructure/syncdir"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recordingNotifier struct {
	reports []notify.RunReport
}

func (r *recordingNotifier) Notify(_ context.Context, report notify.RunReport) error {
	r.reports = append(r.reports, report)
	return nil
}

const (
	testObject = "aaaa1111-bbbb"
	testRoomEG = "cccc2222-dddd"
	testRoomOG = "eeee3333-ffff"
)

const testDocument = `{
  "objectId": "aaaa1111-bbbb",
  "rooms": [
    {"roomId": "cccc2222-dddd", "name": "Haus 1.EG"},
    {"roomId": "eeee3333-ffff", "name": "Haus 1.OG"}
  ],
  "counters": [
    {
      "uuid": "c-water",
      "counterId": "W-100",
      "counterName": "Haus 1.EG.Wasser",
      "counterType": "WASSERZAEHLER",
      "counterUnit": "m3",
      "roomId": "cccc2222-dddd",
      "entries": {"entries": [
        {"date": "2023-01-01", "value": "10000"},
        {"date": "2023-02-01", "value": "12000", "localImageFileName": "photo.jpg"}
      ]}
    },
    {
      "uuid": "c-power",
      "counterId": "S-200",
      "counterName": "Haus 1.OG.Strom",
      "counterType": "STROMZAEHLER",
      "counterUnit": "kWh",
      "roomId": "eeee3333-ffff",
      "entries": {"entries": [
        {"date": "2023-01-01", "value": "500"},
        {"date": "2023-02-01", "value": "650"}
      ]}
    }
  ]
}`

func writeTestFolder(t *testing.T, src, folder string) {
	t.Helper()
	store := filepath.Join(src, folder, "."+testObject)
	if err := os.MkdirAll(store, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	doc := filepath.Join(src, folder, folder+".json")
	if err := os.WriteFile(doc, []byte(testDocument), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	photo := filepath.Join(store, testObject+"_"+testRoomEG+"_photo.jpg")
	if err := os.WriteFile(photo, []byte("pixels"), 0o644); err != nil {
		t.Fatalf("write photo: %v", err)
	}
}

func newTestService(src, dst string, folders []string, hist HistoryArchive, notifier notify.Notifier) *ExportService {
	clock := fixedClock{now: time.Date(2023, 6, 1, 8, 0, 0, 0, time.UTC)}
	cfg := Config{
		SourceBaseDir: src,
		TargetBaseDir: dst,
		Folders:       folders,
		ImageMode:     "copy",
		KeepWorkbooks: 3,
	}
	logger := log.New(io.Discard, "", 0)
	return NewExportService(cfg, syncdir.NewLoader(src), workbook.NewWriter(clock), hist, notifier, clock, logger)
}

func TestRunAllExportsFolder(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTestFolder(t, src, "haus1")
	rec := &recordingNotifier{}
	svc := newTestService(src, dst, []string{"haus1"}, nil, rec)

	run, err := svc.RunAll(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(run.Folders) != 1 || len(run.Failed) != 0 {
		t.Fatalf("unexpected outcome folders=%d failed=%v", len(run.Folders), run.Failed)
	}

	for _, name := range []string{
		"##haus1-20230601_080000.xlsx",
		"haus1.xlsx",
		"zaehler+.xlsx",
		"haus1-monatsuebersicht.pdf",
	} {
		if _, err := os.Stat(filepath.Join(dst, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	placedPhoto := filepath.Join(dst, "Haus 1", "Haus 1.EG", "Haus 1.EG.Wasser_20230201_photo.jpg")
	if _, err := os.Stat(placedPhoto); err != nil {
		t.Fatalf("expected placed photo: %v", err)
	}
	if run.Folders[0].ImagesPlaced != 1 {
		t.Fatalf("expected one placed image, got %d", run.Folders[0].ImagesPlaced)
	}

	combined, err := excelize.OpenFile(filepath.Join(dst, "zaehler+.xlsx"))
	if err != nil {
		t.Fatalf("open combined: %v", err)
	}
	defer combined.Close()
	found := false
	for _, sheet := range combined.GetSheetList() {
		if sheet == "Alle Zähler" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected combined meter sheet, got %v", combined.GetSheetList())
	}

	if len(rec.reports) != 1 {
		t.Fatalf("expected one notification, got %d", len(rec.reports))
	}
	report := rec.reports[0]
	if report.Folders != 1 || report.Rows != 4 || report.Images != 1 || len(report.Failed) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestRunFolderNormalizesWater(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTestFolder(t, src, "haus1")
	svc := newTestService(src, dst, []string{"haus1"}, nil, nil)

	if _, err := svc.RunFolder(context.Background(), "haus1"); err != nil {
		t.Fatalf("run folder: %v", err)
	}

	f, err := excelize.OpenFile(filepath.Join(dst, "haus1.xlsx"))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	// Water sorts ahead of power, so rows 4..5 are the water series.
	if got, _ := f.GetCellValue("Zählerdaten", "A4"); got != "Haus 1" {
		t.Fatalf("expected object in A4, got %q", got)
	}
	if got, _ := f.GetCellValue("Zählerdaten", "N5"); got != "12" {
		t.Fatalf("expected rescaled value 12, got %q", got)
	}
	if got, _ := f.GetCellValue("Zählerdaten", "O5"); got != "10" {
		t.Fatalf("expected rescaled previous 10, got %q", got)
	}
	if got, _ := f.GetCellValue("Zählerdaten", "Q5"); got != "2" {
		t.Fatalf("expected rescaled delta 2, got %q", got)
	}
	if got, _ := f.GetCellValue("Zählerdaten", "U5"); !strings.Contains(got, readings.VolumetricRemark) {
		t.Fatalf("expected rescale remark, got %q", got)
	}

	hasLink, target, err := f.GetCellHyperLink("Zählerdaten", "D5")
	if err != nil || !hasLink {
		t.Fatalf("expected photo link in D5, got has=%v err=%v", hasLink, err)
	}
	if !strings.HasPrefix(target, "file://") || !strings.HasSuffix(target, "photo.jpg") {
		t.Fatalf("unexpected link target %q", target)
	}

	rows, err := f.GetRows("Verbrauch+Norm")
	if err != nil {
		t.Fatalf("consumption rows: %v", err)
	}
	foundMeasured := false
	for _, row := range rows[1:] {
		if len(row) < 10 || row[0] != "W-100" || row[9] != "gemessen" {
			continue
		}
		foundMeasured = true
		if row[4] != "12" {
			t.Fatalf("expected rescaled reading 12, got %q", row[4])
		}
		if row[6] != "2" {
			t.Fatalf("expected rescaled consumption 2, got %q", row[6])
		}
	}
	if !foundMeasured {
		t.Fatal("expected a measured water row in the consumption sheet")
	}
}

func TestRunAllArchivesSnapshots(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTestFolder(t, src, "haus1")
	hist := memory.NewHistoryRepository()
	svc := newTestService(src, dst, []string{"haus1"}, hist, nil)

	if _, err := svc.RunAll(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	rows := hist.Snapshots("haus1")
	if len(rows) != 6 {
		t.Fatalf("expected 2 yearly and 4 monthly snapshots, got %d", len(rows))
	}
	var febWater *readings.SnapshotRow
	for i := range rows {
		row := rows[i]
		if row.MeterKey == "c-water" && row.Granularity == readings.GranularityMonth && row.PeriodLabel == "2023-02" {
			febWater = &rows[i]
		}
	}
	if febWater == nil {
		t.Fatal("expected the February water snapshot in the archive")
	}
	if febWater.Value == nil || *febWater.Value != 12 {
		t.Fatalf("expected archived value 12, got %v", febWater.Value)
	}
}

func TestRunAllIsolatesFailedFolders(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTestFolder(t, src, "haus1")
	rec := &recordingNotifier{}
	svc := newTestService(src, dst, []string{"missing", "haus1"}, nil, rec)

	run, err := svc.RunAll(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(run.Failed) != 1 || run.Failed[0] != "missing" {
		t.Fatalf("unexpected failed list %v", run.Failed)
	}
	if len(run.Folders) != 1 {
		t.Fatalf("expected the good folder to export, got %d", len(run.Folders))
	}
	if _, err := os.Stat(filepath.Join(dst, "zaehler+.xlsx")); err != nil {
		t.Fatalf("expected combined workbook despite the failure: %v", err)
	}
	if len(rec.reports) != 1 || len(rec.reports[0].Failed) != 1 {
		t.Fatalf("expected failure in the notification, got %+v", rec.reports)
	}
}

func TestRunAllSkipsCombinedWithoutSuccess(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	rec := &recordingNotifier{}
	svc := newTestService(src, dst, []string{"missing"}, nil, rec)

	run, err := svc.RunAll(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(run.Folders) != 0 || len(run.Failed) != 1 {
		t.Fatalf("unexpected outcome %+v", run)
	}
	if _, err := os.Stat(filepath.Join(dst, "zaehler+.xlsx")); !os.IsNotExist(err) {
		t.Fatalf("expected no combined workbook, got %v", err)
	}
	if len(rec.reports) != 1 || rec.reports[0].Folders != 0 {
		t.Fatalf("expected an all-failed notification, got %+v", rec.reports)
	}
}

func TestRunFolderPrunesStaleImages(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTestFolder(t, src, "haus1")
	stale := filepath.Join(dst, "Haus 1", "Haus 1.EG", "stale.jpg")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("write stale: %v", err)
	}

	svc := newTestService(src, dst, []string{"haus1"}, nil, nil)
	svc.cfg.PruneImages = true

	result, err := svc.RunFolder(context.Background(), "haus1")
	if err != nil {
		t.Fatalf("run folder: %v", err)
	}
	if result.ImagesPruned != 1 {
		t.Fatalf("expected one pruned file, got %d", result.ImagesPruned)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale image removed, got %v", err)
	}
	kept := filepath.Join(dst, "Haus 1", "Haus 1.EG", "Haus 1.EG.Wasser_20230201_photo.jpg")
	if _, err := os.Stat(kept); err != nil {
		t.Fatalf("expected placed photo kept: %v", err)
	}
}

func TestRunFolderRequiresFolder(t *testing.T) {
	svc := newTestService(t.TempDir(), t.TempDir(), nil, nil, nil)
	if _, err := svc.RunFolder(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty folder")
	}
}
