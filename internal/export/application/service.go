package application

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"zaehlerwerk/internal/export/interfaces/pdfreport"
	"zaehlerwerk/internal/export/interfaces/workbook"
	"zaehlerwerk/internal/export/notify"
	"zaehlerwerk/internal/images"
	"zaehlerwerk/internal/observability/metrics"
	readings "zaehlerwerk/internal/readings/domain"
	"zaehlerwerk/internal/readings/infrastructure/syncdir"
)

// combinedWorkbookName is the all-folders workbook at the target root.
const combinedWorkbookName = "zaehler+.xlsx"

// HistoryArchive persists period snapshots across runs.
type HistoryArchive interface {
	SaveSnapshots(ctx context.Context, folder string, rows []readings.SnapshotRow) error
}

// FolderResult carries one folder's exported dataset and run counters.
type FolderResult struct {
	Dataset      workbook.Dataset
	WorkbookPath string
	ImagesPlaced int
	ImagesPruned int
	RemovedOld   int
}

// RunResult summarizes a full run over the configured folders.
type RunResult struct {
	Folders  []FolderResult
	Failed   []string
	Duration time.Duration
}

// ExportService drives the per-folder pipeline: load the document,
// place photos, synthesize virtual meters, annotate, build the period
// views, normalize, write the workbooks and archive the snapshots.
type ExportService struct {
	cfg      Config
	loader   *syncdir.Loader
	writer   *workbook.Writer
	history  HistoryArchive
	notifier notify.Notifier
	clock    readings.Clock
	logger   *log.Logger
}

// NewExportService constructs an ExportService. The archive and the
// notifier may be nil; a nil clock falls back to the system clock.
func NewExportService(cfg Config, loader *syncdir.Loader, writer *workbook.Writer, history HistoryArchive, notifier notify.Notifier, clock readings.Clock, logger *log.Logger) *ExportService {
	if clock == nil {
		clock = readings.SystemClock{}
	}
	return &ExportService{
		cfg:      cfg,
		loader:   loader,
		writer:   writer,
		history:  history,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// RunAll exports every configured folder and then writes the combined
// workbook over the successful ones. A failing folder is recorded and
// skipped, the remaining folders still run.
func (s *ExportService) RunAll(ctx context.Context) (RunResult, error) {
	if s == nil || s.loader == nil || s.writer == nil {
		return RunResult{}, errors.New("export service: not wired")
	}
	started := s.clock.Now()

	var run RunResult
	var combined workbook.Combined
	for _, folder := range s.cfg.Folders {
		if folder == "" {
			continue
		}
		result, err := s.RunFolder(ctx, folder)
		if err != nil {
			run.Failed = append(run.Failed, folder)
			continue
		}
		run.Folders = append(run.Folders, result)
		combined.Raw = append(combined.Raw, result.Dataset.Raw...)
		combined.Yearly = append(combined.Yearly, result.Dataset.Yearly...)
		combined.Monthly = append(combined.Monthly, result.Dataset.Monthly...)
		combined.Folders = append(combined.Folders, workbook.FolderConsumption{
			Folder: folder,
			Rows:   result.Dataset.Consumption,
		})
	}

	if len(run.Folders) > 0 {
		if err := s.writeCombined(combined); err != nil {
			s.logf("combined_workbook_failed", "", err.Error())
		}
	}

	run.Duration = s.clock.Now().Sub(started)
	s.notifyRun(ctx, run)
	return run, nil
}

// RunFolder exports a single folder into the target directory.
func (s *ExportService) RunFolder(ctx context.Context, folder string) (FolderResult, error) {
	if s == nil || s.loader == nil || s.writer == nil {
		return FolderResult{}, errors.New("export service: not wired")
	}
	if folder == "" {
		return FolderResult{}, errors.New("export service: folder required")
	}

	started := s.clock.Now()
	result, err := s.exportFolder(ctx, folder, started)
	duration := s.clock.Now().Sub(started)
	if err != nil {
		metrics.ObserveFolderRun(metrics.ResultError, duration)
		s.logf("export_folder_failed", folder, err.Error())
		return FolderResult{}, err
	}
	metrics.ObserveFolderRun(metrics.ResultSuccess, duration)
	s.logf("export_folder_done", folder, "")
	return result, nil
}

func (s *ExportService) exportFolder(ctx context.Context, folder string, now time.Time) (FolderResult, error) {
	doc, err := s.loader.Load(folder)
	if err != nil {
		return FolderResult{}, err
	}
	if err := os.MkdirAll(s.cfg.TargetBaseDir, 0o755); err != nil {
		return FolderResult{}, err
	}

	placed, expected := s.placeImages(&doc)
	s.countParseFailures(doc.Readings)

	rows := append(doc.Readings, readings.SynthesizeVirtualReadings(doc.Meters, doc.Readings, doc.RoomNames)...)

	annotated := readings.AnnotateAll(rows, now)
	yearly, err := readings.BuildSnapshots(rows, readings.GranularityYear, now)
	if err != nil {
		return FolderResult{}, err
	}
	monthly, err := readings.BuildSnapshots(rows, readings.GranularityMonth, now)
	if err != nil {
		return FolderResult{}, err
	}
	consumption := readings.BuildConsumptionSeries(rows)

	mapping := readings.BuildVirtualMapping(doc.Meters)
	readings.SortRows(annotated, readings.BuildSortKeys(readings.Labels(annotated), mapping))
	readings.SortSnapshotRows(yearly, readings.BuildSortKeys(readings.SnapshotLabels(yearly), mapping))
	readings.SortSnapshotRows(monthly, readings.BuildSortKeys(readings.SnapshotLabels(monthly), mapping))

	readings.NormalizeVolumetric(annotated)
	readings.NormalizeVolumetricSnapshots(yearly)
	readings.NormalizeVolumetricSnapshots(monthly)
	readings.NormalizeVolumetricConsumption(consumption)

	dataset := workbook.Dataset{
		Folder:      folder,
		Raw:         annotated,
		Yearly:      yearly,
		Monthly:     monthly,
		Consumption: consumption,
	}

	data, err := s.writer.BuildDataset(dataset, s.cfg.TargetBaseDir)
	if err != nil {
		return FolderResult{}, err
	}
	path, err := workbook.WriteTimestamped(s.cfg.TargetBaseDir, folder, now, data)
	if err != nil {
		return FolderResult{}, err
	}
	removed, err := workbook.Rotate(s.cfg.TargetBaseDir, folder, s.cfg.KeepWorkbooks)
	if err != nil {
		s.logf("workbook_rotate_failed", folder, err.Error())
	}
	if _, err := workbook.CopyLatest(s.cfg.TargetBaseDir, folder, data); err != nil {
		return FolderResult{}, err
	}

	if err := s.writeSummaryPDF(folder, monthly, now); err != nil {
		s.logf("summary_pdf_failed", folder, err.Error())
	}

	pruned := 0
	if s.cfg.PruneImages {
		pruned = images.Prune(s.cfg.TargetBaseDir, expected)
		metrics.AddImagesPruned(pruned)
	}

	if s.history != nil {
		snapshots := append(append([]readings.SnapshotRow{}, yearly...), monthly...)
		if err := s.history.SaveSnapshots(ctx, folder, snapshots); err != nil {
			s.logf("history_archive_failed", folder, err.Error())
		}
	}

	s.recordTableMetrics(dataset, len(data), placed)
	s.logInventory(folder, doc.Readings)

	return FolderResult{
		Dataset:      dataset,
		WorkbookPath: path,
		ImagesPlaced: placed,
		ImagesPruned: pruned,
		RemovedOld:   removed,
	}, nil
}

// placeImages resolves every reading's photo into the visible target
// tree and returns the placement count plus the absolute destinations
// the prune pass must keep.
func (s *ExportService) placeImages(doc *readings.Document) (int, []string) {
	canonical := filepath.Join(s.loader.FolderDir(doc.Folder), "."+doc.ObjectID)
	resolver := images.NewResolver(canonical, s.cfg.TargetBaseDir, images.ParseMode(s.cfg.ImageMode))

	placed := 0
	var expected []string
	for i := range doc.Readings {
		placement, ok, err := resolver.Place(doc.ObjectID, doc.Readings[i])
		if err != nil {
			s.logf("image_place_failed", doc.Folder, err.Error())
			continue
		}
		if !ok {
			continue
		}
		doc.Readings[i].ImagePath = placement.Rel
		doc.Readings[i].ImageTarget = placement.Dest
		expected = append(expected, placement.Dest)
		placed++
	}
	return placed, expected
}

func (s *ExportService) countParseFailures(rows []readings.Reading) {
	for _, row := range rows {
		if !row.Taken.Valid && row.Taken.Display != "" {
			metrics.IncParseFailure("date")
		}
		if row.Value == nil && row.RawValue != "" {
			metrics.IncParseFailure("value")
		}
	}
}

func (s *ExportService) writeSummaryPDF(folder string, monthly []readings.SnapshotRow, now time.Time) error {
	summary := readings.BuildMonthlySummary(monthly)
	if len(summary) == 0 {
		return nil
	}
	data, err := pdfreport.BuildSummaryPDF(folder, summary, now)
	if err != nil {
		return err
	}
	name := workbook.SafeFileName(folder) + "-monatsuebersicht.pdf"
	return os.WriteFile(filepath.Join(s.cfg.TargetBaseDir, name), data, 0o644)
}

func (s *ExportService) writeCombined(c workbook.Combined) error {
	data, err := s.writer.BuildCombined(c, s.cfg.TargetBaseDir)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.cfg.TargetBaseDir, combinedWorkbookName), data, 0o644)
}

func (s *ExportService) notifyRun(ctx context.Context, run RunResult) {
	if s.notifier == nil {
		return
	}
	report := notify.RunReport{
		Folders:  len(run.Folders),
		Failed:   run.Failed,
		Duration: run.Duration,
	}
	for _, result := range run.Folders {
		report.Rows += len(result.Dataset.Raw)
		report.Images += result.ImagesPlaced
	}
	if err := s.notifier.Notify(ctx, report); err != nil {
		s.logf("notify_failed", "", err.Error())
	}
}

func (s *ExportService) recordTableMetrics(ds workbook.Dataset, workbookSize, placed int) {
	metrics.AddRowsExported(metrics.TableRaw, len(ds.Raw))
	metrics.AddRowsExported(metrics.TableYearly, len(ds.Yearly))
	metrics.AddRowsExported(metrics.TableMonthly, len(ds.Monthly))
	metrics.AddRowsExported(metrics.TableConsumption, len(ds.Consumption))

	resets := 0
	for _, row := range ds.Raw {
		if row.Reset {
			resets++
		}
	}
	metrics.AddResetsDetected(resets)
	metrics.SetWorkbookBytes(ds.Folder, workbookSize)
	metrics.AddImagesPlaced(placed)
}

// logInventory prints the folder's reading coverage: the overall date
// range and, per room and meter, the count and the last reading day.
func (s *ExportService) logInventory(folder string, rows []readings.Reading) {
	if s.logger == nil || len(rows) == 0 {
		return
	}

	type meterGroup struct{ room, name string }
	counts := make(map[meterGroup]int)
	last := make(map[meterGroup]string)
	var groups []meterGroup
	oldest, newest := "", ""
	for _, row := range rows {
		if !row.Taken.Valid {
			continue
		}
		day := row.Taken.ISO
		if oldest == "" || day < oldest {
			oldest = day
		}
		if day > newest {
			newest = day
		}
		key := meterGroup{room: row.Room, name: row.Name}
		if counts[key] == 0 {
			groups = append(groups, key)
		}
		counts[key]++
		if day > last[key] {
			last[key] = day
		}
	}
	if oldest == "" {
		return
	}

	s.logger.Printf("%s: readings %s .. %s", folder, oldest, newest)
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].room != groups[j].room {
			return groups[i].room < groups[j].room
		}
		return groups[i].name < groups[j].name
	})
	for _, key := range groups {
		s.logger.Printf("%s  T:%s  #%d  last:%s", key.room, key.name, counts[key], last[key])
	}
}

func (s *ExportService) logf(event, folder, errMsg string) {
	if s.logger == nil {
		return
	}
	s.logger.Printf("event=%s folder=%s error=%s", event, folder, errMsg)
}
