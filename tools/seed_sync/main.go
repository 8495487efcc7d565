package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type document struct {
	ObjectID string    `json:"objectId"`
	Rooms    []room    `json:"rooms"`
	Counters []counter `json:"counters"`
}

type room struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

type counter struct {
	UUID        string       `json:"uuid"`
	CounterID   string       `json:"counterId"`
	CounterName string       `json:"counterName"`
	CounterType string       `json:"counterType"`
	CounterUnit string       `json:"counterUnit"`
	RoomID      string       `json:"roomId"`
	Virtual     *virtualData `json:"virtualCounterData,omitempty"`
	Entries     entryList    `json:"entries"`
}

type virtualData struct {
	MasterCounterUUID string   `json:"masterCounterUuid"`
	AddUUIDs          []string `json:"counterUuidsToBeAdded"`
	SubtractUUIDs     []string `json:"counterUuidsToBeSubtracted"`
}

type entryList struct {
	Entries []entry `json:"entries"`
}

type entry struct {
	Date               string `json:"date"`
	Value              string `json:"value"`
	LocalImageFileName string `json:"localImageFileName,omitempty"`
}

type config struct {
	syncDir   string
	folders   int
	prefix    string
	startDate string
	months    int
	photos    bool
}

func main() {
	cfg := parseConfig()
	if cfg.syncDir == "" {
		log.Fatal("sync-dir is required")
	}
	if cfg.folders <= 0 {
		log.Fatal("folders must be > 0")
	}
	if cfg.months <= 0 {
		log.Fatal("months must be > 0")
	}

	start, err := parseStartDate(cfg.startDate, cfg.months)
	if err != nil {
		log.Fatalf("invalid start-date: %v", err)
	}

	for idx := 0; idx < cfg.folders; idx++ {
		folder := fmt.Sprintf("%s%d", cfg.prefix, idx+1)
		if err := writeFolder(cfg, folder, idx, start); err != nil {
			log.Fatalf("seed %s: %v", folder, err)
		}
		log.Printf("seeded folder %s (%d/%d)", folder, idx+1, cfg.folders)
	}
	log.Printf("sync seed completed")
}

func parseConfig() config {
	cfg := config{}
	flag.StringVar(&cfg.syncDir, "sync-dir", envOrDefault("SOURCE_BASE_DIR", filepath.FromSlash("var/sync")), "sync directory to seed")
	flag.IntVar(&cfg.folders, "folders", envOrInt("FOLDER_COUNT", 2), "number of folders to seed")
	flag.StringVar(&cfg.prefix, "prefix", envOrDefault("FOLDER_PREFIX", "haus"), "folder name prefix")
	flag.StringVar(&cfg.startDate, "start-date", envOrDefault("START_DATE", ""), "first reading month (YYYY-MM-DD or RFC3339)")
	flag.IntVar(&cfg.months, "months", envOrInt("MONTHS", 6), "number of monthly readings per meter")
	flag.BoolVar(&cfg.photos, "photos", envOrBool("PHOTOS", true), "write demo photos into the canonical store")
	flag.Parse()
	return cfg
}

func parseStartDate(value string, months int) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -months, 0), nil
	}
	value = strings.TrimSpace(value)
	if strings.Contains(value, "T") {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(parsed.Year(), parsed.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(parsed.Year(), parsed.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

func writeFolder(cfg config, folder string, idx int, start time.Time) error {
	objectID := fmt.Sprintf("0b%06d-aaaa-bbbb", idx+1)
	roomEG := fmt.Sprintf("ee%06d-0001", idx+1)
	roomOG := fmt.Sprintf("ee%06d-0002", idx+1)
	house := fmt.Sprintf("Haus %d", idx+1)

	water := counter{
		UUID:        fmt.Sprintf("c-%d-wasser", idx+1),
		CounterID:   fmt.Sprintf("W-%03d", idx+1),
		CounterName: house + ".EG.Wasser",
		CounterType: "WASSERZAEHLER",
		CounterUnit: "m3",
		RoomID:      roomEG,
	}
	powerEG := counter{
		UUID:        fmt.Sprintf("c-%d-strom-eg", idx+1),
		CounterID:   fmt.Sprintf("S-%03d1", idx+1),
		CounterName: house + ".EG.Strom",
		CounterType: "STROMZAEHLER",
		CounterUnit: "kWh",
		RoomID:      roomEG,
	}
	powerOG := counter{
		UUID:        fmt.Sprintf("c-%d-strom-og", idx+1),
		CounterID:   fmt.Sprintf("S-%03d2", idx+1),
		CounterName: house + ".OG.Strom",
		CounterType: "STROMZAEHLER",
		CounterUnit: "kWh",
		RoomID:      roomOG,
	}
	total := counter{
		UUID:        fmt.Sprintf("c-%d-strom-gesamt", idx+1),
		CounterID:   fmt.Sprintf("S-%03d0", idx+1),
		CounterName: house + ".Gesamt.Strom",
		CounterType: "VIRTUAL",
		CounterUnit: "kWh",
		RoomID:      roomEG,
		Virtual: &virtualData{
			MasterCounterUUID: fmt.Sprintf("c-%d-strom-eg", idx+1),
			AddUUIDs:          []string{fmt.Sprintf("c-%d-strom-og", idx+1)},
		},
	}

	waterValue := 10000 + idx*500
	egValue := 500 + idx*20
	ogValue := 300 + idx*15
	var photoFile string
	for m := 0; m < cfg.months; m++ {
		day := start.AddDate(0, m, 0).Format("2006-01-02")

		waterValue += 1500 + ((idx+m)%7)*90
		waterText := strconv.Itoa(waterValue)
		if m%4 == 2 {
			waterText += ",5"
		}
		waterEntry := entry{Date: day, Value: waterText}
		if cfg.photos && m == cfg.months-1 {
			photoFile = "zaehlerstand.jpg"
			waterEntry.LocalImageFileName = photoFile
		}
		water.Entries.Entries = append(water.Entries.Entries, waterEntry)

		// The first folder gets a meter swap halfway through the series.
		if idx == 0 && cfg.months >= 4 && m == cfg.months/2 {
			egValue = 12
		} else {
			egValue += 110 + ((m*13 + idx) % 50)
		}
		powerEG.Entries.Entries = append(powerEG.Entries.Entries, entry{Date: day, Value: strconv.Itoa(egValue)})

		ogValue += 90 + ((m * 7) % 40)
		powerOG.Entries.Entries = append(powerOG.Entries.Entries, entry{Date: day, Value: strconv.Itoa(ogValue)})
	}

	doc := document{
		ObjectID: objectID,
		Rooms: []room{
			{RoomID: roomEG, Name: house + ".EG"},
			{RoomID: roomOG, Name: house + ".OG"},
		},
		Counters: []counter{water, powerEG, powerOG, total},
	}

	dir := filepath.Join(cfg.syncDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, folder+".json"), data, 0o644); err != nil {
		return err
	}

	if photoFile != "" {
		store := filepath.Join(dir, "."+objectID)
		if err := os.MkdirAll(store, 0o755); err != nil {
			return err
		}
		name := objectID + "_" + roomEG + "_" + photoFile
		if err := os.WriteFile(filepath.Join(store, name), []byte("demo photo"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envOrBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
