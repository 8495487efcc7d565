package syncdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"zaehlerwerk/internal/readings/domain"
)

var (
	// ErrDocumentMissing signals that a folder has no export document.
	ErrDocumentMissing = errors.New("syncdir: document missing")
	// ErrObjectIDMissing signals a document without an object identity.
	ErrObjectIDMissing = errors.New("syncdir: objectId missing")
	// ErrNoCounters signals a document without any counters.
	ErrNoCounters = errors.New("syncdir: no counters in document")
)

// Loader reads folder documents from a sync directory layout where
// each folder keeps its export at <base>/<folder>/<folder>.json.
type Loader struct {
	baseDir string
}

// NewLoader constructs a loader rooted at baseDir.
func NewLoader(baseDir string) *Loader {
	return &Loader{baseDir: baseDir}
}

// DocumentPath returns the expected document location for a folder.
func (l *Loader) DocumentPath(folder string) string {
	return filepath.Join(l.baseDir, folder, folder+".json")
}

// FolderDir returns the folder's directory under the base.
func (l *Loader) FolderDir(folder string) string {
	return filepath.Join(l.baseDir, folder)
}

// Load parses one folder document into the domain model. A missing
// file, a missing objectId, an empty counter list or a counter without
// a uuid abort the folder; unparsable dates and values degrade per
// reading instead and are kept with their raw text.
func (l *Loader) Load(folder string) (readings.Document, error) {
	raw, err := os.ReadFile(l.DocumentPath(folder))
	if err != nil {
		if os.IsNotExist(err) {
			return readings.Document{}, ErrDocumentMissing
		}
		return readings.Document{}, err
	}

	var payload documentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return readings.Document{}, err
	}
	return buildDocument(folder, payload)
}

type documentPayload struct {
	ObjectID string           `json:"objectId"`
	Rooms    []roomPayload    `json:"rooms"`
	Counters []counterPayload `json:"counters"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
	Title  string `json:"title"`
}

type counterPayload struct {
	UUID        string          `json:"uuid"`
	CounterID   string          `json:"counterId"`
	CounterName string          `json:"counterName"`
	CounterType string          `json:"counterType"`
	CounterUnit string          `json:"counterUnit"`
	RoomID      string          `json:"roomId"`
	Virtual     *virtualPayload `json:"virtualCounterData"`
	Entries     entriesPayload  `json:"entries"`
}

type virtualPayload struct {
	MasterCounterUUID string   `json:"masterCounterUuid"`
	AddUUIDs          []string `json:"counterUuidsToBeAdded"`
	SubtractUUIDs     []string `json:"counterUuidsToBeSubtracted"`
}

type entriesPayload struct {
	Entries []entryPayload `json:"entries"`
}

type entryPayload struct {
	Date               string `json:"date"`
	Value              any    `json:"value"`
	LocalImageFileName string `json:"localImageFileName"`
}

func buildDocument(folder string, payload documentPayload) (readings.Document, error) {
	if payload.ObjectID == "" {
		return readings.Document{}, ErrObjectIDMissing
	}
	if len(payload.Counters) == 0 {
		return readings.Document{}, ErrNoCounters
	}

	roomNames := make(map[string]string, len(payload.Rooms))
	for _, room := range payload.Rooms {
		if room.RoomID == "" {
			continue
		}
		name := room.Name
		if name == "" {
			name = room.Title
		}
		roomNames[room.RoomID] = name
	}

	doc := readings.Document{
		Folder:    folder,
		ObjectID:  payload.ObjectID,
		RoomNames: roomNames,
	}
	for _, counter := range payload.Counters {
		if counter.UUID == "" {
			return readings.Document{}, fmt.Errorf("%w: counter %q", readings.ErrEmptyMeterKey, counter.CounterName)
		}
		meter := readings.Meter{
			Key:       counter.UUID,
			CounterID: counter.CounterID,
			Name:      counter.CounterName,
			Type:      counter.CounterType,
			Unit:      counter.CounterUnit,
			RoomID:    counter.RoomID,
		}
		if v := counter.Virtual; v != nil {
			meter.Composition = &readings.Composition{
				MasterKey:    v.MasterCounterUUID,
				AddKeys:      v.AddUUIDs,
				SubtractKeys: v.SubtractUUIDs,
			}
		}
		doc.Meters = append(doc.Meters, meter)

		kind := readings.KindPhysical
		if strings.EqualFold(counter.CounterType, string(readings.KindVirtual)) {
			kind = readings.KindVirtual
		}
		room, object := resolveRoomAndObject(counter, roomNames)
		for _, entry := range counter.Entries.Entries {
			value := rawValueText(entry.Value)
			doc.Readings = append(doc.Readings, readings.Reading{
				MeterKey:  counter.UUID,
				CounterID: counter.CounterID,
				Name:      counter.CounterName,
				Object:    object,
				Room:      room,
				RoomID:    counter.RoomID,
				Kind:      kind,
				Type:      counter.CounterType,
				Unit:      counter.CounterUnit,
				Taken:     readings.ParseReadingDate(entry.Date),
				RawValue:  value,
				Value:     readings.ParseDecimal(value),
				ImageFile: entry.LocalImageFileName,
			})
		}
	}
	return doc, nil
}

// resolveRoomAndObject maps a counter to its room name and the object
// label. The object is the prefix of the room name before the first
// '.' or '-'; counters without a known room fall back to the prefix of
// their own name.
func resolveRoomAndObject(counter counterPayload, roomNames map[string]string) (string, string) {
	if room := roomNames[counter.RoomID]; room != "" {
		return room, objectPrefix(room)
	}
	if name := strings.TrimSpace(counter.CounterName); name != "" {
		return "", objectPrefix(name)
	}
	return "", ""
}

func objectPrefix(name string) string {
	for _, delim := range []string{".", "-"} {
		if idx := strings.Index(name, delim); idx >= 0 {
			return name[:idx]
		}
	}
	return name
}

// rawValueText renders a document value the way it was written. The
// export stores values as JSON strings or numbers depending on the
// app version that produced them.
func rawValueText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
