package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/lukasz-zimnoch/dexly/voluba"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	SourceName = "files"

	dayFileLayout  = "2006-01-02"
	latestFileName = "latest.json"

	// latestWindow is the span of minutes, counted back from the newest
	// one, written into the latest file. It has to exceed the poll window
	// so a poll starting up to two minutes before the newest minute is
	// still served from the latest file.
	latestWindow = 5 * time.Minute
)

// Repository keeps minute bars in one JSON file per UTC day plus a small
// latest file holding the newest minutes. Readers polling for fresh data
// are served from the latest file whenever it covers the requested range.
type Repository struct {
	mutex    sync.Mutex
	dataPath string
}

func NewRepository(dataPath string) (*Repository, error) {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("could not create data directory: [%v]", err)
	}

	return &Repository{dataPath: dataPath}, nil
}

func (r *Repository) SourceName() string {
	return SourceName
}

// SaveMinuteBars upserts the bars into their day files. A minute already
// present in a file is replaced as a whole.
func (r *Repository) SaveMinuteBars(
	_ context.Context,
	minuteBars ...*voluba.MinuteBar,
) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	byDay := make(map[string]voluba.MinuteBars)
	var newest int64

	for _, minuteBar := range minuteBars {
		if minuteBar == nil {
			continue
		}

		day := minuteBar.Time().Format(dayFileLayout)
		byDay[day] = append(byDay[day], minuteBar)

		if minuteBar.Timestamp > newest {
			newest = minuteBar.Timestamp
		}
	}

	if len(byDay) == 0 {
		return nil
	}

	var newestDay voluba.MinuteBars

	for day, incoming := range byDay {
		existing, err := r.readFile(r.dayFilePath(day))
		if err != nil {
			return err
		}

		updated := upsert(existing, incoming)

		if err := r.writeFile(r.dayFilePath(day), updated); err != nil {
			return err
		}

		if day == time.Unix(newest, 0).UTC().Format(dayFileLayout) {
			newestDay = updated
		}
	}

	// The newest day file may hold minutes saved earlier that are newer
	// than this batch.
	last := newestDay.Last()
	latest := newestDay.Since(
		last.Timestamp - int64(latestWindow/time.Second) + voluba.MinuteSeconds,
	)

	return r.writeFile(filepath.Join(r.dataPath, latestFileName), latest)
}

// MinuteBars reads the bars of minutes starting in [start, end].
func (r *Repository) MinuteBars(
	_ context.Context,
	start, end time.Time,
) (voluba.MinuteBars, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	latest, err := r.readFile(filepath.Join(r.dataPath, latestFileName))
	if err != nil {
		return nil, err
	}

	// Day files hold nothing newer than the latest file, so it is enough
	// when the range does not reach before its first minute.
	if len(latest) > 0 && latest[0].Timestamp <= start.Unix() {
		return latest.Between(start, end), nil
	}

	result := make(voluba.MinuteBars, 0)

	firstDay := start.UTC().Truncate(24 * time.Hour)
	for day := firstDay; !day.After(end); day = day.Add(24 * time.Hour) {
		minuteBars, err := r.readFile(r.dayFilePath(day.Format(dayFileLayout)))
		if err != nil {
			return nil, err
		}

		result = append(result, minuteBars.Between(start, end)...)
	}

	return result, nil
}

func (r *Repository) dayFilePath(day string) string {
	return filepath.Join(r.dataPath, day+".json")
}

// readFile returns an empty sequence when the file does not exist yet.
func (r *Repository) readFile(path string) (voluba.MinuteBars, error) {
	content, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(voluba.MinuteBars, 0), nil
		}
		return nil, fmt.Errorf("could not read file [%v]: [%v]", path, err)
	}

	var minuteBars voluba.MinuteBars
	if err := json.Unmarshal(content, &minuteBars); err != nil {
		return nil, fmt.Errorf("could not decode file [%v]: [%v]", path, err)
	}

	sort.Slice(minuteBars, func(i, j int) bool {
		return minuteBars[i].Timestamp < minuteBars[j].Timestamp
	})

	return minuteBars, nil
}

// writeFile replaces the file atomically so concurrent readers never see
// a partially written document.
func (r *Repository) writeFile(path string, minuteBars voluba.MinuteBars) error {
	if minuteBars == nil {
		minuteBars = make(voluba.MinuteBars, 0)
	}

	content, err := json.MarshalIndent(minuteBars, "", "    ")
	if err != nil {
		return fmt.Errorf("could not encode minute bars: [%v]", err)
	}

	temporary := path + ".tmp"

	if err := ioutil.WriteFile(temporary, content, 0644); err != nil {
		return fmt.Errorf("could not write file [%v]: [%v]", temporary, err)
	}

	if err := os.Rename(temporary, path); err != nil {
		return fmt.Errorf("could not replace file [%v]: [%v]", path, err)
	}

	return nil
}

// upsert replaces minutes with matching timestamps and keeps the result
// ordered.
func upsert(existing, incoming voluba.MinuteBars) voluba.MinuteBars {
	byTimestamp := make(map[int64]*voluba.MinuteBar, len(existing)+len(incoming))

	for _, minuteBar := range existing {
		byTimestamp[minuteBar.Timestamp] = minuteBar
	}
	for _, minuteBar := range incoming {
		byTimestamp[minuteBar.Timestamp] = minuteBar
	}

	result := make(voluba.MinuteBars, 0, len(byTimestamp))
	for _, minuteBar := range byTimestamp {
		result = append(result, minuteBar)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})

	return result
}
