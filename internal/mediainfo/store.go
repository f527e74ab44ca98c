package mediainfo

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
)

// FileStore keeps records in a CSV file on an afero filesystem.
type FileStore struct {
	fs   afero.Fs
	path string

	// Logger reports records that could not be written. Nil discards.
	Logger hclog.Logger
}

// NewFileStore returns a store for path on fs. A nil fs means the OS filesystem.
func NewFileStore(fs afero.Fs, path string) *FileStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileStore{fs: fs, path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the file. A missing file yields no records.
func (s *FileStore) Load() ([]Record, error) {
	f, err := s.fs.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	recs, _, err := Decode(f)
	return recs, err
}

// Save replaces the file atomically.
func (s *FileStore) Save(records []Record) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	f, err := s.fs.Create(tmp)
	if err != nil {
		return err
	}
	dropped, err := Encode(f, records)
	if err != nil {
		_ = f.Close()
		_ = s.fs.Remove(tmp)
		return err
	}
	if dropped > 0 && s.Logger != nil {
		s.Logger.Warn("media cache records not saved: key contains a line break", "count", dropped)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	return s.fs.Rename(tmp, s.path)
}

// Clear removes the file if it exists.
func (s *FileStore) Clear() error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Encode writes one line per record: key,duration_ms,size_bytes,created,last_used.
// Timestamps are RFC 3339 in UTC; fields containing commas or quotes are quoted.
// Keys containing line breaks cannot be stored one per line; those records are
// left out and counted in dropped.
func Encode(w io.Writer, records []Record) (dropped int, err error) {
	cw := csv.NewWriter(w)
	for _, r := range records {
		if strings.ContainsAny(r.Key, "\r\n") {
			dropped++
			continue
		}
		row := []string{
			r.Key,
			strconv.FormatInt(r.Duration.Milliseconds(), 10),
			strconv.FormatInt(r.Size, 10),
			r.Created.UTC().Format(time.RFC3339),
			r.LastUsed.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return dropped, err
		}
	}
	cw.Flush()
	return dropped, cw.Error()
}

// Decode reads records written by Encode. Malformed lines are skipped and counted.
func Decode(r io.Reader) (records []Record, skipped int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, perr := decodeLine(line)
		if perr != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return records, skipped, fmt.Errorf("read media cache: %w", err)
	}
	return records, skipped, nil
}

func decodeLine(line string) (Record, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	fields, err := cr.Read()
	if err != nil {
		return Record{}, err
	}
	if len(fields) < 5 {
		return Record{}, fmt.Errorf("want 5 fields, got %d", len(fields))
	}
	ms, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Record{}, err
	}
	size, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Record{}, err
	}
	created, err := time.Parse(time.RFC3339, fields[3])
	if err != nil {
		return Record{}, err
	}
	lastUsed, err := time.Parse(time.RFC3339, fields[4])
	if err != nil {
		return Record{}, err
	}
	if fields[0] == "" {
		return Record{}, errors.New("empty key")
	}
	return Record{
		Key:      fields[0],
		Duration: time.Duration(ms) * time.Millisecond,
		Size:     size,
		Created:  created,
		LastUsed: lastUsed,
	}, nil
}
