package nulldist

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/snpko/internal/genotype"
)

// Archive holds the pruned inputs a permutation batch resamples from. It is
// written once, before any trial, and only ever read afterwards.
type Archive struct {
	Experimental *genotype.Cohort
	Reference    *genotype.Matrix
}

// Fingerprint holds stat-based identity for an archive source file.
type Fingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a Fingerprint from an on-disk file.
func StatFile(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// ArchiveStore manages a gob-serialized Archive on disk:
//
//	{dir}/original.gob       (archived matrices)
//	{dir}/original.gob.meta  (source file fingerprints)
type ArchiveStore struct {
	dir string
}

// NewArchiveStore creates an archive store for the given directory.
func NewArchiveStore(dir string) *ArchiveStore {
	return &ArchiveStore{dir: dir}
}

func (as *ArchiveStore) gobPath() string {
	return filepath.Join(as.dir, "original.gob")
}

func (as *ArchiveStore) metaPath() string {
	return filepath.Join(as.dir, "original.gob.meta")
}

// matrixRecord is the gob form of a genotype.Matrix.
type matrixRecord struct {
	Subjects []string
	Columns  []string
	Values   []float64
}

type archiveRecord struct {
	Dosages   matrixRecord
	Labels    matrixRecord
	Reference matrixRecord
}

func toRecord(m *genotype.Matrix) matrixRecord {
	if m == nil {
		return matrixRecord{}
	}
	return matrixRecord{Subjects: m.Subjects(), Columns: m.Columns(), Values: m.Values()}
}

func (r matrixRecord) matrix() (*genotype.Matrix, error) {
	return genotype.NewMatrixFrom(r.Subjects, r.Columns, r.Values)
}

// Valid reports whether the archive exists and was built from the given sources.
func (as *ArchiveStore) Valid(sources ...Fingerprint) bool {
	meta, err := as.readMeta()
	if err != nil {
		return false
	}
	if meta["sources"] != strconv.Itoa(len(sources)) {
		return false
	}
	for i, fp := range sources {
		for k, v := range fingerprintFields(i, fp) {
			if meta[k] != v {
				return false
			}
		}
	}

	if _, err := os.Stat(as.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads the archive from disk.
func (as *ArchiveStore) Load() (*Archive, error) {
	f, err := os.Open(as.gobPath())
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var rec archiveRecord
	if err := gob.NewDecoder(f).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}

	dosages, err := rec.Dosages.matrix()
	if err != nil {
		return nil, fmt.Errorf("decode archive dosages: %w", err)
	}
	var labels *genotype.Matrix
	if len(rec.Labels.Subjects) > 0 {
		if labels, err = rec.Labels.matrix(); err != nil {
			return nil, fmt.Errorf("decode archive labels: %w", err)
		}
	}
	reference, err := rec.Reference.matrix()
	if err != nil {
		return nil, fmt.Errorf("decode archive reference: %w", err)
	}
	return &Archive{
		Experimental: &genotype.Cohort{Dosages: dosages, Labels: labels},
		Reference:    reference,
	}, nil
}

// Write serializes the archive and records the source fingerprints.
func (as *ArchiveStore) Write(a *Archive, sources ...Fingerprint) error {
	if err := os.MkdirAll(as.dir, 0755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	rec := archiveRecord{
		Dosages:   toRecord(a.Experimental.Dosages),
		Labels:    toRecord(a.Experimental.Labels),
		Reference: toRecord(a.Reference),
	}

	f, err := os.Create(as.gobPath())
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(rec); err != nil {
		f.Close()
		os.Remove(as.gobPath())
		return fmt.Errorf("encode archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	return as.writeMeta(sources)
}

// Clear removes the archive files.
func (as *ArchiveStore) Clear() {
	os.Remove(as.gobPath())
	os.Remove(as.metaPath())
}

func fingerprintFields(i int, fp Fingerprint) map[string]string {
	prefix := "source" + strconv.Itoa(i)
	return map[string]string{
		prefix + "_path":    fp.Path,
		prefix + "_size":    strconv.FormatInt(fp.Size, 10),
		prefix + "_modtime": fp.ModTime.UTC().Format(time.RFC3339Nano),
	}
}

func (as *ArchiveStore) writeMeta(sources []Fingerprint) error {
	lines := []string{"sources=" + strconv.Itoa(len(sources))}
	for i, fp := range sources {
		prefix := "source" + strconv.Itoa(i)
		lines = append(lines,
			prefix+"_path="+fp.Path,
			prefix+"_size="+strconv.FormatInt(fp.Size, 10),
			prefix+"_modtime="+fp.ModTime.UTC().Format(time.RFC3339Nano))
	}
	lines = append(lines, "created_at="+time.Now().UTC().Format(time.RFC3339), "")
	return os.WriteFile(as.metaPath(), []byte(strings.Join(lines, "\n")), 0644)
}

func (as *ArchiveStore) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(as.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
