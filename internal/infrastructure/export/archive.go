package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/smcen/registrar/internal/domain/shared"
)

// FailureManifestName is the archive entry listing students that were skipped.
const FailureManifestName = "FAILED.txt"

// Entry is one named file headed for an archive.
type Entry struct {
	Name string
	Data []byte
}

// Failure records a student that could not be rendered.
type Failure struct {
	Name string
	Err  error
}

// ArchiveWriter packs entries into a deflate-compressed zip stream. Every
// entry carries the same modification time so identical inputs produce
// identical archives.
type ArchiveWriter struct {
	zw       *zip.Writer
	modified time.Time
	names    *nameSet
	count    int
}

// NewArchiveWriter starts an archive on w.
func NewArchiveWriter(w io.Writer, modified time.Time) *ArchiveWriter {
	return &ArchiveWriter{
		zw:       zip.NewWriter(w),
		modified: modified,
		names:    newNameSet(),
	}
}

// Add appends an entry and returns the name it was stored under, which
// differs from name only when name was already taken.
func (a *ArchiveWriter) Add(name string, data []byte) (string, error) {
	stored := a.names.claim(name)

	hdr := &zip.FileHeader{
		Name:     stored,
		Method:   zip.Deflate,
		Modified: a.modified,
	}
	fw, err := a.zw.CreateHeader(hdr)
	if err != nil {
		return "", shared.WrapError("export", "ArchiveAdd", shared.ErrRendering, "create entry "+stored, err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", shared.WrapError("export", "ArchiveAdd", shared.ErrRendering, "write entry "+stored, err)
	}
	a.count++
	return stored, nil
}

// Count returns the number of entries written so far.
func (a *ArchiveWriter) Count() int { return a.count }

// AddFailures appends the failure manifest. It does nothing when failures
// is empty.
func (a *ArchiveWriter) AddFailures(failures []Failure) error {
	if len(failures) == 0 {
		return nil
	}
	var sb strings.Builder
	for _, f := range failures {
		fmt.Fprintf(&sb, "%s: %v\n", f.Name, f.Err)
	}
	_, err := a.Add(FailureManifestName, []byte(sb.String()))
	return err
}

// Close writes the central directory.
func (a *ArchiveWriter) Close() error {
	if err := a.zw.Close(); err != nil {
		return shared.WrapError("export", "ArchiveClose", shared.ErrRendering, "finalize archive", err)
	}
	return nil
}

// Fold drains entries into a until the channel closes or ctx is done. It
// returns the number of entries written. Producers must stop sending once
// ctx is done.
func Fold(ctx context.Context, a *ArchiveWriter, entries <-chan Entry) (int, error) {
	written := 0
	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		case e, ok := <-entries:
			if !ok {
				return written, nil
			}
			if _, err := a.Add(e.Name, e.Data); err != nil {
				return written, err
			}
			written++
		}
	}
}
