package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	require.NoError(t, s.Ensure())
	return s
}

func TestEnsureAndCheck(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "data"))
	for _, ok := range s.Check() {
		assert.False(t, ok)
	}

	require.NoError(t, s.Ensure())
	check := s.Check()
	require.Len(t, check, len(Areas))
	for a, ok := range check {
		assert.True(t, ok, "area %s", a)
	}
}

func TestPutFindRead(t *testing.T) {
	s := newStore(t)
	id := NewFileID()

	_, err := s.Put(Uploads, UploadName(id, ".PNG"), []byte("image"))
	require.NoError(t, err)

	e, err := s.Find(Uploads, id)
	require.NoError(t, err)
	assert.Equal(t, id+".png", e.Name)
	assert.Equal(t, int64(5), e.Size)

	data, e2, err := s.Read(Uploads, id)
	require.NoError(t, err)
	assert.Equal(t, "image", string(data))
	assert.Equal(t, e.Name, e2.Name)
}

func TestFind_SubstringInNameOrder(t *testing.T) {
	s := newStore(t)
	_, err := s.Put(OCRResults, "ocr_result_abc_200.txt", []byte("second"))
	require.NoError(t, err)
	_, err = s.Put(OCRResults, "ocr_result_abc_100.txt", []byte("first"))
	require.NoError(t, err)

	e, err := s.Find(OCRResults, "abc")
	require.NoError(t, err)
	assert.Equal(t, "ocr_result_abc_100.txt", e.Name)
}

func TestFindLatest(t *testing.T) {
	s := newStore(t)
	_, err := s.Put(OCRResults, "ocr_result_abc_100.txt", []byte("old"))
	require.NoError(t, err)
	_, err = s.Put(OCRResults, "ocr_result_abc_200.txt", []byte("new"))
	require.NoError(t, err)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(s.Root(), string(OCRResults), "ocr_result_abc_100.txt"), old, old))

	e, err := s.FindLatest(OCRResults, "abc")
	require.NoError(t, err)
	assert.Equal(t, "ocr_result_abc_200.txt", e.Name)

	data, err := s.ReadEntry(e)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestNotFound(t *testing.T) {
	s := newStore(t)

	_, err := s.Find(Reports, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, _, err = s.Read(Reports, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Delete(Reports, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Find(Reports, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.FindLatest(Reports, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	s := newStore(t)
	_, err := s.Put(Reports, "report_b.json", []byte("{}"))
	require.NoError(t, err)
	_, err = s.Put(Reports, "report_a.csv", []byte("a,b"))
	require.NoError(t, err)

	entries, err := s.List(Reports)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "report_a.csv", entries[0].Name)
	assert.Equal(t, "report_b.json", entries[1].Name)
	assert.Equal(t, Reports, entries[0].Area)
}

func TestList_MissingAreaIsEmpty(t *testing.T) {
	s := New(t.TempDir())
	entries, err := s.List(Processed)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	_, err := s.Put(AttributeResults, "attributes_x1_1.json", []byte("{}"))
	require.NoError(t, err)

	e, err := s.Delete(AttributeResults, "x1")
	require.NoError(t, err)
	assert.Equal(t, "attributes_x1_1.json", e.Name)

	_, err = s.Find(AttributeResults, "x1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPut_RejectsPathNames(t *testing.T) {
	s := newStore(t)
	for _, name := range []string{"", "..", "../escape.txt", `a\b`, "dir/file"} {
		_, err := s.Put(Uploads, name, []byte("x"))
		assert.Error(t, err, "name %q", name)
	}
}

func TestNewFileID(t *testing.T) {
	a, b := NewFileID(), NewFileID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestIDFromName(t *testing.T) {
	at := time.Unix(1700000000, 0)
	id := "3f2a"
	assert.Equal(t, id, IDFromName(UploadName(id, ".pdf")))
	assert.Equal(t, id, IDFromName(ProcessedName(id, ".png", at)))
	assert.Equal(t, id, IDFromName(OCRResultName(id, at)))
	assert.Equal(t, id, IDFromName(AttributeResultName(id, at)))
	assert.Equal(t, "report_standard_1700000000.json", ReportName("standard", "json", at))
}
