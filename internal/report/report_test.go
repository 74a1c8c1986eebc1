package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/archindex/internal/attributes"
	"github.com/dgallion1/archindex/internal/stats"
	"github.com/dgallion1/archindex/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const ocrText = "Иванов И.И. 05.04.1960 <b>Фонд 10, опись 5</b>"

func newAssembler(t *testing.T, opts Options) (*Assembler, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir())
	require.NoError(t, st.Ensure())
	at := time.Unix(1700000000, 0)

	_, err := st.Put(store.Uploads, store.UploadName("f1", ".png"), []byte("img"))
	require.NoError(t, err)
	_, err = st.Put(store.OCRResults, store.OCRResultName("f1", at), []byte(ocrText))
	require.NoError(t, err)
	rec := attributes.Record{FileID: "f1", Result: attributes.Analyze(ocrText), TextLength: len([]rune(ocrText)), ExtractedAt: at}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	_, err = st.Put(store.AttributeResults, store.AttributeResultName("f1", at), raw)
	require.NoError(t, err)

	agg := stats.NewAggregator(st, stats.NewLatency(time.Hour), time.Hour)
	a := NewAssembler(st, agg, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.now = func() time.Time { return at }
	return a, st
}

func generate(t *testing.T, a *Assembler, req Request) (*Meta, []byte) {
	t.Helper()
	meta, err := a.Generate(context.Background(), req)
	require.NoError(t, err)
	body, _, err := a.Open(meta.ID)
	require.NoError(t, err)
	return meta, body
}

func TestGenerate_JSONStandard(t *testing.T) {
	a, _ := newAssembler(t, Options{})
	meta, body := generate(t, a, Request{FileIDs: []string{"f1", "f2"}, IncludeOCRText: true, IncludeAttributes: true})

	assert.Equal(t, "report_standard_1700000000", meta.ID)
	assert.Equal(t, Standard, meta.Type)
	assert.Equal(t, JSON, meta.Format)
	assert.Equal(t, 2, meta.TotalFiles)
	assert.Equal(t, 1, meta.ProcessedFiles)
	assert.Equal(t, int64(len(body)), meta.Size)

	var d Data
	require.NoError(t, json.Unmarshal(body, &d))
	assert.Equal(t, 2, d.Info.TotalFiles)
	require.Len(t, d.Files, 2)
	assert.Equal(t, "f1", d.Files[0].FileID)
	assert.Equal(t, ocrText, d.Files[0].OCRText)
	require.NotNil(t, d.Files[0].Attributes)
	assert.Equal(t, "Иванов И.И.", d.Files[0].Attributes.Attributes[attributes.PersonName])
	assert.Nil(t, d.Files[0].Attributes.Positions)

	assert.Equal(t, "f2", d.Files[1].FileID)
	assert.Nil(t, d.Files[1].OriginalFile)
	assert.Nil(t, d.Files[1].Attributes)
}

func TestGenerate_SummaryDropsText(t *testing.T) {
	a, _ := newAssembler(t, Options{})
	meta, _ := generate(t, a, Request{FileIDs: []string{"f1"}, Type: Summary, IncludeOCRText: true})
	f := meta.Data.Files[0]
	assert.Empty(t, f.OCRText)
	require.NotNil(t, f.Attributes)
	assert.Empty(t, f.Attributes.Highlighted)
	assert.Equal(t, "05.04.1960", f.Attributes.Attributes[attributes.Date])
}

func TestGenerate_DetailedKeepsPositions(t *testing.T) {
	a, _ := newAssembler(t, Options{})
	meta, _ := generate(t, a, Request{FileIDs: []string{"f1"}, Type: Detailed, IncludeAttributes: true})
	f := meta.Data.Files[0]
	assert.Equal(t, ocrText, f.OCRText)
	require.NotNil(t, f.Attributes)
	assert.NotEmpty(t, f.Attributes.Positions[attributes.PersonName])
}

func TestGenerate_CSV(t *testing.T) {
	a, _ := newAssembler(t, Options{})
	meta, body := generate(t, a, Request{FileIDs: []string{"f1", "f2"}, Format: CSV, IncludeAttributes: true})
	assert.True(t, strings.HasSuffix(meta.Filename, ".csv"))

	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"file_id", "original_file", "fio", "date", "address", "archive_code", "document_number", "organization"}, records[0])
	assert.Equal(t, "f1.png", records[1][1])
	assert.Equal(t, "Иванов И.И.", records[1][2])
	assert.Equal(t, "Фонд 10, опись 5", records[1][5])
	assert.Equal(t, []string{"f2", "", "", "", "", "", "", ""}, records[2])
}

func TestGenerate_DetailedCSVHasValidity(t *testing.T) {
	a, _ := newAssembler(t, Options{})
	_, body := generate(t, a, Request{FileIDs: []string{"f1"}, Type: Detailed, Format: CSV})
	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	header := records[0]
	assert.Contains(t, header, "fio_valid")
	assert.Contains(t, header, "text_length")
	assert.Equal(t, "ocr_text", header[len(header)-1])
	assert.Equal(t, ocrText, records[1][len(header)-1])
}

func TestGenerate_ArchiveColumnOrder(t *testing.T) {
	a, _ := newAssembler(t, Options{})
	_, body := generate(t, a, Request{FileIDs: []string{"f1"}, Type: Archive, Format: CSV})
	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "archive_code", records[0][2])
	assert.Equal(t, "Фонд 10, опись 5", records[1][2])
}

func TestGenerate_XLSX(t *testing.T) {
	a, _ := newAssembler(t, Options{})
	_, body := generate(t, a, Request{FileIDs: []string{"f1"}, Format: XLSX, IncludeAttributes: true})

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "file_id", rows[0][0])
	assert.Equal(t, "Иванов И.И.", rows[1][2])
}

func TestGenerate_HTMLEscapesAndHighlights(t *testing.T) {
	a, _ := newAssembler(t, Options{})
	_, body := generate(t, a, Request{FileIDs: []string{"f1"}, Format: HTML, IncludeOCRText: true, IncludeAttributes: true})
	html := string(body)
	assert.Contains(t, html, "Стандартный отчёт")
	assert.Contains(t, html, `<span class="attribute attribute-fio"`)
	assert.Contains(t, html, "&lt;b&gt;")
	assert.NotContains(t, html, "<b>")
}

func TestGenerate_XML(t *testing.T) {
	a, _ := newAssembler(t, Options{})
	_, body := generate(t, a, Request{FileIDs: []string{"f1"}, Format: XML, IncludeAttributes: true})
	out := string(body)
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `<file id="f1">`)
	assert.Contains(t, out, `kind="fio"`)
	assert.Contains(t, out, "Иванов И.И.")
}

func TestGenerate_PDFPlaceholder(t *testing.T) {
	a, _ := newAssembler(t, Options{})
	meta, body := generate(t, a, Request{FileIDs: []string{"f1"}, Format: PDF})
	assert.Equal(t, PDF, meta.Format)
	assert.Contains(t, string(body), "Количество файлов: 1")
}

func TestGenerate_InvalidRequests(t *testing.T) {
	a, _ := newAssembler(t, Options{MaxFiles: 2})
	tests := map[string]Request{
		"no files":       {},
		"too many files": {FileIDs: []string{"a", "b", "c"}},
		"bad type":       {FileIDs: []string{"a"}, Type: "weekly"},
		"bad format":     {FileIDs: []string{"a"}, Format: "docx"},
		"empty id":       {FileIDs: []string{" "}},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := a.Generate(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestListOpenDelete(t *testing.T) {
	a, _ := newAssembler(t, Options{})
	meta, _ := generate(t, a, Request{FileIDs: []string{"f1"}, Type: Summary, Format: CSV})

	list, err := a.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, meta.ID, list[0].ID)
	assert.Equal(t, Summary, list[0].Type)
	assert.Equal(t, CSV, list[0].Format)

	deleted, err := a.Delete(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.Filename, deleted.Filename)

	_, _, err = a.Open(meta.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = a.Delete(meta.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGenerate_RecordsStats(t *testing.T) {
	a, _ := newAssembler(t, Options{})
	generate(t, a, Request{FileIDs: []string{"f1"}})
	assert.Equal(t, 1, a.stats.Latency().Snapshot()[stats.StageReport].Count)
	rs, err := a.stats.Reports()
	require.NoError(t, err)
	assert.Equal(t, 1, rs.TotalReports)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", ContentType("report_standard_1.json"))
	assert.Equal(t, "text/csv; charset=utf-8", ContentType("report_summary_1.CSV"))
	assert.Equal(t, "application/octet-stream", ContentType("report_x_1.bin"))
}
