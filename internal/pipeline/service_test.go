package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgallion1/archindex/internal/attributes"
	"github.com/dgallion1/archindex/internal/ocr"
	"github.com/dgallion1/archindex/internal/preprocess"
	"github.com/dgallion1/archindex/internal/stats"
	"github.com/dgallion1/archindex/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleText = "Иванов И.И. 05.04.1960. Дело №123 Фонд 10, опись 5, дело 20."

type flakyRecognizer struct {
	failures int
	err      error
	calls    int
}

func (f *flakyRecognizer) Recognize(ctx context.Context, in ocr.Input) (*ocr.Result, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &ocr.Result{Text: sampleText, Source: ocr.SourceRemote, Language: in.Language, Model: in.Model, Confidence: 0.9}, nil
}

func newTestService(t *testing.T, rec ocr.Recognizer) (*Service, *store.Store, *stats.Aggregator) {
	t.Helper()
	st := store.New(t.TempDir())
	require.NoError(t, st.Ensure())
	agg := stats.NewAggregator(st, stats.NewLatency(time.Hour), time.Hour)
	if rec == nil {
		rec = &ocr.Document{Fallback: ocr.Stub{}}
	}
	svc := NewService(Deps{Store: st, Recognizer: rec, Stats: agg}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.backoff = func(int) time.Duration { return 0 }
	return svc, st, agg
}

func upload(t *testing.T, st *store.Store, id, ext, body string) {
	t.Helper()
	_, err := st.Put(store.Uploads, store.UploadName(id, ext), []byte(body))
	require.NoError(t, err)
}

func TestService_Preprocess(t *testing.T) {
	svc, st, agg := newTestService(t, nil)
	upload(t, st, "f1", ".txt", sampleText)

	out, err := svc.Preprocess(context.Background(), "f1", preprocess.DefaultSteps)
	require.NoError(t, err)
	assert.Equal(t, "f1.txt", out.OriginalFile)
	assert.Equal(t, "f1", store.IDFromName(out.ProcessedFile))
	assert.Len(t, out.Log, len(preprocess.DefaultSteps))

	data, _, err := st.Read(store.Processed, "f1")
	require.NoError(t, err)
	assert.Equal(t, sampleText, string(data))

	ps, err := agg.Processing()
	require.NoError(t, err)
	assert.Equal(t, 1, ps.StepCounts[preprocess.AlignImage])
	assert.Equal(t, 1, agg.Latency().Snapshot()[stats.StagePreprocess].Count)
}

func TestService_PreprocessMissingUpload(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.Preprocess(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_PreprocessStepKeepsNothing(t *testing.T) {
	svc, st, _ := newTestService(t, nil)
	upload(t, st, "f1", ".png", "img")

	out, err := svc.PreprocessStep(context.Background(), "f1", preprocess.RemoveBackground)
	require.NoError(t, err)
	assert.Empty(t, out.ProcessedFile)
	assert.Equal(t, []preprocess.Step{preprocess.RemoveBackground}, out.Steps)

	entries, err := st.List(store.Processed)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_PreprocessStatus(t *testing.T) {
	svc, st, _ := newTestService(t, nil)
	upload(t, st, "f1", ".png", "img")

	status, err := svc.PreprocessStatus("f1")
	require.NoError(t, err)
	assert.Equal(t, "pending", status.Status)
	assert.Empty(t, status.ProcessedFiles)

	_, err = svc.Preprocess(context.Background(), "f1", nil)
	require.NoError(t, err)
	status, err = svc.PreprocessStatus("f1")
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.Len(t, status.ProcessedFiles, 1)
}

func TestService_RecognizeTextLayer(t *testing.T) {
	svc, st, _ := newTestService(t, nil)
	upload(t, st, "f1", ".txt", sampleText)

	rec, err := svc.Recognize(context.Background(), "f1", "ru", ocr.Printed)
	require.NoError(t, err)
	assert.Equal(t, "f1.txt", rec.SourceFile)
	assert.Equal(t, ocr.SourceTextLayer, rec.Source)
	assert.Equal(t, sampleText, rec.Text)
	assert.Equal(t, len([]rune(sampleText)), rec.Stats.TextLength)

	text, e, err := svc.OCRText("f1")
	require.NoError(t, err)
	assert.Equal(t, sampleText, text)
	assert.Equal(t, rec.ResultFile, e.Name)
}

func TestService_RecognizePrefersProcessed(t *testing.T) {
	svc, st, _ := newTestService(t, nil)
	upload(t, st, "f1", ".txt", "upload text")
	_, err := st.Put(store.Processed, store.ProcessedName("f1", ".txt", time.Now()), []byte("processed text"))
	require.NoError(t, err)

	rec, err := svc.Recognize(context.Background(), "f1", "ru", ocr.Printed)
	require.NoError(t, err)
	assert.Equal(t, "processed text", rec.Text)
}

func TestService_RecognizeFallsBackToStub(t *testing.T) {
	svc, st, _ := newTestService(t, nil)
	upload(t, st, "f1", ".png", "\x89PNG")

	rec, err := svc.Recognize(context.Background(), "f1", "ru", ocr.Mixed)
	require.NoError(t, err)
	assert.Equal(t, ocr.SourceStub, rec.Source)
	assert.Contains(t, rec.Text, "15.03.2024")
}

func TestService_RecognizeRetries(t *testing.T) {
	flaky := &flakyRecognizer{failures: 2, err: &ocr.RetryableError{StatusCode: 503, Message: "busy"}}
	svc, st, _ := newTestService(t, flaky)
	upload(t, st, "f1", ".png", "img")

	rec, err := svc.Recognize(context.Background(), "f1", "ru", ocr.Printed)
	require.NoError(t, err)
	assert.Equal(t, 3, flaky.calls)
	assert.Equal(t, sampleText, rec.Text)
}

func TestService_RecognizeGivesUp(t *testing.T) {
	flaky := &flakyRecognizer{failures: 10, err: &ocr.RetryableError{StatusCode: 429, Message: "slow down"}}
	svc, st, _ := newTestService(t, flaky)
	upload(t, st, "f1", ".png", "img")

	_, err := svc.Recognize(context.Background(), "f1", "ru", ocr.Printed)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, MaxRetries, flaky.calls)
}

func TestService_RecognizeNonRetryable(t *testing.T) {
	flaky := &flakyRecognizer{failures: 10, err: errors.New("bad image")}
	svc, st, _ := newTestService(t, flaky)
	upload(t, st, "f1", ".png", "img")

	_, err := svc.Recognize(context.Background(), "f1", "ru", ocr.Printed)
	require.Error(t, err)
	assert.Equal(t, 1, flaky.calls)

	_, _, err = svc.OCRText("f1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_ExtractFromStoredText(t *testing.T) {
	svc, st, agg := newTestService(t, nil)
	_, err := st.Put(store.OCRResults, store.OCRResultName("f1", time.Now()), []byte(sampleText))
	require.NoError(t, err)

	out, err := svc.ExtractAttributes(context.Background(), "f1", "")
	require.NoError(t, err)
	assert.Equal(t, sampleText, out.SourceText)
	assert.Equal(t, "Иванов И.И.", out.Attributes[attributes.PersonName])
	assert.Equal(t, "05.04.1960", out.Attributes[attributes.Date])
	assert.NotEmpty(t, out.ResultFile)
	assert.Equal(t, len([]rune(sampleText)), out.TextLength)

	rec, _, err := svc.AttributeRecord("f1")
	require.NoError(t, err)
	assert.Equal(t, "f1", rec.FileID)
	assert.Equal(t, out.Attributes, rec.Attributes)
	assert.Equal(t, out.Validation, rec.Validation)

	as, err := agg.Attributes()
	require.NoError(t, err)
	assert.Equal(t, 1, as.TotalExtractions)
}

func TestService_ExtractTextOnlyIsNotStored(t *testing.T) {
	svc, st, _ := newTestService(t, nil)
	out, err := svc.ExtractAttributes(context.Background(), "", "нет атрибутов")
	require.NoError(t, err)
	assert.Empty(t, out.ResultFile)
	assert.NotNil(t, out.List)
	assert.Empty(t, out.List)

	entries, err := st.List(store.AttributeResults)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_ExtractWithoutText(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.ExtractAttributes(context.Background(), "missing", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
