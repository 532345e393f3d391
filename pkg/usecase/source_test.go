package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/usecase"
)

const sampleTranscript = `Sarah: Thanks for making time today.
Tom: Of course. We really need onboarding sorted before Q3.
Sarah: Let's walk through what that would take.`

func TestIngestDeduplicatesByContent(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCases(t, nil)

	first, created, err := uc.Source.Ingest(ctx, usecase.IngestInput{
		Filename: "call-1.txt", Content: sampleTranscript,
	})
	gt.NoError(t, err)
	gt.Bool(t, created).True()

	// same bytes under a different name resolve to the existing source
	second, created, err := uc.Source.Ingest(ctx, usecase.IngestInput{
		Filename: "call-1-copy.txt", Content: sampleTranscript,
	})
	gt.NoError(t, err)
	gt.Bool(t, created).False()
	gt.Value(t, second.ID).Equal(first.ID)

	_, total, err := uc.Source.List(ctx, 10, 0)
	gt.NoError(t, err)
	gt.Value(t, total).Equal(1)
}

func TestIngestRejectsEmptyContent(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCases(t, nil)

	_, _, err := uc.Source.Ingest(ctx, usecase.IngestInput{Filename: "blank.txt", Content: "   \n"})
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrInvalidInput)).True()
}

func TestIngestFileParsesFilenameMetadata(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCases(t, nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "2026-03-01-acme-kickoff.txt")
	gt.NoError(t, os.WriteFile(path, []byte(sampleTranscript), 0o644))

	source, created, err := uc.Source.IngestFile(ctx, path)
	gt.NoError(t, err)
	gt.Bool(t, created).True()
	gt.Value(t, source.Filename).Equal("2026-03-01-acme-kickoff.txt")
	gt.Value(t, source.Context).Equal("acme kickoff")
	gt.Value(t, source.CallDate).NotNil()
	gt.Value(t, source.CallDate.Format("2006-01-02")).Equal("2026-03-01")
}

func TestIngestFileJSONEnvelope(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCases(t, nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "export.json")
	envelope := `{"title": "Globex discovery", "content": "Tom: budget is approved.", "callDate": "2026-02-14", "durationMinutes": 45}`
	gt.NoError(t, os.WriteFile(path, []byte(envelope), 0o644))

	source, created, err := uc.Source.IngestFile(ctx, path)
	gt.NoError(t, err)
	gt.Bool(t, created).True()
	gt.Value(t, source.Content).Equal("Tom: budget is approved.")
	gt.Value(t, source.Context).Equal("Globex discovery")
	gt.Value(t, source.DurationMin).Equal(45)
	gt.Value(t, source.CallDate.Format("2006-01-02")).Equal("2026-02-14")
}

func TestUploadRejectsUnknownExtension(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCases(t, nil)

	_, _, err := uc.Source.Upload(ctx, "call.exe", []byte("payload"))
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrInvalidInput)).True()
}

func TestQuickNote(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCases(t, nil)

	source, created, err := uc.Source.QuickNote(ctx, "Tom mentioned the board meets on the 12th.")
	gt.NoError(t, err)
	gt.Bool(t, created).True()
	gt.Value(t, source.Context).Equal("quick note")
	gt.Bool(t, strings.HasPrefix(source.Filename, "note-")).True()
}
