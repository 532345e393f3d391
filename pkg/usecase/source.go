package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/service/watcher"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/async"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

// uploadExtensions are accepted by the upload path. Rich formats are
// expected to arrive already extracted to text by the caller.
var uploadExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
	".json": true,
	".csv":  true,
}

// SourceUseCase handles ingestion and source lifecycle
type SourceUseCase struct {
	repo      interfaces.Repository
	processor *ProcessorUseCase
	config    Config
}

// NewSourceUseCase creates the source use case
func NewSourceUseCase(repo interfaces.Repository, processor *ProcessorUseCase, config Config) *SourceUseCase {
	return &SourceUseCase{
		repo:      repo,
		processor: processor,
		config:    config,
	}
}

// IngestInput is a source to ingest from any entry point
type IngestInput struct {
	Filename    string
	Filepath    string
	Content     string
	CallDate    *time.Time
	DurationMin int
	Context     string
}

// transcriptEnvelope is the optional JSON shape for .json transcripts
type transcriptEnvelope struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Text        string `json:"text"`
	CallDate    string `json:"callDate"`
	DurationMin int    `json:"durationMinutes"`
	Context     string `json:"context"`
}

// IngestFile reads a watched or user-supplied file and ingests it
func (uc *SourceUseCase) IngestFile(ctx context.Context, path string) (*model.Source, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to read file", goerr.V("path", path))
	}

	input := IngestInput{
		Filename: filepath.Base(path),
		Filepath: path,
		Content:  string(data),
	}

	meta := watcher.ParseFilename(input.Filename)
	if !meta.CallDate.IsZero() {
		d := meta.CallDate
		input.CallDate = &d
	}
	if meta.Title != "" {
		input.Context = meta.Title
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		applyEnvelope(&input, data)
	}

	return uc.Ingest(ctx, input)
}

// applyEnvelope overlays transcript envelope fields when the JSON file
// carries them. A JSON file that is not an envelope ingests as-is.
func applyEnvelope(input *IngestInput, data []byte) {
	var env transcriptEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}

	content := env.Content
	if content == "" {
		content = env.Text
	}
	if content == "" {
		return
	}
	input.Content = content

	if env.Title != "" {
		input.Context = env.Title
	}
	if env.Context != "" {
		input.Context = env.Context
	}
	if env.DurationMin > 0 {
		input.DurationMin = env.DurationMin
	}
	if env.CallDate != "" {
		if t, err := time.Parse("2006-01-02", env.CallDate); err == nil {
			input.CallDate = &t
		} else if t, err := time.Parse(time.RFC3339, env.CallDate); err == nil {
			input.CallDate = &t
		}
	}
}

// Ingest persists a source unless identical bytes already exist, then
// dispatches processing. The bool reports whether a record was created.
func (uc *SourceUseCase) Ingest(ctx context.Context, input IngestInput) (*model.Source, bool, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, false, goerr.Wrap(types.ErrInvalidInput, "source content is empty",
			goerr.V("filename", input.Filename))
	}
	if !utf8.ValidString(content) {
		return nil, false, goerr.Wrap(types.ErrInvalidInput, "source content is not text",
			goerr.V("filename", input.Filename))
	}

	fingerprint := model.Fingerprint(content)

	existing, err := uc.repo.Source().GetByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		logging.From(ctx).Info("duplicate content, returning existing source",
			"source_id", existing.ID, "filename", input.Filename)
		return existing, false, nil
	}

	source, err := uc.repo.Source().Create(ctx, &model.Source{
		Filename:    input.Filename,
		Filepath:    input.Filepath,
		Content:     content,
		Fingerprint: fingerprint,
		CallDate:    input.CallDate,
		DurationMin: input.DurationMin,
		Context:     input.Context,
	})
	if err != nil {
		return nil, false, err
	}

	logging.From(ctx).Info("source ingested",
		"source_id", source.ID, "filename", source.Filename, "bytes", len(content))

	async.Dispatch(ctx, func(ctx context.Context) error {
		_, err := uc.processor.Process(ctx, source.ID, ProcessOptions{})
		return err
	})

	return source, true, nil
}

// Paste ingests pasted transcript text
func (uc *SourceUseCase) Paste(ctx context.Context, title, content string, callDate *time.Time) (*model.Source, bool, error) {
	if title == "" {
		title = "pasted transcript"
	}
	return uc.Ingest(ctx, IngestInput{
		Filename: title,
		Content:  content,
		CallDate: callDate,
		Context:  title,
	})
}

// QuickNote ingests a short free-form note
func (uc *SourceUseCase) QuickNote(ctx context.Context, text string) (*model.Source, bool, error) {
	return uc.Ingest(ctx, IngestInput{
		Filename: fmt.Sprintf("note-%s", time.Now().Format("2006-01-02-150405")),
		Content:  text,
		Context:  "quick note",
	})
}

// Upload stores an uploaded file under the uploads directory and
// ingests its content
func (uc *SourceUseCase) Upload(ctx context.Context, filename string, data []byte) (*model.Source, bool, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !uploadExtensions[ext] {
		return nil, false, goerr.Wrap(types.ErrInvalidInput, "unsupported file extension",
			goerr.V("filename", filename), goerr.V("ext", ext))
	}

	if err := os.MkdirAll(uc.config.UploadDir, 0o755); err != nil {
		return nil, false, goerr.Wrap(err, "failed to create upload directory",
			goerr.V("dir", uc.config.UploadDir))
	}

	// unique, path-safe name; the original name survives on the source
	stored := filepath.Join(uc.config.UploadDir,
		uuid.NewString()+ext)
	if err := os.WriteFile(stored, data, 0o644); err != nil {
		return nil, false, goerr.Wrap(err, "failed to store upload", goerr.V("path", stored))
	}

	input := IngestInput{
		Filename: filepath.Base(filename),
		Filepath: stored,
		Content:  string(data),
	}
	if strings.EqualFold(ext, ".json") {
		applyEnvelope(&input, data)
	}

	return uc.Ingest(ctx, input)
}

// Get retrieves a source
func (uc *SourceUseCase) Get(ctx context.Context, id types.SourceID) (*model.Source, error) {
	return uc.repo.Source().Get(ctx, id)
}

// List retrieves sources with pagination
func (uc *SourceUseCase) List(ctx context.Context, limit, offset int) ([]*model.Source, int, error) {
	return uc.repo.Source().List(ctx, limit, offset)
}

// Segments retrieves the segments of a source in order
func (uc *SourceUseCase) Segments(ctx context.Context, id types.SourceID) ([]*model.Segment, error) {
	if _, err := uc.repo.Source().Get(ctx, id); err != nil {
		return nil, err
	}
	return uc.repo.Segment().ListBySource(ctx, id)
}

// Reprocess runs the processor again over an existing source
func (uc *SourceUseCase) Reprocess(ctx context.Context, id types.SourceID, opts ProcessOptions) (*ProcessResult, error) {
	if _, err := uc.repo.Source().Get(ctx, id); err != nil {
		return nil, err
	}
	return uc.processor.Process(ctx, id, opts)
}

// Delete removes a source; segments and metrics cascade
func (uc *SourceUseCase) Delete(ctx context.Context, id types.SourceID) error {
	return uc.repo.Source().Delete(ctx, id)
}
