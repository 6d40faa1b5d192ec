package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
	"github.com/Conceptual-Machines/midigen-api/internal/llm"
	"github.com/Conceptual-Machines/midigen-api/internal/logger"
	"github.com/Conceptual-Machines/midigen-api/internal/metrics"
	"github.com/Conceptual-Machines/midigen-api/internal/midi"
	"github.com/Conceptual-Machines/midigen-api/internal/models"
	"github.com/Conceptual-Machines/midigen-api/internal/music"
	"github.com/Conceptual-Machines/midigen-api/internal/prompt"
	"github.com/Conceptual-Machines/midigen-api/internal/storage"
	"github.com/google/uuid"
)

const (
	defaultAITimeout      = 60 * time.Second
	defaultStorageTimeout = 15 * time.Second
	maxNameLength         = 200
	maxDescriptionLength  = 2000
)

// GenerationStore persists generation records. database.GenerationRepository
// is the production implementation.
type GenerationStore interface {
	Create(ctx context.Context, g *models.Generation) error
	Get(ctx context.Context, id string) (*models.Generation, error)
	ListByUser(ctx context.Context, userID string) ([]models.Generation, error)
	UpdateMetadata(ctx context.Context, id string, name, description *string) (*models.Generation, error)
	Delete(ctx context.Context, id string) error
}

type GenerationConfig struct {
	Model          string
	AITimeout      time.Duration
	StorageTimeout time.Duration
}

// GenerationService turns prompts into note lists and manages saved
// generations. Every collaborator is injected.
type GenerationService struct {
	provider llm.Provider
	store    GenerationStore
	objects  storage.ObjectStore
	prompts  *prompt.Builder
	metrics  metrics.Recorder
	cfg      GenerationConfig
}

func NewGenerationService(
	provider llm.Provider,
	store GenerationStore,
	objects storage.ObjectStore,
	prompts *prompt.Builder,
	recorder metrics.Recorder,
	cfg GenerationConfig,
) *GenerationService {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = defaultAITimeout
	}
	if cfg.StorageTimeout <= 0 {
		cfg.StorageTimeout = defaultStorageTimeout
	}
	return &GenerationService{
		provider: provider,
		store:    store,
		objects:  objects,
		prompts:  prompts,
		metrics:  recorder,
		cfg:      cfg,
	}
}

type GenerateInput struct {
	SongName   string
	Extra      string
	Instrument string
}

type GenerateResult struct {
	Notes      []music.Note
	Dropped    int
	Fallback   bool
	Instrument string
	Midi       []byte
	Model      string
	Usage      llm.Usage
}

// Generate asks the completion provider for a melody and returns the
// sanitized notes together with their encoded MIDI file.
func (s *GenerationService) Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	startTime := time.Now()
	instrument := music.NormalizeInstrument(in.Instrument)

	p, err := s.prompts.Build(prompt.Params{
		SongName:   in.SongName,
		Extra:      in.Extra,
		Instrument: instrument,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to build prompt", err)
	}

	logger.Info("Generating melody", logger.Fields{
		"provider":   s.provider.Name(),
		"model":      s.cfg.Model,
		"template":   p.Template,
		"instrument": instrument,
	})

	aiCtx, cancel := context.WithTimeout(ctx, s.cfg.AITimeout)
	defer cancel()

	resp, err := s.provider.Complete(aiCtx, &llm.CompletionRequest{
		Model:        s.cfg.Model,
		SystemPrompt: p.System,
		Prompt:       p.User,
		TraceName:    "midigen-generate",
		Metadata: map[string]any{
			"template":   p.Template,
			"instrument": instrument,
			"song_name":  strings.TrimSpace(in.SongName),
		},
	})
	if err != nil {
		s.metrics.RecordGeneration(ctx, time.Since(startTime), metrics.OutcomeFailure, 0, false)
		return nil, classifyAIError(aiCtx, err)
	}
	if resp == nil {
		s.metrics.RecordGeneration(ctx, time.Since(startTime), metrics.OutcomeFailure, 0, false)
		return nil, apperr.New(apperr.EmptyAiResponse, "AI returned no response")
	}

	usage := resp.Usage
	s.metrics.RecordTokenUsage(ctx, resp.Model, int(usage.TotalTokens), int(usage.InputTokens), int(usage.OutputTokens))

	result, err := ParseCompletion(resp.Text)
	if err != nil {
		s.metrics.RecordGeneration(ctx, time.Since(startTime), metrics.OutcomeFailure, 0, false)
		logger.Warn("Unusable AI response", logger.Fields{
			"kind":  string(apperr.KindOf(err)),
			"model": resp.Model,
		})
		return nil, err
	}

	data, err := midi.Encode(result.Notes, instrument)
	if err != nil {
		s.metrics.RecordGeneration(ctx, time.Since(startTime), metrics.OutcomeFailure, result.Dropped, result.Fallback)
		return nil, apperr.Wrap(apperr.Internal, "failed to encode generated notes", err)
	}
	s.metrics.RecordMidiEncoded(ctx, len(data), len(result.Notes))
	s.metrics.RecordGeneration(ctx, time.Since(startTime), metrics.OutcomeSuccess, result.Dropped, result.Fallback)

	logger.Info("Melody generated", logger.Fields{
		"notes":       len(result.Notes),
		"dropped":     result.Dropped,
		"fallback":    result.Fallback,
		"midi_bytes":  len(data),
		"duration_ms": time.Since(startTime).Milliseconds(),
	})

	return &GenerateResult{
		Notes:      result.Notes,
		Dropped:    result.Dropped,
		Fallback:   result.Fallback,
		Instrument: instrument,
		Midi:       data,
		Model:      resp.Model,
		Usage:      usage,
	}, nil
}

func classifyAIError(aiCtx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(aiCtx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(apperr.AiTimeout, "AI request timed out", err)
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Wrap(apperr.AiFailure, "AI request failed", err)
}

// EncodeNotes sanitizes notes and renders them without saving anything
func (s *GenerationService) EncodeNotes(ctx context.Context, notes []music.Note, instrument string) ([]byte, music.SanitizeResult, error) {
	result, err := prepareNotes(notes)
	if err != nil {
		return nil, result, err
	}
	data, err := midi.Encode(result.Notes, instrument)
	if err != nil {
		return nil, result, apperr.Wrap(apperr.Internal, "failed to encode notes", err)
	}
	s.metrics.RecordMidiEncoded(ctx, len(data), len(result.Notes))
	return data, result, nil
}

// prepareNotes filters user supplied notes. Unlike AI output, a list with no
// valid note at all is rejected instead of replaced by the fallback melody.
func prepareNotes(notes []music.Note) (music.SanitizeResult, error) {
	if len(notes) == 0 {
		return music.SanitizeResult{}, apperr.New(apperr.InvalidInput, "notes must not be empty")
	}
	result := music.Sanitize(notes)
	if result.Fallback {
		return result, apperr.New(apperr.InvalidNote, "no valid notes")
	}
	return result, nil
}

type SaveInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	UserID      string       `json:"userId"`
	Instrument  string       `json:"instrument,omitempty"`
	Notes       []music.Note `json:"notes"`
}

func (in SaveInput) validate() error {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return apperr.New(apperr.InvalidInput, "name is required")
	case len(name) > maxNameLength:
		return apperr.Newf(apperr.InvalidInput, "name must be at most %d characters", maxNameLength)
	case len(in.Description) > maxDescriptionLength:
		return apperr.Newf(apperr.InvalidInput, "description must be at most %d characters", maxDescriptionLength)
	case strings.TrimSpace(in.UserID) == "":
		return apperr.New(apperr.InvalidInput, "userId is required")
	}
	return nil
}

// Save encodes the notes, uploads the file and creates the record. The
// upload and the record are separate writes: if the record fails the blob is
// left behind and logged as an orphan.
func (s *GenerationService) Save(ctx context.Context, in SaveInput) (*models.Generation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	result, err := prepareNotes(in.Notes)
	if err != nil {
		return nil, err
	}
	instrument := music.NormalizeInstrument(in.Instrument)

	data, err := midi.Encode(result.Notes, instrument)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to encode notes", err)
	}
	s.metrics.RecordMidiEncoded(ctx, len(data), len(result.Notes))

	id := uuid.NewString()
	key := storage.ObjectKey(in.UserID, id)

	putCtx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
	fileID, err := s.objects.Put(putCtx, key, data, midi.MimeType)
	cancel()
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageWriteFailure, "failed to upload MIDI file", err)
	}

	record := &models.Generation{
		ID:          id,
		UserID:      in.UserID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Instrument:  instrument,
		Notes:       result.Notes,
		FileID:      fileID,
		FileSize:    len(data),
	}

	createCtx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
	err = s.store.Create(createCtx, record)
	cancel()
	if err != nil {
		logger.Error("Generation record not created, MIDI file orphaned", err, logger.Fields{
			"generation_id": id,
			"file_id":       fileID,
			"user_id":       in.UserID,
		})
		if apperr.KindOf(err) == apperr.StorageWriteFailure {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.StorageWriteFailure, "failed to create generation record", err)
	}

	logger.Info("Generation saved", logger.Fields{
		"generation_id": id,
		"user_id":       in.UserID,
		"notes":         len(result.Notes),
		"dropped":       result.Dropped,
		"file_size":     len(data),
	})
	return record, nil
}

// BatchError describes one failed item of a batch operation
type BatchError struct {
	Index   int         `json:"index"`
	ID      string      `json:"id,omitempty"`
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// NewBatchError describes err for item index of a batch
func NewBatchError(index int, id string, err error) BatchError {
	be := BatchError{Index: index, ID: id, Kind: apperr.KindOf(err), Message: err.Error()}
	if appErr, ok := apperr.As(err); ok {
		be.Message = appErr.Message
	}
	return be
}

type BatchSaveResult struct {
	Succeeded []*models.Generation `json:"success"`
	Failed    []BatchError         `json:"failed"`
}

// BatchSave saves every item independently
func (s *GenerationService) BatchSave(ctx context.Context, inputs []SaveInput) BatchSaveResult {
	result := BatchSaveResult{
		Succeeded: []*models.Generation{},
		Failed:    []BatchError{},
	}
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, NewBatchError(i, "", apperr.Wrap(apperr.StorageWriteFailure, "batch canceled", err)))
			continue
		}
		record, err := s.Save(ctx, in)
		if err != nil {
			result.Failed = append(result.Failed, NewBatchError(i, "", err))
			continue
		}
		result.Succeeded = append(result.Succeeded, record)
	}
	s.metrics.RecordBatch(ctx, "save", len(result.Succeeded), len(result.Failed))
	return result
}

func (s *GenerationService) Get(ctx context.Context, id string) (*models.Generation, error) {
	getCtx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()
	g, err := s.store.Get(getCtx, id)
	if err != nil {
		return nil, readError(err, "failed to load generation")
	}
	return g, nil
}

// GetOwned loads a generation and checks that userID owns it. Records owned
// by someone else get the same generic denial whether or not they exist
// for that user.
func (s *GenerationService) GetOwned(ctx context.Context, id, userID string) (*models.Generation, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !g.OwnedBy(userID) {
		return nil, apperr.New(apperr.Unauthorized, "not allowed to access this generation")
	}
	return g, nil
}

// ListByUser returns the user's generations, newest first
func (s *GenerationService) ListByUser(ctx context.Context, userID string) ([]models.Generation, error) {
	listCtx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()
	generations, err := s.store.ListByUser(listCtx, userID)
	if err != nil {
		return nil, readError(err, "failed to list generations")
	}
	return generations, nil
}

type Download struct {
	FileName    string
	ContentType string
	Data        []byte
	Generation  *models.Generation
}

func (s *GenerationService) Download(ctx context.Context, id, userID string) (*Download, error) {
	g, err := s.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	getCtx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()
	data, err := s.objects.Get(getCtx, g.FileID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Newf(apperr.NotFound, "MIDI file for generation %s not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageReadFailure, "failed to download MIDI file", err)
	}

	return &Download{
		FileName:    "music-" + g.ID + midi.Extension,
		ContentType: midi.MimeType,
		Data:        data,
		Generation:  g,
	}, nil
}

// DecodeStored reads the stored file back into notes
func (s *GenerationService) DecodeStored(ctx context.Context, id, userID string) (*midi.File, error) {
	d, err := s.Download(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	file, err := midi.Decode(d.Data)
	if err != nil {
		return nil, err
	}
	for _, w := range file.Warnings {
		logger.Warn("Stored MIDI file decoded with warning", logger.Fields{"generation_id": id, "warning": w})
	}
	return file, nil
}

// UpdateMetadata changes the name and/or description of an owned generation
func (s *GenerationService) UpdateMetadata(ctx context.Context, id, userID string, name, description *string) (*models.Generation, error) {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, apperr.New(apperr.InvalidInput, "name must not be empty")
		}
		if len(trimmed) > maxNameLength {
			return nil, apperr.Newf(apperr.InvalidInput, "name must be at most %d characters", maxNameLength)
		}
		name = &trimmed
	}
	if description != nil {
		trimmed := strings.TrimSpace(*description)
		if len(trimmed) > maxDescriptionLength {
			return nil, apperr.Newf(apperr.InvalidInput, "description must be at most %d characters", maxDescriptionLength)
		}
		description = &trimmed
	}

	if _, err := s.GetOwned(ctx, id, userID); err != nil {
		return nil, err
	}

	updateCtx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()
	g, err := s.store.UpdateMetadata(updateCtx, id, name, description)
	if err != nil {
		return nil, writeError(err, "failed to update generation")
	}
	return g, nil
}

// Delete removes the record, then its file. A file that cannot be removed
// is logged as orphaned; the delete still succeeds.
func (s *GenerationService) Delete(ctx context.Context, id, userID string) error {
	g, err := s.GetOwned(ctx, id, userID)
	if err != nil {
		return err
	}

	deleteCtx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
	err = s.store.Delete(deleteCtx, id)
	cancel()
	if err != nil {
		return writeError(err, "failed to delete generation")
	}

	blobCtx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
	err = s.objects.Delete(blobCtx, g.FileID)
	cancel()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		logger.Warn("MIDI file already gone", logger.Fields{"generation_id": id, "file_id": g.FileID})
	case err != nil:
		logger.Error("MIDI file not deleted, orphaned", err, logger.Fields{
			"generation_id": id,
			"file_id":       g.FileID,
			"user_id":       userID,
		})
	}

	logger.Info("Generation deleted", logger.Fields{"generation_id": id, "user_id": userID})
	return nil
}

type BatchDeleteResult struct {
	Succeeded []string     `json:"success"`
	Failed    []BatchError `json:"failed"`
}

func (s *GenerationService) BatchDelete(ctx context.Context, ids []string, userID string) BatchDeleteResult {
	result := BatchDeleteResult{
		Succeeded: []string{},
		Failed:    []BatchError{},
	}
	for i, id := range ids {
		if err := s.Delete(ctx, id, userID); err != nil {
			result.Failed = append(result.Failed, NewBatchError(i, id, err))
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	s.metrics.RecordBatch(ctx, "delete", len(result.Succeeded), len(result.Failed))
	return result
}

// readError keeps typed errors from the store and classifies the rest
func readError(err error, message string) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Wrap(apperr.StorageReadFailure, message, err)
}

func writeError(err error, message string) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Wrap(apperr.StorageWriteFailure, message, err)
}
