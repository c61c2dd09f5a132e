package store

import (
	"context"
	"encoding/json"
	"fmt"

	"resume-store/internal/resume"
	"resume-store/internal/shared/storage/content"
)

// Sub-resource field names accepted by the generic entry operations.
const (
	FieldExperience     = "experience"
	FieldEducation      = "education"
	FieldCertifications = "certifications"
)

// Service is the operation surface consumed by the transport layer. Write
// payloads arrive as raw JSON and are strictly decoded into the closed schema
// before they touch the editor, so malformed input fails fast as
// resume.ErrInvalidInput instead of corrupting stored state.
type Service struct {
	Store   *DocumentStore
	Editor  *Editor
	History *History
}

// NewService wires the store, editor and history over one backend and one
// document path.
func NewService(backend content.Backend, path, backupDir string, retention int) *Service {
	ds := NewDocumentStore(backend, path, backupDir, retention)
	return &Service{
		Store:   ds,
		Editor:  &Editor{Store: ds},
		History: &History{Store: ds},
	}
}

// ReadDocument returns the live document and its revision token. An absent
// document reads as the default one with an empty token.
func (s *Service) ReadDocument(ctx context.Context) (resume.Document, string, error) {
	return s.Store.Read(ctx)
}

// WriteDocument validates and saves a full document payload, backing up the
// previous content best-effort first.
func (s *Service) WriteDocument(ctx context.Context, raw json.RawMessage) (content.PutResult, error) {
	doc, err := resume.DecodeDocument(raw)
	if err != nil {
		return content.PutResult{}, err
	}
	current, rev, err := s.Store.Read(ctx)
	if err != nil {
		return content.PutResult{}, err
	}
	s.Store.BackupQuietly(ctx, current)
	return s.Store.Write(ctx, doc, rev)
}

// ResetDocument restores the documented default document, backing up the
// current content best-effort.
func (s *Service) ResetDocument(ctx context.Context) (content.PutResult, error) {
	return s.Store.Reset(ctx)
}

// ListField returns the full collection for a sub-resource field.
func (s *Service) ListField(ctx context.Context, field string) (any, error) {
	doc, _, err := s.Store.Read(ctx)
	if err != nil {
		return nil, err
	}
	switch field {
	case FieldExperience:
		return doc.Experience, nil
	case FieldEducation:
		return doc.Education, nil
	case FieldCertifications:
		return doc.Certifications, nil
	default:
		return nil, unknownField(field)
	}
}

// GetFieldEntry returns one entry: by id for experience, by index for the
// index-addressed collections. A missing entry fails with content.ErrNotFound.
func (s *Service) GetFieldEntry(ctx context.Context, field string, id int) (any, error) {
	doc, _, err := s.Store.Read(ctx)
	if err != nil {
		return nil, err
	}
	switch field {
	case FieldExperience:
		entry, ok := doc.FindExperience(id)
		if !ok {
			return nil, fmt.Errorf("%w: experience id %d", content.ErrNotFound, id)
		}
		return entry, nil
	case FieldEducation:
		if id < 0 || id >= len(doc.Education) {
			return nil, fmt.Errorf("%w: education index %d", content.ErrNotFound, id)
		}
		return doc.Education[id], nil
	case FieldCertifications:
		if id < 0 || id >= len(doc.Certifications) {
			return nil, fmt.Errorf("%w: certification index %d", content.ErrNotFound, id)
		}
		return doc.Certifications[id], nil
	default:
		return nil, unknownField(field)
	}
}

// AddFieldEntry validates and appends a new entry, returning it as stored.
// Experience entries come back with their assigned id.
func (s *Service) AddFieldEntry(ctx context.Context, field string, raw json.RawMessage) (any, content.PutResult, error) {
	switch field {
	case FieldExperience:
		entry, err := resume.DecodeExperienceEntry(raw)
		if err != nil {
			return nil, content.PutResult{}, err
		}
		return s.Editor.AddExperience(ctx, entry)
	case FieldEducation:
		entry, err := resume.DecodeEducationEntry(raw)
		if err != nil {
			return nil, content.PutResult{}, err
		}
		res, err := s.Editor.AddEducation(ctx, entry)
		return entry, res, err
	case FieldCertifications:
		entry, err := resume.DecodeCertificationEntry(raw)
		if err != nil {
			return nil, content.PutResult{}, err
		}
		res, err := s.Editor.AddCertification(ctx, entry)
		return entry, res, err
	default:
		return nil, content.PutResult{}, unknownField(field)
	}
}

// UpdateFieldEntry validates and applies a partial update to one entry.
func (s *Service) UpdateFieldEntry(ctx context.Context, field string, id int, raw json.RawMessage) (content.PutResult, error) {
	switch field {
	case FieldExperience:
		patch, err := resume.DecodeExperiencePatch(raw)
		if err != nil {
			return content.PutResult{}, err
		}
		return s.Editor.UpdateExperience(ctx, id, patch)
	case FieldEducation:
		patch, err := resume.DecodeEducationPatch(raw)
		if err != nil {
			return content.PutResult{}, err
		}
		return s.Editor.UpdateEducation(ctx, id, patch)
	case FieldCertifications:
		patch, err := resume.DecodeCertificationPatch(raw)
		if err != nil {
			return content.PutResult{}, err
		}
		return s.Editor.UpdateCertification(ctx, id, patch)
	default:
		return content.PutResult{}, unknownField(field)
	}
}

// DeleteFieldEntry removes one entry: by id for experience (renumbering the
// survivors), by index for the index-addressed collections.
func (s *Service) DeleteFieldEntry(ctx context.Context, field string, id int) (content.PutResult, error) {
	switch field {
	case FieldExperience:
		return s.Editor.DeleteExperience(ctx, id)
	case FieldEducation:
		return s.Editor.DeleteEducation(ctx, id)
	case FieldCertifications:
		return s.Editor.DeleteCertification(ctx, id)
	default:
		return content.PutResult{}, unknownField(field)
	}
}

// ListHistory returns up to limit revision records, newest first.
func (s *Service) ListHistory(ctx context.Context, limit int) ([]content.Revision, error) {
	return s.History.List(ctx, limit)
}

// PreviewAtRevision returns the document as of a historical revision without
// touching the live content.
func (s *Service) PreviewAtRevision(ctx context.Context, ref string) (resume.Document, error) {
	return s.History.ReadAt(ctx, ref)
}

// RestoreFromRevision overwrites the live document with its state at ref.
func (s *Service) RestoreFromRevision(ctx context.Context, ref string) (content.PutResult, error) {
	return s.History.Restore(ctx, ref)
}

func unknownField(field string) error {
	return fmt.Errorf("%w: unknown field %q", resume.ErrInvalidInput, field)
}
