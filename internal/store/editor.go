package store

import (
	"context"
	"fmt"

	"resume-store/internal/resume"
	"resume-store/internal/shared/storage/content"
)

// Editor provides CRUD operations over the named array fields of the
// document. It holds no storage state of its own: every operation is a
// read-modify-write transaction through the DocumentStore, guarded by the
// revision observed at read time. None of the operations retries a conflict.
type Editor struct {
	Store *DocumentStore
}

// AddExperience appends an entry with a freshly assigned id and returns it as
// stored.
func (e *Editor) AddExperience(ctx context.Context, entry resume.ExperienceEntry) (resume.ExperienceEntry, content.PutResult, error) {
	var stored resume.ExperienceEntry
	res, err := e.mutate(ctx, func(doc *resume.Document) error {
		stored = doc.AddExperience(entry)
		return nil
	})
	if err != nil {
		return resume.ExperienceEntry{}, content.PutResult{}, err
	}
	return stored, res, nil
}

// UpdateExperience shallow-merges the patch onto the entry with the given id.
// A missing id fails with content.ErrNotFound and performs no write.
func (e *Editor) UpdateExperience(ctx context.Context, id int, patch resume.ExperiencePatch) (content.PutResult, error) {
	return e.mutate(ctx, func(doc *resume.Document) error {
		if !doc.PatchExperience(id, patch) {
			return fmt.Errorf("%w: experience id %d", content.ErrNotFound, id)
		}
		return nil
	})
}

// DeleteExperience removes the entry with the given id and renumbers the
// remaining entries to their positional index.
func (e *Editor) DeleteExperience(ctx context.Context, id int) (content.PutResult, error) {
	return e.mutate(ctx, func(doc *resume.Document) error {
		if !doc.RemoveExperience(id) {
			return fmt.Errorf("%w: experience id %d", content.ErrNotFound, id)
		}
		return nil
	})
}

// AddEducation appends an index-addressed education entry.
func (e *Editor) AddEducation(ctx context.Context, entry resume.EducationEntry) (content.PutResult, error) {
	return e.mutate(ctx, func(doc *resume.Document) error {
		doc.AddEducation(entry)
		return nil
	})
}

// UpdateEducation patches the education entry at index.
func (e *Editor) UpdateEducation(ctx context.Context, index int, patch resume.EducationPatch) (content.PutResult, error) {
	return e.mutate(ctx, func(doc *resume.Document) error {
		if !doc.PatchEducation(index, patch) {
			return fmt.Errorf("%w: education index %d", content.ErrNotFound, index)
		}
		return nil
	})
}

// DeleteEducation removes the education entry at index; later entries shift
// down by one.
func (e *Editor) DeleteEducation(ctx context.Context, index int) (content.PutResult, error) {
	return e.mutate(ctx, func(doc *resume.Document) error {
		if !doc.RemoveEducation(index) {
			return fmt.Errorf("%w: education index %d", content.ErrNotFound, index)
		}
		return nil
	})
}

// AddCertification appends an index-addressed certification entry.
func (e *Editor) AddCertification(ctx context.Context, entry resume.CertificationEntry) (content.PutResult, error) {
	return e.mutate(ctx, func(doc *resume.Document) error {
		doc.AddCertification(entry)
		return nil
	})
}

// UpdateCertification patches the certification entry at index.
func (e *Editor) UpdateCertification(ctx context.Context, index int, patch resume.CertificationPatch) (content.PutResult, error) {
	return e.mutate(ctx, func(doc *resume.Document) error {
		if !doc.PatchCertification(index, patch) {
			return fmt.Errorf("%w: certification index %d", content.ErrNotFound, index)
		}
		return nil
	})
}

// DeleteCertification removes the certification entry at index.
func (e *Editor) DeleteCertification(ctx context.Context, index int) (content.PutResult, error) {
	return e.mutate(ctx, func(doc *resume.Document) error {
		if !doc.RemoveCertification(index) {
			return fmt.Errorf("%w: certification index %d", content.ErrNotFound, index)
		}
		return nil
	})
}

// mutate runs one read-modify-write cycle: read the live document, apply the
// edit, back up the pre-mutation snapshot best-effort, then CAS-write against
// the revision observed at read time. If apply fails nothing is backed up or
// written.
func (e *Editor) mutate(ctx context.Context, apply func(*resume.Document) error) (content.PutResult, error) {
	doc, rev, err := e.Store.Read(ctx)
	if err != nil {
		return content.PutResult{}, err
	}
	snapshot := doc.Clone()
	if err := apply(&doc); err != nil {
		return content.PutResult{}, err
	}
	e.Store.BackupQuietly(ctx, snapshot)
	return e.Store.Write(ctx, doc, rev)
}
