package resume

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidInput indicates a malformed or incomplete write/patch payload.
var ErrInvalidInput = errors.New("invalid input")

// DecodeDocument strictly decodes a full document payload. The four sections
// the legacy API required on save (personalInfo, experience, education,
// skills) must be present; unknown keys are rejected.
func DecodeDocument(raw []byte) (Document, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	for _, section := range []string{"personalInfo", "experience", "education", "skills"} {
		if _, ok := probe[section]; !ok {
			return Document{}, fmt.Errorf("%w: missing required section %q", ErrInvalidInput, section)
		}
	}
	var doc Document
	if err := strictDecode(raw, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// DecodeExperienceEntry strictly decodes a new experience entry payload. Any
// client-supplied id is ignored by the add path, which always assigns its own.
func DecodeExperienceEntry(raw []byte) (ExperienceEntry, error) {
	var e ExperienceEntry
	if err := strictDecode(raw, &e); err != nil {
		return ExperienceEntry{}, err
	}
	return e, nil
}

// DecodeExperiencePatch strictly decodes a partial experience update.
func DecodeExperiencePatch(raw []byte) (ExperiencePatch, error) {
	var p ExperiencePatch
	if err := strictDecode(raw, &p); err != nil {
		return ExperiencePatch{}, err
	}
	return p, nil
}

// DecodeEducationEntry strictly decodes a new education entry payload.
func DecodeEducationEntry(raw []byte) (EducationEntry, error) {
	var e EducationEntry
	if err := strictDecode(raw, &e); err != nil {
		return EducationEntry{}, err
	}
	return e, nil
}

// DecodeEducationPatch strictly decodes a partial education update.
func DecodeEducationPatch(raw []byte) (EducationPatch, error) {
	var p EducationPatch
	if err := strictDecode(raw, &p); err != nil {
		return EducationPatch{}, err
	}
	return p, nil
}

// DecodeCertificationEntry strictly decodes a new certification entry payload.
func DecodeCertificationEntry(raw []byte) (CertificationEntry, error) {
	var e CertificationEntry
	if err := strictDecode(raw, &e); err != nil {
		return CertificationEntry{}, err
	}
	return e, nil
}

// DecodeCertificationPatch strictly decodes a partial certification update.
func DecodeCertificationPatch(raw []byte) (CertificationPatch, error) {
	var p CertificationPatch
	if err := strictDecode(raw, &p); err != nil {
		return CertificationPatch{}, err
	}
	return p, nil
}

func strictDecode(raw []byte, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidInput)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after payload", ErrInvalidInput)
	}
	return nil
}
