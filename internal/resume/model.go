package resume

import "encoding/json"

// SchemaVersion is stamped on every document written by this codebase. Legacy
// payloads without the field decode as 0 and pick up the current version on
// their next write.
const SchemaVersion = 1

// Document is the single unit of storage: one resume per backing path.
type Document struct {
	SchemaVersion  int                  `json:"schemaVersion,omitempty"`
	PersonalInfo   PersonalInfo         `json:"personalInfo"`
	Experience     []ExperienceEntry    `json:"experience"`
	Education      []EducationEntry     `json:"education"`
	Certifications []CertificationEntry `json:"certifications"`
	Skills         Skills               `json:"skills"`
	Projects       []json.RawMessage    `json:"projects"`
	AdditionalInfo string               `json:"additionalInfo"`
}

// PersonalInfo holds contact and bio fields. All fields may be empty.
type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	LinkedIn string `json:"linkedin"`
	GitHub   string `json:"github"`
	Website  string `json:"website"`
	Summary  string `json:"summary"`
}

// ExperienceEntry is a work history item. ID is positional, not permanent:
// deletes renumber the surviving entries to a contiguous range.
type ExperienceEntry struct {
	ID           int      `json:"id"`
	Company      string   `json:"company"`
	Title        string   `json:"title"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	Achievements []string `json:"achievements,omitempty"`
}

// EducationEntry has no stable id in the legacy shape; it is addressed by
// array index.
type EducationEntry struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
	GPA         string `json:"gpa"`
}

// CertificationEntry is addressed by array index, like education.
type CertificationEntry struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	Date   string `json:"date"`
}

// Skills groups skill names by category.
type Skills struct {
	Languages      []string `json:"languages"`
	Frameworks     []string `json:"frameworks"`
	Databases      []string `json:"databases"`
	Technologies   []string `json:"technologies"`
	VersionControl []string `json:"versionControl"`
	Methodologies  []string `json:"methodologies"`
	Standards      []string `json:"standards"`
}

// DefaultDocument returns the documented empty resume. A missing live document
// reads as this value rather than as an error, and reset writes it back.
func DefaultDocument() Document {
	return Document{
		SchemaVersion:  SchemaVersion,
		PersonalInfo:   PersonalInfo{},
		Experience:     []ExperienceEntry{},
		Education:      []EducationEntry{},
		Certifications: []CertificationEntry{},
		Skills: Skills{
			Languages:      []string{},
			Frameworks:     []string{},
			Databases:      []string{},
			Technologies:   []string{},
			VersionControl: []string{},
			Methodologies:  []string{},
			Standards:      []string{},
		},
		Projects:       []json.RawMessage{},
		AdditionalInfo: "",
	}
}

// Clone returns a deep copy of the document, so a pre-mutation snapshot can be
// backed up while the original is edited in place.
func (d Document) Clone() Document {
	out := d
	out.Experience = make([]ExperienceEntry, len(d.Experience))
	for i, e := range d.Experience {
		e.Technologies = cloneStrings(e.Technologies)
		e.Achievements = cloneStrings(e.Achievements)
		out.Experience[i] = e
	}
	out.Education = append([]EducationEntry(nil), d.Education...)
	out.Certifications = append([]CertificationEntry(nil), d.Certifications...)
	out.Skills = Skills{
		Languages:      cloneStrings(d.Skills.Languages),
		Frameworks:     cloneStrings(d.Skills.Frameworks),
		Databases:      cloneStrings(d.Skills.Databases),
		Technologies:   cloneStrings(d.Skills.Technologies),
		VersionControl: cloneStrings(d.Skills.VersionControl),
		Methodologies:  cloneStrings(d.Skills.Methodologies),
		Standards:      cloneStrings(d.Skills.Standards),
	}
	out.Projects = make([]json.RawMessage, len(d.Projects))
	for i, p := range d.Projects {
		out.Projects[i] = append(json.RawMessage(nil), p...)
	}
	return out
}

// NextExperienceID returns max(existing ids, 0) + 1, the unified id-assignment
// rule. The first entry added to an empty collection gets id 1.
func (d Document) NextExperienceID() int {
	maxID := 0
	for _, e := range d.Experience {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	return maxID + 1
}

// AddExperience appends the entry with a freshly assigned id and returns it as
// stored.
func (d *Document) AddExperience(e ExperienceEntry) ExperienceEntry {
	e.ID = d.NextExperienceID()
	d.Experience = append(d.Experience, e)
	return e
}

// FindExperience returns the entry with the given id, if any.
func (d Document) FindExperience(id int) (ExperienceEntry, bool) {
	for _, e := range d.Experience {
		if e.ID == id {
			return e, true
		}
	}
	return ExperienceEntry{}, false
}

// PatchExperience shallow-merges the patch onto the entry with the given id.
// It reports whether a matching entry was found.
func (d *Document) PatchExperience(id int, p ExperiencePatch) bool {
	for i := range d.Experience {
		if d.Experience[i].ID == id {
			p.apply(&d.Experience[i])
			return true
		}
	}
	return false
}

// RemoveExperience deletes the entry with the given id and renumbers the
// survivors to [0..n-1] in their current order. It reports whether an entry
// was removed.
func (d *Document) RemoveExperience(id int) bool {
	idx := -1
	for i, e := range d.Experience {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	d.Experience = append(d.Experience[:idx], d.Experience[idx+1:]...)
	for i := range d.Experience {
		d.Experience[i].ID = i
	}
	return true
}

// AddEducation appends an index-addressed education entry.
func (d *Document) AddEducation(e EducationEntry) {
	d.Education = append(d.Education, e)
}

// PatchEducation shallow-merges the patch onto the entry at index.
func (d *Document) PatchEducation(index int, p EducationPatch) bool {
	if index < 0 || index >= len(d.Education) {
		return false
	}
	p.apply(&d.Education[index])
	return true
}

// RemoveEducation deletes the entry at index, shifting later entries down.
func (d *Document) RemoveEducation(index int) bool {
	if index < 0 || index >= len(d.Education) {
		return false
	}
	d.Education = append(d.Education[:index], d.Education[index+1:]...)
	return true
}

// AddCertification appends an index-addressed certification entry.
func (d *Document) AddCertification(c CertificationEntry) {
	d.Certifications = append(d.Certifications, c)
}

// PatchCertification shallow-merges the patch onto the entry at index.
func (d *Document) PatchCertification(index int, p CertificationPatch) bool {
	if index < 0 || index >= len(d.Certifications) {
		return false
	}
	p.apply(&d.Certifications[index])
	return true
}

// RemoveCertification deletes the entry at index, shifting later entries down.
func (d *Document) RemoveCertification(index int) bool {
	if index < 0 || index >= len(d.Certifications) {
		return false
	}
	d.Certifications = append(d.Certifications[:index], d.Certifications[index+1:]...)
	return true
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
