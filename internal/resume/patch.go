package resume

// Patch types are closed schemas for partial updates: a nil field is "leave
// alone", a set field overwrites. Patches arrive as JSON at the service
// boundary and are decoded strictly, so an unknown key fails as invalid input
// instead of being dropped.

// ExperiencePatch is a partial update for an experience entry. The id itself
// is not patchable.
type ExperiencePatch struct {
	Company      *string   `json:"company,omitempty"`
	Title        *string   `json:"title,omitempty"`
	StartDate    *string   `json:"startDate,omitempty"`
	EndDate      *string   `json:"endDate,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Technologies *[]string `json:"technologies,omitempty"`
	Achievements *[]string `json:"achievements,omitempty"`
}

func (p ExperiencePatch) apply(e *ExperienceEntry) {
	if p.Company != nil {
		e.Company = *p.Company
	}
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.StartDate != nil {
		e.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		e.EndDate = *p.EndDate
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Technologies != nil {
		e.Technologies = *p.Technologies
	}
	if p.Achievements != nil {
		e.Achievements = *p.Achievements
	}
}

// EducationPatch is a partial update for an education entry.
type EducationPatch struct {
	Degree      *string `json:"degree,omitempty"`
	Institution *string `json:"institution,omitempty"`
	Year        *string `json:"year,omitempty"`
	GPA         *string `json:"gpa,omitempty"`
}

func (p EducationPatch) apply(e *EducationEntry) {
	if p.Degree != nil {
		e.Degree = *p.Degree
	}
	if p.Institution != nil {
		e.Institution = *p.Institution
	}
	if p.Year != nil {
		e.Year = *p.Year
	}
	if p.GPA != nil {
		e.GPA = *p.GPA
	}
}

// CertificationPatch is a partial update for a certification entry.
type CertificationPatch struct {
	Name   *string `json:"name,omitempty"`
	Issuer *string `json:"issuer,omitempty"`
	Date   *string `json:"date,omitempty"`
}

func (p CertificationPatch) apply(c *CertificationEntry) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Issuer != nil {
		c.Issuer = *p.Issuer
	}
	if p.Date != nil {
		c.Date = *p.Date
	}
}
