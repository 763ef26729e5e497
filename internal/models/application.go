package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ApplicationChild is the child section of a submitted application.
type ApplicationChild struct {
	FirstName string  `json:"prenom" validate:"required,min=1,max=100"`
	LastName  string  `json:"nom" validate:"required,min=1,max=100"`
	BirthDate *string `json:"dateNaissance" validate:"omitempty,datetime=2006-01-02"`
	Gender    *string `json:"sexe"`
	Allergies *string `json:"allergies"`
	Notes     *string `json:"remarques"`
}

// ApplicationGuardian is one guardian entry of a submitted application.
type ApplicationGuardian struct {
	Relation  GuardianRelation `json:"lien" validate:"required"`
	FirstName string           `json:"prenom" validate:"required,min=1,max=100"`
	LastName  string           `json:"nom" validate:"required,min=1,max=100"`
	Email     *string          `json:"email" validate:"omitempty,email"`
	Phone     *string          `json:"telephone"`
	Address   *string          `json:"adresse"`
	Principal bool             `json:"principal"`
}

// ApplicationPayload is the versioned application document. Version 2
// carries an explicit guardian list. Version 1 (or documents with no
// version field) used fixed mere and pere blocks, no desired class and
// no consents, and is normalized on read.
type ApplicationPayload struct {
	Version        int                   `json:"version"`
	Child          ApplicationChild      `json:"enfant" validate:"required"`
	Guardians      []ApplicationGuardian `json:"tuteurs" validate:"required,min=1,dive"`
	DesiredClassID *string               `json:"classeIdSouhaitee,omitempty" validate:"omitempty,uuid"`
	Language       *string               `json:"languePreferee,omitempty" validate:"omitempty,oneof=fr ar en"`
	BillingAddress *string               `json:"adresseFacturation,omitempty" validate:"omitempty,max=300"`
	Consents       map[string]bool       `json:"consentements,omitempty"`
	Comment        *string               `json:"commentaire,omitempty" validate:"omitempty,max=2000"`
}

// legacyGuardian is the pre-versioning guardian block, which had no
// relation or principal field.
type legacyGuardian struct {
	FirstName string  `json:"prenom"`
	LastName  string  `json:"nom"`
	Email     *string `json:"email"`
	Phone     *string `json:"telephone"`
	Address   *string `json:"adresse"`
}

type legacyPayload struct {
	Child  ApplicationChild `json:"enfant"`
	Mother *legacyGuardian  `json:"mere"`
	Father *legacyGuardian  `json:"pere"`
}

// ParseApplicationPayload decodes a stored or submitted application
// document, normalizing legacy shapes into the current versioned form.
// The first guardian with a non-empty email becomes the principal
// contact when no guardian is marked principal.
func ParseApplicationPayload(raw []byte) (*ApplicationPayload, error) {
	var peek struct {
		Version int             `json:"version"`
		Tuteurs json.RawMessage `json:"tuteurs"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return nil, err
	}

	var payload ApplicationPayload
	if peek.Version >= 2 || len(peek.Tuteurs) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		payload.Version = 2
	} else {
		var legacy legacyPayload
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, err
		}
		payload = ApplicationPayload{Version: 2, Child: legacy.Child}
		if legacy.Mother != nil {
			payload.Guardians = append(payload.Guardians, ApplicationGuardian{
				Relation:  RelationMere,
				FirstName: legacy.Mother.FirstName,
				LastName:  legacy.Mother.LastName,
				Email:     legacy.Mother.Email,
				Phone:     legacy.Mother.Phone,
				Address:   legacy.Mother.Address,
			})
		}
		if legacy.Father != nil {
			payload.Guardians = append(payload.Guardians, ApplicationGuardian{
				Relation:  RelationPere,
				FirstName: legacy.Father.FirstName,
				LastName:  legacy.Father.LastName,
				Email:     legacy.Father.Email,
				Phone:     legacy.Father.Phone,
				Address:   legacy.Father.Address,
			})
		}
	}

	for i := range payload.Guardians {
		if !payload.Guardians[i].Relation.Valid() {
			payload.Guardians[i].Relation = RelationAutre
		}
		if payload.Guardians[i].Email != nil {
			trimmed := strings.ToLower(strings.TrimSpace(*payload.Guardians[i].Email))
			if trimmed == "" {
				payload.Guardians[i].Email = nil
			} else {
				payload.Guardians[i].Email = &trimmed
			}
		}
	}

	hasPrincipal := false
	for _, g := range payload.Guardians {
		if g.Principal {
			hasPrincipal = true
			break
		}
	}
	if !hasPrincipal {
		for i := range payload.Guardians {
			if payload.Guardians[i].Email != nil {
				payload.Guardians[i].Principal = true
				break
			}
		}
	}

	return &payload, nil
}

// PrincipalEmail returns the email of the principal guardian, falling
// back to the first guardian with any email. The second return value is
// false when no guardian carries an email at all.
func (p *ApplicationPayload) PrincipalEmail() (string, bool) {
	for _, g := range p.Guardians {
		if g.Principal && g.Email != nil {
			return *g.Email, true
		}
	}
	for _, g := range p.Guardians {
		if g.Email != nil {
			return *g.Email, true
		}
	}
	return "", false
}

// PreferredLanguage returns the requested family language, defaulting
// to French.
func (p *ApplicationPayload) PreferredLanguage() string {
	if p.Language != nil && *p.Language != "" {
		return *p.Language
	}
	return "fr"
}

// FamilyName derives a family label from the guardians, falling back to
// the child's last name.
func (p *ApplicationPayload) FamilyName() string {
	for _, g := range p.Guardians {
		if g.Principal && g.LastName != "" {
			return "Famille " + g.LastName
		}
	}
	for _, g := range p.Guardians {
		if g.LastName != "" {
			return "Famille " + g.LastName
		}
	}
	return "Famille " + p.Child.LastName
}

// ChildBirthDate parses the child's birth date when present.
func (p *ApplicationPayload) ChildBirthDate() *time.Time {
	if p.Child.BirthDate == nil || *p.Child.BirthDate == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", *p.Child.BirthDate)
	if err != nil {
		return nil
	}
	return &t
}
