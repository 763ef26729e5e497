package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseApplicationPayloadVersioned(t *testing.T) {
	raw := []byte(`{
		"version": 2,
		"enfant": {"prenom": "Lina", "nom": "Diallo", "dateNaissance": "2023-04-12"},
		"tuteurs": [
			{"lien": "MERE", "prenom": "Awa", "nom": "Diallo", "email": " Awa.Diallo@Example.com "},
			{"lien": "PERE", "prenom": "Omar", "nom": "Diallo", "telephone": "+33600000000"}
		]
	}`)

	payload, err := ParseApplicationPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, payload.Version)
	assert.Equal(t, "Lina", payload.Child.FirstName)
	require.Len(t, payload.Guardians, 2)

	// Email is trimmed and lowercased, and the first guardian with an
	// email becomes the principal contact.
	require.NotNil(t, payload.Guardians[0].Email)
	assert.Equal(t, "awa.diallo@example.com", *payload.Guardians[0].Email)
	assert.True(t, payload.Guardians[0].Principal)
	assert.False(t, payload.Guardians[1].Principal)

	email, ok := payload.PrincipalEmail()
	require.True(t, ok)
	assert.Equal(t, "awa.diallo@example.com", email)
}

func TestParseApplicationPayloadFamilyPreferences(t *testing.T) {
	raw := []byte(`{
		"version": 2,
		"enfant": {"prenom": "Lina", "nom": "Diallo"},
		"tuteurs": [{"lien": "Mere", "prenom": "Awa", "nom": "Diallo", "email": "awa@example.com"}],
		"languePreferee": "ar",
		"adresseFacturation": "12 rue Atlas, Marrakech"
	}`)

	payload, err := ParseApplicationPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, "ar", payload.PreferredLanguage())
	require.NotNil(t, payload.BillingAddress)
	assert.Equal(t, "12 rue Atlas, Marrakech", *payload.BillingAddress)

	// Absent preferences fall back to French.
	bare := &ApplicationPayload{}
	assert.Equal(t, "fr", bare.PreferredLanguage())
}

func TestParseApplicationPayloadExplicitPrincipal(t *testing.T) {
	raw := []byte(`{
		"version": 2,
		"enfant": {"prenom": "Noe", "nom": "Petit"},
		"tuteurs": [
			{"lien": "MERE", "prenom": "Eva", "nom": "Petit", "email": "eva@example.com"},
			{"lien": "TUTEUR", "prenom": "Jean", "nom": "Roux", "email": "jean@example.com", "principal": true}
		]
	}`)

	payload, err := ParseApplicationPayload(raw)
	require.NoError(t, err)

	email, ok := payload.PrincipalEmail()
	require.True(t, ok)
	assert.Equal(t, "jean@example.com", email)
	assert.Equal(t, "Famille Roux", payload.FamilyName())
}

func TestParseApplicationPayloadLegacy(t *testing.T) {
	raw := []byte(`{
		"enfant": {"prenom": "Tom", "nom": "Martin", "dateNaissance": "2022-11-03"},
		"mere": {"prenom": "Claire", "nom": "Martin", "email": "claire.martin@example.com"},
		"pere": {"prenom": "Paul", "nom": "Martin", "telephone": "+33611111111"}
	}`)

	payload, err := ParseApplicationPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, payload.Version)
	require.Len(t, payload.Guardians, 2)
	assert.Equal(t, RelationMere, payload.Guardians[0].Relation)
	assert.Equal(t, RelationPere, payload.Guardians[1].Relation)
	assert.True(t, payload.Guardians[0].Principal)

	birthDate := payload.ChildBirthDate()
	require.NotNil(t, birthDate)
	assert.Equal(t, "2022-11-03", birthDate.Format("2006-01-02"))
}

func TestParseApplicationPayloadLegacySingleParent(t *testing.T) {
	raw := []byte(`{
		"enfant": {"prenom": "Ines", "nom": "Bernard"},
		"mere": {"prenom": "Julie", "nom": "Bernard"}
	}`)

	payload, err := ParseApplicationPayload(raw)
	require.NoError(t, err)
	require.Len(t, payload.Guardians, 1)

	// No guardian carries an email, so nobody is principal and there is
	// no invite target.
	assert.False(t, payload.Guardians[0].Principal)
	_, ok := payload.PrincipalEmail()
	assert.False(t, ok)
	assert.Equal(t, "Famille Bernard", payload.FamilyName())
}

func TestParseApplicationPayloadNormalizesEmptyEmailAndRelation(t *testing.T) {
	raw := []byte(`{
		"version": 2,
		"enfant": {"prenom": "Zoe", "nom": "Leroy"},
		"tuteurs": [
			{"lien": "GRAND_ONCLE", "prenom": "Marc", "nom": "Leroy", "email": "   "}
		]
	}`)

	payload, err := ParseApplicationPayload(raw)
	require.NoError(t, err)
	require.Len(t, payload.Guardians, 1)
	assert.Equal(t, RelationAutre, payload.Guardians[0].Relation)
	assert.Nil(t, payload.Guardians[0].Email)
}

func TestParseApplicationPayloadInvalidJSON(t *testing.T) {
	_, err := ParseApplicationPayload([]byte(`{"enfant":`))
	assert.Error(t, err)
}
