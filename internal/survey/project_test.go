package survey

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/survey/surveytest"
)

func TestLoadDefaultBundle(t *testing.T) {
	t.Parallel()

	p, err := Load(surveytest.Default())
	require.NoError(t, err)

	assert.Len(t, p.AccessPoints, 3)
	assert.Len(t, p.Radios, 3)
	assert.Len(t, p.Measurements, 4)
	assert.Len(t, p.TagKeys, 3)
	assert.Len(t, p.SimulatedRadios, 3)
	require.NotNil(t, p.Meta)
	assert.Equal(t, "Site Survey", p.Meta.Name)

	assert.Equal(t, Features{
		TagKeys: true, FloorPlans: true, Buildings: true, BuildingFloors: true,
		SimulatedRadios: true, AntennaTypes: true, Notes: true, ProjectMeta: true,
	}, p.Features)

	ap := p.AccessPoints[0]
	require.NotNil(t, ap.Vendor)
	assert.Equal(t, "Cisco", *ap.Vendor)
	require.NotNil(t, ap.Location)
	assert.Equal(t, "f1", ap.Location.FloorPlanID)
	assert.InDelta(t, 10.5, ap.Location.Coord.X, 1e-9)
	value, ok := ap.TagValue("k1")
	assert.True(t, ok)
	assert.Equal(t, "Floor3-East", value)

	assert.Nil(t, p.AccessPoints[1].Model)
	assert.Nil(t, p.AccessPoints[2].Location)

	m := p.Measurements[1]
	require.NotNil(t, m.SSID)
	assert.Empty(t, *m.SSID)
	assert.True(t, m.HasTechnology("G"))
	assert.False(t, m.HasTechnology("AX"))
	assert.Nil(t, p.Measurements[3].SSID)
}

func TestLoadMissingRequiredDocument(t *testing.T) {
	t.Parallel()

	for _, name := range RequiredDocuments {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(surveytest.Default().Without(name))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrMissingRequiredDocument)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestLoadOptionalDocumentsAbsent(t *testing.T) {
	t.Parallel()

	p, err := Load(surveytest.Default().Without(OptionalDocuments...))
	require.NoError(t, err)
	assert.Equal(t, Features{}, p.Features)
	assert.Nil(t, p.Meta)
	assert.Empty(t, p.TagKeys)
	assert.ElementsMatch(t, RequiredDocuments, p.Documents())
	assert.Equal(t, map[string]int{
		DocAccessPoints: 3, DocMeasuredRadios: 3, DocMeasurements: 4,
	}, p.Counts())
}

func TestLoadRejectsMalformedDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		doc      string
		body     string
		category errors.ErrorCategory
	}{
		{"not json", DocAccessPoints, `{"accessPoints":[`, errors.CategoryDocumentDecode},
		{"wrong top-level key", DocMeasuredRadios, `{"radios":[]}`, errors.CategoryDocumentDecode},
		{"wrong field type", DocMeasurements, `{"accessPointMeasurements":[{"id":"m1","mac":"x","channel":"36"}]}`, errors.CategoryDocumentDecode},
		{"missing id", DocTagKeys, `{"tagKeys":[{"key":"AP Group"}]}`, errors.CategoryValidation},
		{"duplicate id", DocAccessPoints, `{"accessPoints":[{"id":"a","name":"x"},{"id":"a","name":"y"}]}`, errors.CategoryValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(surveytest.Default().With(tt.doc, tt.body))
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
		})
	}
}

func TestEncodePreservesUnknownAttributes(t *testing.T) {
	t.Parallel()

	p, err := Load(surveytest.Default())
	require.NoError(t, err)

	data, err := p.Encode(DocAccessPoints)
	require.NoError(t, err)

	var doc struct {
		AccessPoints []map[string]json.RawMessage `json:"accessPoints"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.AccessPoints, 3)

	ap1 := doc.AccessPoints[0]
	assert.JSONEq(t, `"CREATED"`, string(ap1["status"]))
	assert.JSONEq(t, `["n1"]`, string(ap1["noteIds"]))
	assert.JSONEq(t, `true`, string(ap1["userDefinedPosition"]))

	ap3 := doc.AccessPoints[2]
	assert.NotContains(t, ap3, "vendor")
	assert.NotContains(t, ap3, "location")
	assert.NotContains(t, ap3, "color")
	assert.JSONEq(t, `[]`, string(ap3["tags"]))
}

func TestEncodeRoundTripIsStable(t *testing.T) {
	t.Parallel()

	bundle := surveytest.Default()
	p, err := Load(bundle)
	require.NoError(t, err)

	for _, name := range p.Documents() {
		encoded, err := p.Encode(name)
		require.NoError(t, err, name)
		assert.JSONEq(t, string(bundle[name]), string(encoded), name)
	}
}

func TestSetColorRemovesAttribute(t *testing.T) {
	t.Parallel()

	p, err := Load(surveytest.Default())
	require.NoError(t, err)

	p.AccessPoints[0].SetColor("")
	p.AccessPoints[1].SetColor("#FF8300")
	p.AccessPoints[1].SetMine(true)

	data, err := p.Encode(DocAccessPoints)
	require.NoError(t, err)

	var doc struct {
		AccessPoints []map[string]any `json:"accessPoints"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.NotContains(t, doc.AccessPoints[0], "color")
	assert.Equal(t, "#FF8300", doc.AccessPoints[1]["color"])
	assert.Equal(t, true, doc.AccessPoints[1]["mine"])
}

func TestEncodeKeepsEnvelopeKeys(t *testing.T) {
	t.Parallel()

	bundle := surveytest.Default().With(DocNotes, `{"notes":[{"id":"n1","text":"x"}],"version":3}`)
	p, err := Load(bundle)
	require.NoError(t, err)

	data, err := p.Encode(DocNotes)
	require.NoError(t, err)
	assert.JSONEq(t, `{"notes":[{"id":"n1","text":"x"}],"version":3}`, string(data))
}

func TestEncodeUnloadedDocument(t *testing.T) {
	t.Parallel()

	p, err := Load(surveytest.Default().Without(DocNotes))
	require.NoError(t, err)

	_, err = p.Encode(DocNotes)
	assert.True(t, errors.IsNotFound(err))

	_, err = p.Encode("unknown.json")
	assert.Error(t, err)
}

func TestAddTagKeys(t *testing.T) {
	t.Parallel()

	p, err := Load(surveytest.Default())
	require.NoError(t, err)

	added := p.AddTagKeys("Switch Port", "AP Group", " ", "Switch Port", "Patch Panel")
	require.Len(t, added, 2)
	assert.Equal(t, "Switch Port", added[0].Key)
	assert.Equal(t, "Patch Panel", added[1].Key)
	for _, k := range added {
		_, err := uuid.Parse(k.ID)
		assert.NoError(t, err)
		require.NotNil(t, k.Status)
		assert.Equal(t, TagStatusCreated, *k.Status)
	}
	assert.Len(t, p.TagKeys, 5)
	assert.Equal(t, []string{DocTagKeys}, p.Modified())

	assert.Nil(t, p.AddTagKeys("AP Group"))
}

func TestAddTagKeysCreatesDocument(t *testing.T) {
	t.Parallel()

	p, err := Load(surveytest.Default().Without(DocTagKeys))
	require.NoError(t, err)
	require.False(t, p.Features.TagKeys)

	p.AddTagKeys("AP Group")
	assert.True(t, p.Features.TagKeys)
	assert.Contains(t, p.Documents(), DocTagKeys)

	docs, err := p.EncodeModified()
	require.NoError(t, err)
	require.Contains(t, docs, DocTagKeys)

	var doc struct {
		TagKeys []struct {
			ID     string `json:"id"`
			Key    string `json:"key"`
			Status string `json:"status"`
		} `json:"tagKeys"`
	}
	require.NoError(t, json.Unmarshal(docs[DocTagKeys], &doc))
	require.Len(t, doc.TagKeys, 1)
	assert.Equal(t, "AP Group", doc.TagKeys[0].Key)
	assert.Equal(t, TagStatusCreated, doc.TagKeys[0].Status)
}

func TestMarshalDoesNotEscapeHTML(t *testing.T) {
	t.Parallel()

	data, err := marshal(map[string]string{"name": "AP <lobby> & bar"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"AP <lobby> & bar"}`, string(data))
}
