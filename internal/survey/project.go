// Package survey holds the typed model of a survey bundle and loads it from raw documents.
package survey

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/esxtool/esxtool/internal/errors"
)

// TagStatusCreated marks tag keys added by this tool.
const TagStatusCreated = "CREATED"

// Project is a fully loaded survey bundle.
type Project struct {
	Meta            *Meta
	AccessPoints    []AccessPoint
	Radios          []Radio
	Measurements    []Measurement
	TagKeys         []TagKey
	FloorPlans      []FloorPlan
	Buildings       []Building
	BuildingFloors  []BuildingFloor
	SimulatedRadios []SimulatedRadio
	AntennaTypes    []AntennaType
	Notes           []Note

	Features Features

	// envelopes keeps top-level keys other than the record list, per document
	envelopes map[string]map[string]json.RawMessage
	loaded    []string
	modified  map[string]bool
}

// Load decodes every known document from src. A missing required document
// aborts the load; missing optional documents only clear their feature flag.
func Load(src Source) (*Project, error) {
	var missing []string
	for _, name := range RequiredDocuments {
		if _, ok := src.Document(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Newf("bundle is missing required documents: %s", strings.Join(missing, ", ")).
			Component("survey").
			Category(errors.CategoryMissingDocument).
			Priority(errors.PriorityHigh).
			Context("documents", missing).
			Build()
	}

	p := &Project{
		envelopes: make(map[string]map[string]json.RawMessage),
		modified:  make(map[string]bool),
	}

	steps := []struct {
		name   string
		decode func(raw json.RawMessage) error
	}{
		{DocProject, func(raw json.RawMessage) error { return json.Unmarshal(raw, &p.Meta) }},
		{DocAccessPoints, func(raw json.RawMessage) error { return json.Unmarshal(raw, &p.AccessPoints) }},
		{DocMeasuredRadios, func(raw json.RawMessage) error { return json.Unmarshal(raw, &p.Radios) }},
		{DocMeasurements, func(raw json.RawMessage) error { return json.Unmarshal(raw, &p.Measurements) }},
		{DocTagKeys, func(raw json.RawMessage) error { return json.Unmarshal(raw, &p.TagKeys) }},
		{DocFloorPlans, func(raw json.RawMessage) error { return json.Unmarshal(raw, &p.FloorPlans) }},
		{DocBuildings, func(raw json.RawMessage) error { return json.Unmarshal(raw, &p.Buildings) }},
		{DocBuildingFloors, func(raw json.RawMessage) error { return json.Unmarshal(raw, &p.BuildingFloors) }},
		{DocSimulatedRadios, func(raw json.RawMessage) error { return json.Unmarshal(raw, &p.SimulatedRadios) }},
		{DocAntennaTypes, func(raw json.RawMessage) error { return json.Unmarshal(raw, &p.AntennaTypes) }},
		{DocNotes, func(raw json.RawMessage) error { return json.Unmarshal(raw, &p.Notes) }},
	}

	for _, step := range steps {
		data, ok := src.Document(step.name)
		if !ok {
			continue
		}
		raw, err := p.openEnvelope(step.name, data)
		if err != nil {
			return nil, err
		}
		if err := step.decode(raw); err != nil {
			return nil, decodeError(step.name, err)
		}
		p.loaded = append(p.loaded, step.name)
		p.Features.set(step.name)
	}

	if err := p.validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// openEnvelope splits a document into its record list and the other top-level keys.
func (p *Project) openEnvelope(name string, data []byte) (json.RawMessage, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, decodeError(name, err)
	}

	key := documentKeys[name]
	raw, ok := env[key]
	if !ok {
		return nil, decodeError(name, fmt.Errorf("top-level key %q not found", key))
	}
	delete(env, key)
	p.envelopes[name] = env
	return raw, nil
}

func decodeError(name string, err error) error {
	return errors.New(fmt.Errorf("decode %s: %w", name, err)).
		Component("survey").
		Category(errors.CategoryDocumentDecode).
		Priority(errors.PriorityHigh).
		RecordContext(name, "").
		Build()
}

// validate checks that every record carries a unique, non-empty id.
func (p *Project) validate() error {
	var problems []string
	check := func(doc string, ids []string) {
		seen := make(map[string]bool, len(ids))
		for i, id := range ids {
			switch {
			case id == "":
				problems = append(problems, fmt.Sprintf("%s record %d has no id", doc, i))
			case seen[id]:
				problems = append(problems, fmt.Sprintf("%s id %s is not unique", doc, id))
			}
			seen[id] = true
		}
	}

	check(DocAccessPoints, collectIDs(p.AccessPoints, func(r *AccessPoint) string { return r.ID }))
	check(DocMeasuredRadios, collectIDs(p.Radios, func(r *Radio) string { return r.ID }))
	check(DocMeasurements, collectIDs(p.Measurements, func(r *Measurement) string { return r.ID }))
	check(DocTagKeys, collectIDs(p.TagKeys, func(r *TagKey) string { return r.ID }))
	check(DocFloorPlans, collectIDs(p.FloorPlans, func(r *FloorPlan) string { return r.ID }))
	check(DocBuildings, collectIDs(p.Buildings, func(r *Building) string { return r.ID }))
	check(DocSimulatedRadios, collectIDs(p.SimulatedRadios, func(r *SimulatedRadio) string { return r.ID }))
	check(DocAntennaTypes, collectIDs(p.AntennaTypes, func(r *AntennaType) string { return r.ID }))

	if len(problems) == 0 {
		return nil
	}
	return errors.Newf("invalid survey records: %s", strings.Join(problems, "; ")).
		Component("survey").
		Category(errors.CategoryValidation).
		Context("problem_count", len(problems)).
		Build()
}

func collectIDs[T any](rows []T, id func(*T) string) []string {
	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = id(&rows[i])
	}
	return ids
}

// Documents returns the names of the loaded documents in load order.
func (p *Project) Documents() []string {
	return slices.Clone(p.loaded)
}

// Counts returns the number of records per loaded document.
func (p *Project) Counts() map[string]int {
	counts := map[string]int{
		DocAccessPoints:   len(p.AccessPoints),
		DocMeasuredRadios: len(p.Radios),
		DocMeasurements:   len(p.Measurements),
	}
	optional := map[string]int{
		DocTagKeys:         len(p.TagKeys),
		DocFloorPlans:      len(p.FloorPlans),
		DocBuildings:       len(p.Buildings),
		DocBuildingFloors:  len(p.BuildingFloors),
		DocSimulatedRadios: len(p.SimulatedRadios),
		DocAntennaTypes:    len(p.AntennaTypes),
		DocNotes:           len(p.Notes),
	}
	for name, n := range optional {
		if p.Features.Has(name) {
			counts[name] = n
		}
	}
	if p.Features.ProjectMeta {
		counts[DocProject] = 1
	}
	return counts
}

// MarkModified flags a document for re-encoding on write-back.
func (p *Project) MarkModified(name string) {
	p.modified[name] = true
}

// Modified returns the flagged documents in a stable order.
func (p *Project) Modified() []string {
	names := make([]string, 0, len(p.modified))
	for name := range p.modified {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Encode serializes one document from the current typed records.
func (p *Project) Encode(name string) ([]byte, error) {
	key, ok := documentKeys[name]
	if !ok {
		return nil, errors.Newf("unknown document %s", name).
			Component("survey").
			Category(errors.CategoryValidation).
			Build()
	}
	if !p.Features.Has(name) {
		return nil, errors.Newf("document %s was not loaded", name).
			Component("survey").
			Category(errors.CategoryNotFound).
			Build()
	}

	var rows any
	switch name {
	case DocProject:
		rows = p.Meta
	case DocAccessPoints:
		rows = p.AccessPoints
	case DocMeasuredRadios:
		rows = p.Radios
	case DocMeasurements:
		rows = p.Measurements
	case DocTagKeys:
		rows = p.TagKeys
	case DocFloorPlans:
		rows = p.FloorPlans
	case DocBuildings:
		rows = p.Buildings
	case DocBuildingFloors:
		rows = p.BuildingFloors
	case DocSimulatedRadios:
		rows = p.SimulatedRadios
	case DocAntennaTypes:
		rows = p.AntennaTypes
	case DocNotes:
		rows = p.Notes
	}

	encoded, err := marshal(rows)
	if err != nil {
		return nil, errors.New(fmt.Errorf("encode %s: %w", name, err)).
			Component("survey").
			Category(errors.CategoryDocumentDecode).
			Build()
	}

	env := make(map[string]json.RawMessage, len(p.envelopes[name])+1)
	maps.Copy(env, p.envelopes[name])
	env[key] = encoded
	return marshal(env)
}

// EncodeModified serializes every flagged document.
func (p *Project) EncodeModified() (map[string][]byte, error) {
	out := make(map[string][]byte, len(p.modified))
	for _, name := range p.Modified() {
		data, err := p.Encode(name)
		if err != nil {
			return nil, err
		}
		out[name] = data
	}
	return out, nil
}

// AddTagKeys appends a tag key with a fresh UUID for every name not already
// defined, creating the tag key document when the bundle has none. It returns
// the keys that were added.
func (p *Project) AddTagKeys(names ...string) []TagKey {
	existing := make(map[string]bool, len(p.TagKeys))
	for i := range p.TagKeys {
		existing[p.TagKeys[i].Key] = true
	}

	var added []TagKey
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || existing[name] {
			continue
		}
		existing[name] = true
		status := TagStatusCreated
		added = append(added, TagKey{ID: uuid.NewString(), Key: name, Status: &status})
	}

	if len(added) == 0 {
		return nil
	}

	if !p.Features.TagKeys {
		p.Features.TagKeys = true
		p.envelopes[DocTagKeys] = map[string]json.RawMessage{}
		p.loaded = append(p.loaded, DocTagKeys)
	}
	p.TagKeys = append(p.TagKeys, added...)
	p.MarkModified(DocTagKeys)
	return added
}
