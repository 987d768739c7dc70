// Package index resolves the id references between survey documents.
//
// An Index is built once from a loaded project and is read-only afterwards.
// It holds pointers into the project's record slices, so in-place field
// updates (anonymization, mapping) are visible through it, but adding or
// removing records requires a rebuild.
package index

import (
	"cmp"
	"slices"

	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/survey"
)

const component = "index"

// Index provides constant-time lookups across a survey project.
type Index struct {
	features survey.Features

	apByID           map[string]*survey.AccessPoint
	apByMeasurement  map[string]*survey.AccessPoint
	measurementByID  map[string]*survey.Measurement
	measurementsByAP map[string][]*survey.Measurement

	floorName       map[string]string
	buildingName    map[string]string
	buildingByFloor map[string]string

	tagKeys      []*survey.TagKey
	tagKeyName   map[string]string
	tagKeyByName map[string]*survey.TagKey

	simulatedByAP map[string][]*survey.SimulatedRadio
	antennaByID   map[string]*survey.AntennaType

	// broken holds the violation recorded for a measurement id at build time
	broken     map[string]*errors.EnhancedError
	violations errors.Issues
}

// Build indexes p. Dangling references do not fail the build; they are
// collected and returned by Violations and by the affected lookups.
func Build(p *survey.Project) *Index {
	idx := &Index{
		features:         p.Features,
		apByID:           make(map[string]*survey.AccessPoint, len(p.AccessPoints)),
		apByMeasurement:  make(map[string]*survey.AccessPoint, len(p.Measurements)),
		measurementByID:  make(map[string]*survey.Measurement, len(p.Measurements)),
		measurementsByAP: make(map[string][]*survey.Measurement, len(p.AccessPoints)),
		floorName:        make(map[string]string, len(p.FloorPlans)),
		buildingName:     make(map[string]string, len(p.Buildings)),
		buildingByFloor:  make(map[string]string, len(p.BuildingFloors)),
		tagKeyName:       make(map[string]string, len(p.TagKeys)),
		tagKeyByName:     make(map[string]*survey.TagKey, len(p.TagKeys)),
		simulatedByAP:    make(map[string][]*survey.SimulatedRadio),
		antennaByID:      make(map[string]*survey.AntennaType, len(p.AntennaTypes)),
		broken:           make(map[string]*errors.EnhancedError),
	}

	for i := range p.AccessPoints {
		ap := &p.AccessPoints[i]
		idx.apByID[ap.ID] = ap
	}
	for i := range p.Measurements {
		m := &p.Measurements[i]
		idx.measurementByID[m.ID] = m
	}

	idx.linkRadios(p.Radios)
	idx.linkFloors(p)
	idx.linkTagKeys(p.TagKeys)
	idx.linkSimulated(p)

	return idx
}

func (idx *Index) linkRadios(radios []survey.Radio) {
	for i := range radios {
		r := &radios[i]
		ap, ok := idx.apByID[r.AccessPointID]
		for _, mid := range r.MeasurementIDs {
			m, known := idx.measurementByID[mid]
			switch {
			case !known:
				idx.violate(mid, violation("radio %s references unknown measurement %s", r.ID, mid).
					RecordContext(survey.DocMeasuredRadios, r.ID).
					Context("measurement_id", mid))
			case !ok:
				idx.violate(mid, violation("radio %s references unknown access point %s", r.ID, r.AccessPointID).
					RecordContext(survey.DocMeasuredRadios, r.ID).
					Context("measurement_id", mid).
					Context("access_point_id", r.AccessPointID))
			default:
				if owner, dup := idx.apByMeasurement[mid]; dup {
					if owner.ID != ap.ID {
						idx.violations.Add(violation("measurement %s is claimed by access points %s and %s", mid, owner.ID, ap.ID).
							RecordContext(survey.DocMeasuredRadios, r.ID).
							Context("measurement_id", mid).
							Build())
					}
					continue
				}
				idx.apByMeasurement[mid] = ap
				idx.measurementsByAP[ap.ID] = append(idx.measurementsByAP[ap.ID], m)
			}
		}
	}
}

func (idx *Index) linkFloors(p *survey.Project) {
	for i := range p.FloorPlans {
		idx.floorName[p.FloorPlans[i].ID] = p.FloorPlans[i].Name
	}
	for i := range p.Buildings {
		idx.buildingName[p.Buildings[i].ID] = p.Buildings[i].Name
	}

	for i := range p.BuildingFloors {
		bf := &p.BuildingFloors[i]
		name, ok := idx.buildingName[bf.BuildingID]
		if !ok {
			idx.violations.Add(violation("floor %s references unknown building %s", bf.FloorPlanID, bf.BuildingID).
				RecordContext(survey.DocBuildingFloors, bf.FloorPlanID).
				Context("building_id", bf.BuildingID).
				Build())
			continue
		}
		if first, exists := idx.buildingByFloor[bf.FloorPlanID]; exists {
			if first != name {
				idx.violations.Add(violation("floor %s is already in building %q, ignoring %q", bf.FloorPlanID, first, name).
					RecordContext(survey.DocBuildingFloors, bf.FloorPlanID).
					Context("building_id", bf.BuildingID).
					Build())
			}
			continue
		}
		idx.buildingByFloor[bf.FloorPlanID] = name
	}
}

func (idx *Index) linkTagKeys(keys []survey.TagKey) {
	for i := range keys {
		k := &keys[i]
		idx.tagKeys = append(idx.tagKeys, k)
		idx.tagKeyName[k.ID] = k.Key
		if _, exists := idx.tagKeyByName[k.Key]; !exists {
			idx.tagKeyByName[k.Key] = k
		}
	}
}

func (idx *Index) linkSimulated(p *survey.Project) {
	for i := range p.AntennaTypes {
		idx.antennaByID[p.AntennaTypes[i].ID] = &p.AntennaTypes[i]
	}
	for i := range p.SimulatedRadios {
		s := &p.SimulatedRadios[i]
		idx.simulatedByAP[s.AccessPointID] = append(idx.simulatedByAP[s.AccessPointID], s)
	}
	for _, radios := range idx.simulatedByAP {
		slices.SortStableFunc(radios, func(a, b *survey.SimulatedRadio) int {
			return cmp.Compare(radioIndex(a), radioIndex(b))
		})
	}
}

func radioIndex(s *survey.SimulatedRadio) int {
	if s.AccessPointIndex == nil {
		return 0
	}
	return *s.AccessPointIndex
}

func violation(format string, args ...any) *errors.ErrorBuilder {
	return errors.Newf(format, args...).
		Component(component).
		Category(errors.CategoryReferentialIntegrity).
		Priority(errors.PriorityMedium)
}

// violate records a build-time violation that later lookups of mid return.
func (idx *Index) violate(mid string, eb *errors.ErrorBuilder) {
	ee := eb.Build()
	if _, seen := idx.broken[mid]; !seen {
		idx.broken[mid] = ee
	}
	idx.violations.Add(ee)
}

// Features reports which optional documents the indexed project carried.
func (idx *Index) Features() survey.Features {
	return idx.features
}

// Violations returns the referential integrity problems found at build time.
func (idx *Index) Violations() []*errors.EnhancedError {
	return idx.violations.All()
}

// APForMeasurement returns the access point owning a measurement.
func (idx *Index) APForMeasurement(measurementID string) (*survey.AccessPoint, error) {
	if ap, ok := idx.apByMeasurement[measurementID]; ok {
		return ap, nil
	}
	if ee, ok := idx.broken[measurementID]; ok {
		return nil, ee
	}
	return nil, violation("measurement %s is not referenced by any radio", measurementID).
		RecordContext(survey.DocMeasurements, measurementID).
		Build()
}

// AccessPoint returns the access point with the given id.
func (idx *Index) AccessPoint(id string) (*survey.AccessPoint, bool) {
	ap, ok := idx.apByID[id]
	return ap, ok
}

// Measurement returns the measurement with the given id.
func (idx *Index) Measurement(id string) (*survey.Measurement, bool) {
	m, ok := idx.measurementByID[id]
	return m, ok
}

// MeasurementsForAP returns an access point's measurements in radio order.
func (idx *Index) MeasurementsForAP(apID string) []*survey.Measurement {
	return idx.measurementsByAP[apID]
}

// FloorName returns the name of a floor plan.
func (idx *Index) FloorName(floorPlanID string) (string, bool) {
	name, ok := idx.floorName[floorPlanID]
	return name, ok
}

// BuildingForFloor returns the name of the building a floor plan belongs to.
func (idx *Index) BuildingForFloor(floorPlanID string) (string, bool) {
	name, ok := idx.buildingByFloor[floorPlanID]
	return name, ok
}

// TagName returns the key name of a tag key id.
func (idx *Index) TagName(tagKeyID string) (string, bool) {
	name, ok := idx.tagKeyName[tagKeyID]
	return name, ok
}

// TagKeyByName returns the first tag key declared with the given name.
func (idx *Index) TagKeyByName(name string) (*survey.TagKey, bool) {
	k, ok := idx.tagKeyByName[name]
	return k, ok
}

// TagKeys returns the tag keys in declaration order.
func (idx *Index) TagKeys() []*survey.TagKey {
	return slices.Clone(idx.tagKeys)
}

// SimulatedRadios returns an access point's simulated radios ordered by radio index.
func (idx *Index) SimulatedRadios(apID string) []*survey.SimulatedRadio {
	return idx.simulatedByAP[apID]
}

// AntennaType returns the antenna type with the given id.
func (idx *Index) AntennaType(id string) (*survey.AntennaType, bool) {
	a, ok := idx.antennaByID[id]
	return a, ok
}
