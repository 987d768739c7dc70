package survey

// Document names inside a survey bundle.
const (
	DocAccessPoints    = "accessPoints.json"
	DocMeasuredRadios  = "measuredRadios.json"
	DocMeasurements    = "accessPointMeasurements.json"
	DocTagKeys         = "tagKeys.json"
	DocFloorPlans      = "floorPlans.json"
	DocBuildings       = "buildings.json"
	DocBuildingFloors  = "buildingFloors.json"
	DocSimulatedRadios = "simulatedRadios.json"
	DocAntennaTypes    = "antennaTypes.json"
	DocNotes           = "notes.json"
	DocProject         = "project.json"
)

// documentKeys maps each document to the top-level key holding its records.
var documentKeys = map[string]string{
	DocAccessPoints:    "accessPoints",
	DocMeasuredRadios:  "measuredRadios",
	DocMeasurements:    "accessPointMeasurements",
	DocTagKeys:         "tagKeys",
	DocFloorPlans:      "floorPlans",
	DocBuildings:       "buildings",
	DocBuildingFloors:  "buildingFloors",
	DocSimulatedRadios: "simulatedRadios",
	DocAntennaTypes:    "antennaTypes",
	DocNotes:           "notes",
	DocProject:         "project",
}

// RequiredDocuments must be present in every bundle.
var RequiredDocuments = []string{DocAccessPoints, DocMeasuredRadios, DocMeasurements}

// OptionalDocuments may be absent; each absence disables only what depends on it.
var OptionalDocuments = []string{
	DocTagKeys,
	DocFloorPlans,
	DocBuildings,
	DocBuildingFloors,
	DocSimulatedRadios,
	DocAntennaTypes,
	DocNotes,
	DocProject,
}

// DocumentKey returns the top-level key of a known document.
func DocumentKey(name string) (string, bool) {
	key, ok := documentKeys[name]
	return key, ok
}

// Source provides raw bundle documents by name.
type Source interface {
	Document(name string) ([]byte, bool)
}

// Features records which optional documents were loaded.
type Features struct {
	TagKeys         bool
	FloorPlans      bool
	Buildings       bool
	BuildingFloors  bool
	SimulatedRadios bool
	AntennaTypes    bool
	Notes           bool
	ProjectMeta     bool
}

// Has reports whether the named optional document was loaded.
// Required documents always report true.
func (f Features) Has(name string) bool {
	switch name {
	case DocTagKeys:
		return f.TagKeys
	case DocFloorPlans:
		return f.FloorPlans
	case DocBuildings:
		return f.Buildings
	case DocBuildingFloors:
		return f.BuildingFloors
	case DocSimulatedRadios:
		return f.SimulatedRadios
	case DocAntennaTypes:
		return f.AntennaTypes
	case DocNotes:
		return f.Notes
	case DocProject:
		return f.ProjectMeta
	case DocAccessPoints, DocMeasuredRadios, DocMeasurements:
		return true
	}
	return false
}

func (f *Features) set(name string) {
	switch name {
	case DocTagKeys:
		f.TagKeys = true
	case DocFloorPlans:
		f.FloorPlans = true
	case DocBuildings:
		f.Buildings = true
	case DocBuildingFloors:
		f.BuildingFloors = true
	case DocSimulatedRadios:
		f.SimulatedRadios = true
	case DocAntennaTypes:
		f.AntennaTypes = true
	case DocNotes:
		f.Notes = true
	case DocProject:
		f.ProjectMeta = true
	}
}
