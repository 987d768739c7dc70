package survey

import "slices"

// Radio technologies used by simulated radios.
const (
	RadioTechWiFi      = "IEEE802_11"
	RadioTechBluetooth = "BLUETOOTH"
)

// Coord is a position on a floor plan, in floor plan pixels.
type Coord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Location places an access point on a floor plan.
type Location struct {
	FloorPlanID string `json:"floorPlanId"`
	Coord       Coord  `json:"coord"`
	recordAttrs
}

func (l *Location) UnmarshalJSON(data []byte) error {
	type plain Location
	return decodeRecord(data, (*plain)(l), &l.recordAttrs)
}

func (l Location) MarshalJSON() ([]byte, error) {
	type plain Location
	return encodeRecord(plain(l), l.recordAttrs)
}

// Tag is a tag value attached to an access point.
type Tag struct {
	TagKeyID string `json:"tagKeyId"`
	Value    string `json:"value"`
	recordAttrs
}

func (t *Tag) UnmarshalJSON(data []byte) error {
	type plain Tag
	return decodeRecord(data, (*plain)(t), &t.recordAttrs)
}

func (t Tag) MarshalJSON() ([]byte, error) {
	type plain Tag
	return encodeRecord(plain(t), t.recordAttrs)
}

// AccessPoint is a surveyed or planned access point.
type AccessPoint struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Vendor              *string   `json:"vendor"`
	Model               *string   `json:"model"`
	Color               *string   `json:"color"`
	Mine                *bool     `json:"mine"`
	Hidden              *bool     `json:"hidden"`
	UserDefinedPosition *bool     `json:"userDefinedPosition"`
	Location            *Location `json:"location"`
	Tags                []Tag     `json:"tags"`
	recordAttrs
}

func (ap *AccessPoint) UnmarshalJSON(data []byte) error {
	type plain AccessPoint
	return decodeRecord(data, (*plain)(ap), &ap.recordAttrs)
}

func (ap AccessPoint) MarshalJSON() ([]byte, error) {
	type plain AccessPoint
	return encodeRecord(plain(ap), ap.recordAttrs)
}

// SetColor sets the display color; an empty value removes it.
func (ap *AccessPoint) SetColor(color string) {
	if color == "" {
		ap.Color = nil
		ap.forget("color")
		return
	}
	ap.Color = &color
}

// SetMine sets whether the access point belongs to the surveyed network.
func (ap *AccessPoint) SetMine(mine bool) {
	ap.Mine = &mine
}

// TagValue returns the value of the tag with the given key id.
func (ap *AccessPoint) TagValue(tagKeyID string) (string, bool) {
	i := slices.IndexFunc(ap.Tags, func(t Tag) bool { return t.TagKeyID == tagKeyID })
	if i < 0 {
		return "", false
	}
	return ap.Tags[i].Value, true
}

// Radio is a measured radio, linking an access point to its measurements.
type Radio struct {
	ID             string   `json:"id"`
	AccessPointID  string   `json:"accessPointId"`
	MeasurementIDs []string `json:"accessPointMeasurementIds"`
	recordAttrs
}

func (r *Radio) UnmarshalJSON(data []byte) error {
	type plain Radio
	return decodeRecord(data, (*plain)(r), &r.recordAttrs)
}

func (r Radio) MarshalJSON() ([]byte, error) {
	type plain Radio
	return encodeRecord(plain(r), r.recordAttrs)
}

// Measurement is one BSS observed during the survey.
type Measurement struct {
	ID           string   `json:"id"`
	MAC          string   `json:"mac"`
	SSID         *string  `json:"ssid"`
	Security     *string  `json:"security"`
	Channel      []int    `json:"channel"`
	Technologies []string `json:"technologies"`
	recordAttrs
}

func (m *Measurement) UnmarshalJSON(data []byte) error {
	type plain Measurement
	return decodeRecord(data, (*plain)(m), &m.recordAttrs)
}

func (m Measurement) MarshalJSON() ([]byte, error) {
	type plain Measurement
	return encodeRecord(plain(m), m.recordAttrs)
}

// HasTechnology reports whether the BSS advertised the given PHY, e.g. "AC".
func (m *Measurement) HasTechnology(phy string) bool {
	return slices.Contains(m.Technologies, phy)
}

// TagKey defines a tag that access points can carry.
type TagKey struct {
	ID     string  `json:"id"`
	Key    string  `json:"key"`
	Status *string `json:"status"`
	recordAttrs
}

func (k *TagKey) UnmarshalJSON(data []byte) error {
	type plain TagKey
	return decodeRecord(data, (*plain)(k), &k.recordAttrs)
}

func (k TagKey) MarshalJSON() ([]byte, error) {
	type plain TagKey
	return encodeRecord(plain(k), k.recordAttrs)
}

// FloorPlan is a floor map.
type FloorPlan struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	recordAttrs
}

func (f *FloorPlan) UnmarshalJSON(data []byte) error {
	type plain FloorPlan
	return decodeRecord(data, (*plain)(f), &f.recordAttrs)
}

func (f FloorPlan) MarshalJSON() ([]byte, error) {
	type plain FloorPlan
	return encodeRecord(plain(f), f.recordAttrs)
}

// Building groups floor plans.
type Building struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	recordAttrs
}

func (b *Building) UnmarshalJSON(data []byte) error {
	type plain Building
	return decodeRecord(data, (*plain)(b), &b.recordAttrs)
}

func (b Building) MarshalJSON() ([]byte, error) {
	type plain Building
	return encodeRecord(plain(b), b.recordAttrs)
}

// BuildingFloor associates a floor plan with a building.
type BuildingFloor struct {
	FloorPlanID string `json:"floorPlanId"`
	BuildingID  string `json:"buildingId"`
	recordAttrs
}

func (bf *BuildingFloor) UnmarshalJSON(data []byte) error {
	type plain BuildingFloor
	return decodeRecord(data, (*plain)(bf), &bf.recordAttrs)
}

func (bf BuildingFloor) MarshalJSON() ([]byte, error) {
	type plain BuildingFloor
	return encodeRecord(plain(bf), bf.recordAttrs)
}

// SimulatedRadio is a planned radio of a simulated access point.
type SimulatedRadio struct {
	ID                 string   `json:"id"`
	AccessPointID      string   `json:"accessPointId"`
	AccessPointIndex   *int     `json:"accessPointIndex"`
	RadioTechnology    *string  `json:"radioTechnology"`
	AntennaTypeID      *string  `json:"antennaTypeId"`
	TransmitPower      *float64 `json:"transmitPower"`
	Channels           []int    `json:"channelByCenterFrequencyDefinedNarrowChannels"`
	AntennaDirection   *float64 `json:"antennaDirection"`
	AntennaTilt        *float64 `json:"antennaTilt"`
	AntennaHeight      *float64 `json:"antennaHeight"`
	AntennaMounting    *string  `json:"antennaMounting"`
	Technology         *string  `json:"technology"`
	SpatialStreamCount *int     `json:"spatialStreamCount"`
	ShortGuardInterval *bool    `json:"shortGuardInterval"`
	Enabled            *bool    `json:"enabled"`
	Greenfield         *bool    `json:"greenfield"`
	recordAttrs
}

func (s *SimulatedRadio) UnmarshalJSON(data []byte) error {
	type plain SimulatedRadio
	return decodeRecord(data, (*plain)(s), &s.recordAttrs)
}

func (s SimulatedRadio) MarshalJSON() ([]byte, error) {
	type plain SimulatedRadio
	return encodeRecord(plain(s), s.recordAttrs)
}

// IsWiFi reports whether the radio is an 802.11 radio.
func (s *SimulatedRadio) IsWiFi() bool {
	return s.RadioTechnology != nil && *s.RadioTechnology == RadioTechWiFi
}

// IsBluetooth reports whether the radio is a Bluetooth radio.
func (s *SimulatedRadio) IsBluetooth() bool {
	return s.RadioTechnology != nil && *s.RadioTechnology == RadioTechBluetooth
}

// AntennaType describes an antenna model.
type AntennaType struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	MaxGain       *float64 `json:"maxGain"`
	APCoupling    *string  `json:"apCoupling"`
	FrequencyBand *string  `json:"frequencyBand"`
	recordAttrs
}

func (a *AntennaType) UnmarshalJSON(data []byte) error {
	type plain AntennaType
	return decodeRecord(data, (*plain)(a), &a.recordAttrs)
}

func (a AntennaType) MarshalJSON() ([]byte, error) {
	type plain AntennaType
	return encodeRecord(plain(a), a.recordAttrs)
}

// Note is a free text note.
type Note struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	recordAttrs
}

func (n *Note) UnmarshalJSON(data []byte) error {
	type plain Note
	return decodeRecord(data, (*plain)(n), &n.recordAttrs)
}

func (n Note) MarshalJSON() ([]byte, error) {
	type plain Note
	return encodeRecord(plain(n), n.recordAttrs)
}

// Meta is the project metadata record.
type Meta struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	recordAttrs
}

func (m *Meta) UnmarshalJSON(data []byte) error {
	type plain Meta
	return decodeRecord(data, (*plain)(m), &m.recordAttrs)
}

func (m Meta) MarshalJSON() ([]byte, error) {
	type plain Meta
	return encodeRecord(plain(m), m.recordAttrs)
}
