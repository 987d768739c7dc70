// Package surveytest provides survey bundle fixtures for tests.
package surveytest

import (
	"maps"
	"os"
	"slices"

	"github.com/klauspost/compress/zip"
)

// Bundle is an in-memory set of bundle documents. It satisfies survey.Source.
type Bundle map[string][]byte

// Document returns the named document.
func (b Bundle) Document(name string) ([]byte, bool) {
	data, ok := b[name]
	return data, ok
}

// Names returns the document names in sorted order.
func (b Bundle) Names() []string {
	return slices.Sorted(maps.Keys(b))
}

// Without returns a copy of b without the named documents.
func (b Bundle) Without(names ...string) Bundle {
	out := maps.Clone(b)
	for _, name := range names {
		delete(out, name)
	}
	return out
}

// With returns a copy of b with the named document replaced.
func (b Bundle) With(name, body string) Bundle {
	out := maps.Clone(b)
	out[name] = []byte(body)
	return out
}

// WriteZip writes b as a bundle archive at path, one Deflate entry per
// document in name order.
func (b Bundle) WriteZip(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)
	for _, name := range b.Names() {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			_ = f.Close()
			return err
		}
		if _, err := w.Write(b[name]); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Default returns a small but complete survey:
//
//   - ap1 "AP-01" on floor f1 of building HQ with three tags and two measurements
//     (80 MHz "Corp" on 5 GHz, 20 MHz hidden SSID on 2.4 GHz)
//   - ap2 "AP-02" on floor f2 (no building), no tags, one dot-notation BSSID
//   - ap3 "Neighbor" without location, one measurement with three bonded channels
//   - ap1 has two simulated Wi-Fi radios and one Bluetooth radio
func Default() Bundle {
	return Bundle{
		"project.json": []byte(`{"project":{"id":"p1","name":"Site Survey","schemaVersion":"1.0"}}`),
		"tagKeys.json": []byte(`{"tagKeys":[
			{"id":"k1","key":"AP Group","status":"CREATED"},
			{"id":"k2","key":"AP Serial","status":"CREATED"},
			{"id":"k3","key":"Wired MAC","status":"CREATED"}]}`),
		"floorPlans.json": []byte(`{"floorPlans":[
			{"id":"f1","name":"Level 1","width":1200.0,"height":800.0},
			{"id":"f2","name":"Level 2"}]}`),
		"buildings.json": []byte(`{"buildings":[{"id":"b1","name":"HQ"}]}`),
		"buildingFloors.json": []byte(`{"buildingFloors":[
			{"id":"bf1","floorPlanId":"f1","buildingId":"b1","floorNumber":1}]}`),
		"accessPoints.json": []byte(`{"accessPoints":[
			{"id":"ap1","name":"AP-01","vendor":"Cisco","model":"C9120","color":"#FFE600","mine":true,
			 "hidden":false,"userDefinedPosition":true,"status":"CREATED","noteIds":["n1"],
			 "location":{"floorPlanId":"f1","coord":{"x":10.5,"y":20}},
			 "tags":[{"tagKeyId":"k1","value":"Floor3-East"},
			         {"tagKeyId":"k2","value":"CNABCD1234"},
			         {"tagKeyId":"k3","value":"aa:bb:cc:00:11:22"}]},
			{"id":"ap2","name":"AP-02","vendor":"Aruba","mine":false,
			 "location":{"floorPlanId":"f2","coord":{"x":1,"y":2}},"tags":[]},
			{"id":"ap3","name":"Neighbor","mine":false,"tags":[]}]}`),
		"measuredRadios.json": []byte(`{"measuredRadios":[
			{"id":"r1","accessPointId":"ap1","accessPointMeasurementIds":["m1","m2"]},
			{"id":"r2","accessPointId":"ap2","accessPointMeasurementIds":["m3"]},
			{"id":"r3","accessPointId":"ap3","accessPointMeasurementIds":["m4"]}]}`),
		"accessPointMeasurements.json": []byte(`{"accessPointMeasurements":[
			{"id":"m1","mac":"AA:BB:CC:DD:EE:01","ssid":"Corp","security":"WPA2","channel":[36,40,44,48],
			 "technologies":["A","N","AC"],"informationElements":"AAEC"},
			{"id":"m2","mac":"AA:BB:CC:DD:EE:02","ssid":"","security":"OPEN","channel":[1],
			 "technologies":["B","G","N"]},
			{"id":"m3","mac":"aabb.ccdd.ee03","ssid":"Guest","channel":[149,153],"technologies":["A","N"]},
			{"id":"m4","mac":"11-22-33-44-55-66","channel":[36,40,44],"technologies":["AX"]}]}`),
		"simulatedRadios.json": []byte(`{"simulatedRadios":[
			{"id":"s1","accessPointId":"ap1","accessPointIndex":0,"radioTechnology":"IEEE802_11",
			 "antennaTypeId":"a1","transmitPower":25.1,"channelByCenterFrequencyDefinedNarrowChannels":[36,40],
			 "antennaDirection":90,"antennaTilt":0,"antennaHeight":2.4,"antennaMounting":"CEILING",
			 "technology":"AC","spatialStreamCount":2,"shortGuardInterval":true,"enabled":true,"greenfield":false,
			 "status":"CREATED","defaultAntennas":[]},
			{"id":"s2","accessPointId":"ap1","accessPointIndex":1,"radioTechnology":"IEEE802_11",
			 "antennaTypeId":"a2","transmitPower":10,"channelByCenterFrequencyDefinedNarrowChannels":[6],
			 "technology":"N","enabled":true},
			{"id":"s3","accessPointId":"ap1","accessPointIndex":2,"radioTechnology":"BLUETOOTH",
			 "antennaTypeId":"a1","transmitPower":1,"enabled":false}]}`),
		"antennaTypes.json": []byte(`{"antennaTypes":[
			{"id":"a1","name":"Internal Omni","maxGain":4.5,"apCoupling":"INTERNAL_ANTENNA","frequencyBand":"FIVE"},
			{"id":"a2","name":"Internal 2.4","maxGain":3,"apCoupling":"INTERNAL_ANTENNA","frequencyBand":"TWO"}]}`),
		"notes.json": []byte(`{"notes":[{"id":"n1","text":"Mounted above door","history":[]}]}`),
	}
}
