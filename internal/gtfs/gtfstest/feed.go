// Package gtfstest builds small static GTFS feeds for tests.
package gtfstest

import (
	"archive/zip"
	"bytes"
	"testing"
)

// BujumburaFiles is a two-route feed: route L1 with a shape and three zoned
// stops, route L2 without trips.
var BujumburaFiles = map[string]string{
	"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
		"otraco,OTRACO,https://otraco.bi,Africa/Bujumbura\n",
	"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type,route_color\n" +
		"L1,otraco,A,Kinindo - Centre,3,ff0000\n" +
		"L2,otraco,,Rohero Express,3,\n",
	"stops.txt": "stop_id,stop_name,stop_lat,stop_lon,zone_id\n" +
		"s1,Kinindo,-3.4100,29.3500,Kinindo\n" +
		"s2,Marché central,-3.3800,29.3600,Centre\n" +
		"s3,Place de l'Indépendance,-3.3822,29.3644,Centre\n",
	"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
		"wk,1,1,1,1,1,1,0,20250101,20261231\n",
	"trips.txt": "route_id,service_id,trip_id,shape_id\n" +
		"L1,wk,t1,sh1\n" +
		"L1,wk,t2,sh1\n",
	"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"t1,06:10:00,06:10:00,s2,2\n" +
		"t1,06:00:00,06:00:00,s1,1\n" +
		"t1,06:15:00,06:15:00,s3,3\n" +
		"t2,07:00:00,07:00:00,s1,1\n" +
		"t2,07:10:00,07:10:00,s2,2\n",
	"shapes.txt": "shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\n" +
		"sh1,-3.4100,29.3500,1\n" +
		"sh1,-3.3950,29.3550,2\n" +
		"sh1,-3.3800,29.3600,3\n",
}

// Zip packs files into a GTFS zip archive.
func Zip(t testing.TB, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}
