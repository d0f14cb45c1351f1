package analysis

import "testing"

func TestExtractBiomarkersNormalValue(t *testing.T) {
	got := ExtractBiomarkers("CBC panel. Hemoglobin: 13.2 g/dL within expected limits.")
	bm, ok := got["hemoglobin"]
	if !ok {
		t.Fatal("hemoglobin not extracted")
	}
	if bm.Value != "13.2" {
		t.Errorf("value = %q, want 13.2", bm.Value)
	}
	if bm.Unit != "g/dL" {
		t.Errorf("unit = %q, want g/dL", bm.Unit)
	}
	if bm.Status != "normal" {
		t.Errorf("status = %q, want normal", bm.Status)
	}
	if bm.Normal != "12-15.5" {
		t.Errorf("normal = %q, want 12-15.5", bm.Normal)
	}
}

func TestExtractBiomarkersBoundaries(t *testing.T) {
	cases := []struct {
		text   string
		name   string
		status string
	}{
		{"Glucose: 69 mg/dL", "glucose", "low"},
		{"Glucose: 70 mg/dL", "glucose", "normal"},
		{"Glucose: 100 mg/dL", "glucose", "normal"},
		{"Glucose: 101 mg/dL", "glucose", "high"},
		{"Platelets 120 K/uL", "platelets", "low"},
		{"ALT: 60 U/L", "alt", "high"},
	}
	for _, tc := range cases {
		got := ExtractBiomarkers(tc.text)
		bm, ok := got[tc.name]
		if !ok {
			t.Errorf("%q: %s not extracted", tc.text, tc.name)
			continue
		}
		if bm.Status != tc.status {
			t.Errorf("%q: status = %q, want %q", tc.text, bm.Status, tc.status)
		}
	}
}

func TestExtractBiomarkersMissingMarkersOmitted(t *testing.T) {
	got := ExtractBiomarkers("Patient reports feeling well. No labs drawn today.")
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

func TestExtractBiomarkersEmptyInput(t *testing.T) {
	if got := ExtractBiomarkers(""); len(got) != 0 {
		t.Errorf("expected empty map for empty input, got %v", got)
	}
}

func TestBiomarkerStatusUnknownMarker(t *testing.T) {
	if got := BiomarkerStatus("ferritin", "120"); got != "unknown" {
		t.Errorf("status = %q, want unknown for marker without a range", got)
	}
	if got := BiomarkerStatus("glucose", "not-a-number"); got != "unknown" {
		t.Errorf("status = %q, want unknown for unparseable value", got)
	}
}

func TestExtractBiomarkersCaseInsensitive(t *testing.T) {
	got := ExtractBiomarkers("hemoglobin 11.0 g/dL")
	bm, ok := got["hemoglobin"]
	if !ok {
		t.Fatal("lowercase marker not extracted")
	}
	if bm.Status != "low" {
		t.Errorf("status = %q, want low", bm.Status)
	}
}
