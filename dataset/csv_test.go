package dataset

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skillweave/skillweave/nco"
)

var sampleOccs = []nco.Occupation{
	{Code: "6111", Title: "Grower, Vegetable", Description: "Grows vegetables in fields and sells the produce at market."},
	{Code: "6121", Title: "Dairy Farm Worker", Description: "Tends dairy cattle, performs milking and \"related\" duties."},
	{Code: "7111", Title: "House Builder", Description: "Constructs houses using bricks,\nmortar and local materials."},
}

func TestCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleOccs); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != len(sampleOccs) {
		t.Fatalf("got %d records, want %d", len(got), len(sampleOccs))
	}
	for i := range got {
		if got[i] != sampleOccs[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], sampleOccs[i])
		}
	}
}

func TestWriteCSVHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if got := buf.String(); got != "nco_code,title,description\n" {
		t.Errorf("empty dataset output = %q", got)
	}
}

func TestCSVFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.csv")
	if err := WriteCSVFile(path, sampleOccs); err != nil {
		t.Fatalf("WriteCSVFile: %v", err)
	}

	got, err := ReadCSVFile(path)
	if err != nil {
		t.Fatalf("ReadCSVFile: %v", err)
	}
	if len(got) != len(sampleOccs) {
		t.Errorf("got %d records, want %d", len(got), len(sampleOccs))
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "empty input", in: ""},
		{name: "wrong header", in: "code,name,text\n6111,Grower,desc\n"},
		{name: "short row", in: "nco_code,title,description\n6111,Grower\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.in)); err == nil {
				t.Error("want error, got nil")
			}
		})
	}
}

func TestReadCSVStripsBOM(t *testing.T) {
	in := "\ufeffnco_code,title,description\n6111,Grower,Grows vegetables for market.\n"
	got, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != 1 || got[0].Code != "6111" {
		t.Errorf("got %+v", got)
	}
}

func TestReadCSVHeaderCaseInsensitive(t *testing.T) {
	in := "NCO_Code,Title,Description\n6111,Grower,Grows vegetables for market.\n"
	got, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d records, want 1", len(got))
	}
}

func TestReadSkillsCSV(t *testing.T) {
	in := strings.Join([]string{
		"nco_code,skill",
		"6111,soil preparation",
		"6111,irrigation",
		"6121,animal husbandry",
		"6121,",
		",orphan skill",
		"",
	}, "\n")

	got, err := ReadSkillsCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadSkillsCSV: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d codes, want 2", len(got))
	}
	if len(got["6111"]) != 2 || got["6111"][0] != "soil preparation" || got["6111"][1] != "irrigation" {
		t.Errorf("skills for 6111 = %v", got["6111"])
	}
	if len(got["6121"]) != 1 {
		t.Errorf("skills for 6121 = %v, blank skill should be skipped", got["6121"])
	}
}

func TestReadTransitionsCSV(t *testing.T) {
	in := strings.Join([]string{
		"from_nco,to_nco,reason",
		"6111,6112,adjacent crop specialization",
		"6111,1311,farm management step up",
	}, "\n")

	got, err := ReadTransitionsCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadTransitionsCSV: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d transitions, want 2", len(got))
	}
	want := Transition{From: "6111", To: "6112", Reason: "adjacent crop specialization"}
	if got[0] != want {
		t.Errorf("first transition = %+v, want %+v", got[0], want)
	}
}

func TestReadTransitionsCSVNoReasonColumn(t *testing.T) {
	in := "from_nco,to_nco\n6111,6112\n"
	got, err := ReadTransitionsCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadTransitionsCSV: %v", err)
	}
	if len(got) != 1 || got[0].Reason != "" {
		t.Errorf("got %+v", got)
	}
}
