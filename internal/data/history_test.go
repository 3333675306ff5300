package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eemeter/internal/model"
)

func TestReadHistoryJSON(t *testing.T) {
	in := `{"periods":[
		{"start":"2014-02-01","end":"2014-03-01","fuel_type":"electricity","usage":800,"unit":"kWh"},
		{"start":"2014-01-01T00:00:00Z","end":"2014-02-01T00:00:00Z","fuel_type":"electricity","usage":null},
		{"start":"2014-01-01","end":"2014-02-01","fuel_type":"natural_gas","usage":40,"unit":"therm"}
	]}`
	h, err := ReadHistoryJSON(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	elec := h.Get(model.FuelElectricity)
	if len(elec) != 2 {
		t.Fatalf("electricity periods = %d", len(elec))
	}
	if elec[0].Usage.OK || elec[0].Start.Month() != 1 {
		t.Fatalf("expected January missing reading first, got %+v", elec[0])
	}
	gas := h.Get(model.FuelNaturalGas)
	if len(gas) != 1 || gas[0].Unit != model.UnitTherm {
		t.Fatalf("gas = %+v", gas)
	}
}

func TestReadHistoryJSONBareArray(t *testing.T) {
	in := `[{"start":"2014-01-01","end":"2014-01-31","fuel_type":"electricity","usage":5}]`
	h, err := ReadHistoryJSON(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if h.Len() != 1 || h.Get(model.FuelElectricity)[0].Unit != model.UnitKWh {
		t.Fatalf("unexpected history: %+v", h.All())
	}
}

func TestReadHistoryRejectsInvalidPeriods(t *testing.T) {
	tests := map[string]string{
		"reversed":  `[{"start":"2014-02-01","end":"2014-01-01","fuel_type":"electricity","usage":5}]`,
		"bad time":  `[{"start":"soon","end":"2014-01-01","fuel_type":"electricity","usage":5}]`,
		"bad unit":  `[{"start":"2014-01-01","end":"2014-02-01","fuel_type":"electricity","usage":5,"unit":"BTU"}]`,
		"no fuel":   `[{"start":"2014-01-01","end":"2014-02-01","usage":5}]`,
		"not json":  `{{`,
		"sub-daily": `[{"start":"2014-01-01T00:00:00Z","end":"2014-01-01T12:00:00Z","fuel_type":"electricity","usage":5}]`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadHistoryJSON(strings.NewReader(in)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestReadHistoryCSV(t *testing.T) {
	in := "start,end,fuel_type,usage,unit\n" +
		"2014-01-01,2014-02-01,electricity,900,kWh\n" +
		"2014-02-01,2014-03-01,electricity,,kWh\n" +
		"2014-01-01,2014-02-01,natural_gas,30,therms\n"
	h, err := ReadHistoryCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	elec := h.Get(model.FuelElectricity)
	if len(elec) != 2 || !elec[0].Usage.OK || elec[1].Usage.OK {
		t.Fatalf("electricity = %+v", elec)
	}
	if got := h.FuelTypes(); len(got) != 2 {
		t.Fatalf("fuel types = %v", got)
	}

	if _, err := ReadHistoryCSV(strings.NewReader("start,end,usage\n")); err == nil {
		t.Fatal("expected missing fuel_type header error")
	}
}

func TestLoadHistoryByExtension(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "h.csv")
	if err := os.WriteFile(csvPath, []byte("start,end,fuel_type,usage\n2014-01-01,2014-02-01,electricity,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := LoadHistory(csvPath)
	if err != nil || h.Len() != 1 {
		t.Fatalf("csv load: %v", err)
	}

	jsonPath := filepath.Join(dir, "h.json")
	records := RecordsFromHistory(h)
	if len(records) != 1 || records[0].Start != "2014-01-01T00:00:00Z" {
		t.Fatalf("records = %+v", records)
	}
	if err := os.WriteFile(jsonPath, []byte(`[{"start":"2014-01-01","end":"2014-02-01","fuel_type":"electricity","usage":1}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadHistory(jsonPath); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadHistory(filepath.Join(dir, "h.xml")); err == nil {
		t.Fatal("expected unsupported extension error")
	}
}

func TestReadHistoryCSVRejectsBadUsage(t *testing.T) {
	in := "start,end,fuel_type,usage\n" +
		"2014-01-01,2014-02-01,electricity,900\n" +
		"2014-02-01,2014-03-01,electricity,\"12,3\"\n"
	_, err := ReadHistoryCSV(strings.NewReader(in))
	if err == nil || !strings.Contains(err.Error(), "line 3") || !strings.Contains(err.Error(), `"12,3"`) {
		t.Fatalf("err = %v, want a line 3 usage error", err)
	}

	nan := "start,end,fuel_type,usage\n2014-01-01,2014-02-01,electricity,NaN\n"
	h, err := ReadHistoryCSV(strings.NewReader(nan))
	if err != nil {
		t.Fatal(err)
	}
	if h.Get(model.FuelElectricity)[0].Usage.OK {
		t.Fatal("NaN usage should be a missing reading")
	}
}
