package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"eemeter/internal/meter"
	"eemeter/internal/stats"
)

func WriteLedgerCSV(path string, ledger []LedgerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeLedgerCSV(f, ledger)
}

func EncodeLedgerCSV(out io.Writer, ledger []LedgerRow) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	header := []string{
		"index",
		"phase",
		"start",
		"end",
		"days",
		"fuel_type",
		"unit",
		"usage",
		"counterfactual",
		"savings",
		"cum_savings",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range ledger {
		row := []string{
			strconv.Itoa(r.Index),
			string(r.Phase),
			fmtTime(r.Start),
			fmtTime(r.End),
			strconv.Itoa(r.Days),
			string(r.FuelType),
			string(r.Unit),
			fmtObs(r.Usage),
			fmtObs(r.Counterfactual),
			fmtObs(r.Savings),
			fmtFloat(r.CumSavings),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteResultCSV writes one key,kind,value row per output, sorted by key.
func WriteResultCSV(path string, res meter.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeResultCSV(f, res)
}

func EncodeResultCSV(out io.Writer, res meter.Result) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	if err := w.Write([]string{"key", "kind", "value"}); err != nil {
		return err
	}
	for _, k := range res.Keys() {
		v := res[k]
		if err := w.Write([]string{k, v.Kind().String(), fmtValue(v)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func fmtValue(v meter.Value) string {
	switch v.Kind() {
	case meter.KindNumber:
		f, _ := v.Float()
		return fmtFloat(f)
	case meter.KindUndefined:
		return v.Reason()
	default:
		return v.String()
	}
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func fmtObs(o stats.Obs) string {
	v, ok := o.Get()
	if !ok {
		return ""
	}
	return fmtFloat(v)
}
