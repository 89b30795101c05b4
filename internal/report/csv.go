package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/dorjee9/algotrade-simple/internal/model"
)

var csvHeader = []string{"date", "signal", "action", "fill_price", "close", "cash", "position", "portfolio_value"}

// WriteCSV writes the daily series with a header row.
func WriteCSV(w io.Writer, days []model.DayResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range days {
		d := &days[i]
		rec := []string{
			d.Date.Format(model.DateLayout),
			strconv.Itoa(d.Signal),
			string(d.Action),
			strconv.FormatFloat(d.FillPrice, 'f', 4, 64),
			strconv.FormatFloat(d.Close, 'f', 4, 64),
			strconv.FormatFloat(d.Cash, 'f', 2, 64),
			strconv.FormatInt(d.Position, 10),
			strconv.FormatFloat(d.PortfolioValue, 'f', 2, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the daily series to path.
func WriteCSVFile(path string, days []model.DayResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, days); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
