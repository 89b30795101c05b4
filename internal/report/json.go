package report

import (
	"encoding/json"
	"io"
	"os"

	"github.com/dorjee9/algotrade-simple/internal/backtest"
	"github.com/dorjee9/algotrade-simple/internal/model"
)

// Document is the JSON shape of a finished run.
type Document struct {
	RunID   string            `json:"run_id,omitempty"`
	Params  backtest.Params   `json:"params"`
	Summary model.Summary     `json:"summary"`
	Days    []model.DayResult `json:"days"`
}

// NewDocument wraps res for encoding.
func NewDocument(runID string, res *backtest.Result) Document {
	return Document{RunID: runID, Params: res.Params, Summary: res.Summary, Days: res.Days}
}

// WriteJSON encodes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteJSONFile writes doc to path, replacing any existing file.
func WriteJSONFile(path string, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
