package sessionlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/renameio/v2"
)

// Summary is written once when a session ends
type Summary struct {
	ID            string    `json:"id"`
	Subject       string    `json:"subject"`
	Session       string    `json:"session"`
	Started       time.Time `json:"started"`
	Finished      time.Time `json:"finished"`
	Outcome       string    `json:"outcome"`
	PhasesStarted int       `json:"phases_started"`
	AbortedPhase  int       `json:"aborted_phase,omitempty"`
	Degraded      bool      `json:"degraded"`
	Error         string    `json:"error,omitempty"`
	ParadigmLog   string    `json:"paradigm_log"`
}

// WriteSummary writes s as JSON. The file is replaced atomically so it is either complete or absent
func WriteSummary(path string, s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding summary: %w", err)
	}

	err = renameio.WriteFile(path, append(data, '\n'), 0o644)
	if err != nil {
		return fmt.Errorf("error writing summary: %w", err)
	}
	return nil
}
