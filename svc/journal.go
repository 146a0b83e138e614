package svc

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/antonhoess/gitredate"
)

// Outcomes of a journaled operation.
const (
	OutcomeFull    = "full"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
	OutcomeDryRun  = "dry-run"
)

// OperationRecord is one journal entry, a single redate run on one
// repository.
type OperationRecord struct {
	ID   string `json:"id"`
	Repo string `json:"repo"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`

	CommitsInScope   int `json:"commits_in_scope"`
	CommitsRewritten int `json:"commits_rewritten"`

	Refs []RefOutcome `json:"refs,omitempty"`

	// RemapZstd is the old to new hash table as zstd compressed JSON. It
	// can get large on big histories, so it is kept out of listings.
	RemapZstd []byte `json:"remap_zstd,omitempty"`
}

// RefOutcome is the journaled outcome of one planned ref update.
type RefOutcome struct {
	Name      string `json:"name"`
	OldTarget string `json:"old_target"`
	NewTarget string `json:"new_target"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// fill completes the record from the outcome of one run.
func (r *OperationRecord) fill(report *gitredate.Report, err error, dryrun bool) {
	switch {
	case err == nil && dryrun:
		r.Outcome = OutcomeDryRun
	case err == nil:
		r.Outcome = OutcomeFull
	case errors.Is(err, gitredate.ErrPartialCompletion):
		r.Outcome = OutcomePartial
	default:
		r.Outcome = OutcomeFailed
	}

	if err != nil {
		r.Error = err.Error()
	}

	if report == nil {
		return
	}

	r.CommitsInScope = report.CommitsInScope
	r.CommitsRewritten = report.CommitsRewritten

	for _, u := range report.Plan.Updates {
		o := RefOutcome{
			Name:      string(u.Name),
			OldTarget: u.OldTarget.String(),
			NewTarget: u.NewTarget.String(),
			Status:    u.Status.String(),
		}
		if u.Err != nil {
			o.Error = u.Err.Error()
		}
		r.Refs = append(r.Refs, o)
	}

	if len(report.Remap) > 0 {
		blob, cerr := compressRemap(report.Remap)
		if cerr != nil {
			logger.Warn("cannot compress remap table", "id", r.ID, "err", cerr)
			return
		}
		r.RemapZstd = blob
	}
}

func sortOperations(records []*OperationRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].StartedAt.Equal(records[j].StartedAt) {
			return records[i].StartedAt.After(records[j].StartedAt)
		}
		return records[i].ID < records[j].ID
	})
}

// compressRemap serializes the remap table to JSON and compresses it.
func compressRemap(remap gitredate.RemapTable) ([]byte, error) {
	m := make(map[string]string, len(remap))
	for old, repl := range remap {
		m[old.String()] = repl.String()
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	return enc.EncodeAll(raw, nil), nil
}

// decodeRemap reverses [compressRemap].
func decodeRemap(blob []byte) (map[string]string, error) {
	if len(blob) == 0 {
		return nil, nil
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, err
	}

	m := make(map[string]string)
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	return m, nil
}
