package view

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"arena-panel-go/internal/ledger"
	"arena-panel-go/internal/panelapi"
)

// Arena holds the detail state for one selected strategy: its ledger,
// notes and the local-only display filters. Ledger and notes are replaced
// wholesale on every fetch; nothing here persists.
type Arena struct {
	api    panelapi.API
	logger *zap.Logger

	mu         sync.Mutex
	generation uint64
	strategyID string
	entries    []panelapi.LedgerEntry
	notes      []panelapi.Note
	filterMode ledger.Mode
	noteQuery  string

	loadingLedger bool
	loadingNote   bool

	ledgerErr string
	notesErr  string
	actionErr string
}

// NewArena creates the arena detail view.
func NewArena(api panelapi.API, logger *zap.Logger) *Arena {
	return &Arena{
		api:        api,
		logger:     logger,
		filterMode: ledger.FilterAll,
	}
}

// SelectStrategy loads the ledger and notes for one strategy. A newer
// selection supersedes a slower in-flight one; the stale result is
// discarded without touching display state.
func (a *Arena) SelectStrategy(ctx context.Context, strategyID string) error {
	a.mu.Lock()
	a.generation++
	gen := a.generation
	a.strategyID = strategyID
	a.loadingLedger = true
	a.mu.Unlock()

	entries, ledgerErr := a.api.ArenaLedger(ctx, strategyID)
	notes, notesErr := a.api.ArenaNotes(ctx, strategyID)

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.generation {
		a.logger.Debug("Discarded superseded strategy selection",
			zap.String("strategy_id", strategyID))
		return nil
	}
	a.loadingLedger = false

	if ledgerErr != nil {
		a.ledgerErr = ledgerErr.Error()
	} else {
		a.ledgerErr = ""
		a.entries = entries
	}
	if notesErr != nil {
		a.notesErr = notesErr.Error()
	} else {
		a.notesErr = ""
		a.notes = notes
	}

	if ledgerErr != nil {
		return ledgerErr
	}
	return notesErr
}

// SetFilter switches the ledger display filter.
func (a *Arena) SetFilter(mode ledger.Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filterMode = mode
}

// SetNoteQuery updates the local note search query.
func (a *Arena) SetNoteQuery(query string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.noteQuery = query
}

// AddNote appends a note to the selected strategy and reloads the note
// list on success.
func (a *Arena) AddNote(ctx context.Context, text, author string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("note text must not be empty")
	}

	a.mu.Lock()
	strategyID := a.strategyID
	a.loadingNote = true
	a.mu.Unlock()
	if strategyID == "" {
		a.mu.Lock()
		a.loadingNote = false
		a.mu.Unlock()
		return fmt.Errorf("no strategy selected")
	}

	err := a.api.AddArenaNote(ctx, strategyID, text, author)
	var notes []panelapi.Note
	if err == nil {
		notes, err = a.api.ArenaNotes(ctx, strategyID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.loadingNote = false
	if err != nil {
		a.notesErr = err.Error()
		return err
	}
	a.notesErr = ""
	if strategyID == a.strategyID {
		a.notes = notes
	}
	return nil
}

// ExportCSV writes the full ledger as CSV, ignoring the display filter,
// and returns the download filename.
func (a *Arena) ExportCSV(w io.Writer) (string, error) {
	a.mu.Lock()
	strategyID := a.strategyID
	entries := make([]panelapi.LedgerEntry, len(a.entries))
	copy(entries, a.entries)
	a.mu.Unlock()

	if len(entries) == 0 {
		return "", fmt.Errorf("no ledger entries to export")
	}
	if err := ledger.WriteCSV(w, entries); err != nil {
		return "", err
	}
	return ledger.ExportFilename(strategyID), nil
}

// ForceTick asks the backend to run one evaluation cycle.
func (a *Arena) ForceTick(ctx context.Context) error {
	err := a.api.ForceTick(ctx)
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.actionErr = err.Error()
		return err
	}
	a.actionErr = ""
	return nil
}

// Promote forwards promotion thresholds for the given strategy; the
// backend performs the gating.
func (a *Arena) Promote(ctx context.Context, req panelapi.PromoteRequest) error {
	if req.StrategyID == "" {
		a.mu.Lock()
		req.StrategyID = a.strategyID
		a.mu.Unlock()
	}
	if req.StrategyID == "" {
		return fmt.Errorf("no strategy selected")
	}

	err := a.api.Promote(ctx, req)
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.actionErr = err.Error()
		return err
	}
	a.actionErr = ""
	return nil
}

// ArenaSnapshot is the JSON shape served for the strategy detail page.
// Entries honors the active display filter; exports do not.
type ArenaSnapshot struct {
	StrategyID string                 `json:"strategy_id"`
	Aggregates ledger.Summary         `json:"aggregates"`
	Entries    []panelapi.LedgerEntry `json:"entries"`
	Notes      []panelapi.Note        `json:"notes"`
	FilterMode ledger.Mode            `json:"filter_mode"`
	NoteQuery  string                 `json:"note_query,omitempty"`

	LoadingLedger bool `json:"loading_ledger"`
	LoadingNote   bool `json:"loading_note"`

	LedgerError string `json:"ledger_error,omitempty"`
	NotesError  string `json:"notes_error,omitempty"`
	ActionError string `json:"action_error,omitempty"`
}

// Snapshot captures the current detail state with filters applied.
func (a *Arena) Snapshot() ArenaSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ArenaSnapshot{
		StrategyID:    a.strategyID,
		Aggregates:    ledger.Aggregates(a.entries),
		Entries:       ledger.Filter(a.entries, a.filterMode),
		Notes:         ledger.FilterNotes(a.notes, a.noteQuery),
		FilterMode:    a.filterMode,
		NoteQuery:     a.noteQuery,
		LoadingLedger: a.loadingLedger,
		LoadingNote:   a.loadingNote,
		LedgerError:   a.ledgerErr,
		NotesError:    a.notesErr,
		ActionError:   a.actionErr,
	}
}
