// Package lifecycle drives every document through its fixed, forward-only
// transition table.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/nurpe/orderflow/internal/model"
)

var (
	ErrIllegalTransition  = errors.New("illegal transition")
	ErrPreconditionNotMet = errors.New("precondition not met")
)

type Event string

const (
	EventSend     Event = "send"
	EventConfirm  Event = "confirm"
	EventReceive  Event = "receive"
	EventDispatch Event = "dispatch"
	EventDeliver  Event = "deliver"
	EventAdvance  Event = "advance"
	EventStart    Event = "start"
)

type table struct {
	states []model.Status
	edges  map[model.Status]map[Event]model.Status
}

// newTable links states[i] to states[i+1] through events[i].
func newTable(states []model.Status, events ...Event) (table, error) {
	if len(states) == 0 {
		return table{}, errors.New("lifecycle table has no states")
	}
	if len(events) != len(states)-1 {
		return table{}, fmt.Errorf("lifecycle table has %d states and %d events", len(states), len(events))
	}
	seen := make(map[model.Status]bool, len(states))
	for _, state := range states {
		if seen[state] {
			return table{}, fmt.Errorf("lifecycle table revisits %s", state)
		}
		seen[state] = true
	}
	t := table{states: states, edges: make(map[model.Status]map[Event]model.Status)}
	for i, event := range events {
		t.edges[states[i]] = map[Event]model.Status{event: states[i+1]}
	}
	return t, nil
}

func mustTable(states []model.Status, events ...Event) table {
	t, err := newTable(states, events...)
	if err != nil {
		panic(err)
	}
	return t
}

func repeat(event Event, n int) []Event {
	events := make([]Event, n)
	for i := range events {
		events[i] = event
	}
	return events
}

var tables = map[model.DocumentType]table{
	model.DocumentOrderSheet: mustTable(
		[]model.Status{model.StatusDraft, model.StatusSent, model.StatusConfirmed},
		EventSend, EventConfirm,
	),
	model.DocumentSalesOrder: mustTable([]model.Status{model.StatusConfirmed}),
	model.DocumentPurchaseOrder: mustTable(
		[]model.Status{model.StatusDraft, model.StatusSent, model.StatusReceived},
		EventSend, EventReceive,
	),
	model.DocumentShipment: mustTable(
		[]model.Status{model.StatusPreparing, model.StatusInTransit, model.StatusDelivered},
		EventDispatch, EventDeliver,
	),
	model.DocumentReceiptGate: mustTable(
		[]model.Status{model.StageDocs, model.StageVehicle, model.StageInspect, model.StageDone},
		repeat(EventAdvance, 3)...,
	),
	model.DocumentOutboundGate: mustTable(
		[]model.Status{model.StageDocs, model.StageChecklist, model.StageSignature, model.StageDone},
		repeat(EventAdvance, 3)...,
	),
}

// Initial returns the state a new document of the given type starts in.
func Initial(docType model.DocumentType) (model.Status, error) {
	t, ok := tables[docType]
	if !ok || len(t.states) == 0 {
		return "", fmt.Errorf("no lifecycle for %s", docType)
	}
	return t.states[0], nil
}

// Next looks up the target of event from the given state.
func Next(docType model.DocumentType, from model.Status, event Event) (model.Status, error) {
	t, ok := tables[docType]
	if !ok {
		return "", fmt.Errorf("%w: no lifecycle for %s", ErrIllegalTransition, docType)
	}
	to, ok := t.edges[from][event]
	if !ok {
		return "", fmt.Errorf("%w: %s cannot %s from %q", ErrIllegalTransition, docType, event, from)
	}
	return to, nil
}

// Terminal reports whether no event leads out of the state.
func Terminal(docType model.DocumentType, status model.Status) bool {
	return len(tables[docType].edges[status]) == 0
}

// Guard checks one data precondition of a transition. Guards run after the
// transition is known to be legal and before anything is changed.
type Guard func() error

// Require builds a guard that fails naming condition when ok is false.
func Require(ok bool, condition string) Guard {
	return func() error {
		if !ok {
			return Unmet(condition)
		}
		return nil
	}
}

func Unmet(condition string) error {
	return fmt.Errorf("%w: %s", ErrPreconditionNotMet, condition)
}

type Engine struct {
	now func() time.Time
}

func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

func (e *Engine) Now() time.Time {
	return e.now().UTC()
}

// Transition applies event to doc. On any error doc is left untouched.
func (e *Engine) Transition(doc model.Stateful, event Event, actor model.Actor, guards ...Guard) error {
	from := doc.State()
	to, err := Next(doc.Kind(), from, event)
	if err != nil {
		return err
	}
	for _, guard := range guards {
		if err := guard(); err != nil {
			return err
		}
	}
	doc.SetState(to)
	doc.AppendHistory(model.HistoryEntry{
		Actor: actor,
		Event: string(event),
		From:  from,
		To:    to,
		At:    e.Now(),
	})
	return nil
}

// Start puts a document (or gate) that has no state yet into its initial
// state. Starting twice is an illegal transition.
func (e *Engine) Start(doc model.Stateful, actor model.Actor) error {
	if doc.State() != "" {
		return fmt.Errorf("%w: %s already started at %q", ErrIllegalTransition, doc.Kind(), doc.State())
	}
	initial, err := Initial(doc.Kind())
	if err != nil {
		return err
	}
	doc.SetState(initial)
	doc.AppendHistory(model.HistoryEntry{
		Actor: actor,
		Event: string(EventStart),
		To:    initial,
		At:    e.Now(),
	})
	return nil
}

// Record appends a history entry that does not change state, such as an
// administrative edit after dispatch.
func (e *Engine) Record(doc model.Stateful, event string, actor model.Actor, note string) {
	doc.AppendHistory(model.HistoryEntry{
		Actor: actor,
		Event: event,
		From:  doc.State(),
		To:    doc.State(),
		At:    e.Now(),
		Note:  note,
	})
}
