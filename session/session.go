// ABOUTME: Strategy configuration session: name and kind first, then attach models to the pipeline.
// ABOUTME: Backend writes run through the gateway; the graph is replaced wholesale after each success.
package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/2389-research/neurogems/catalog"
	"github.com/2389-research/neurogems/gateway"
	"github.com/2389-research/neurogems/pipeline"
	"github.com/google/uuid"
)

// MsgStrategyUpdated is raised after a model is attached.
const MsgStrategyUpdated = "Strategy updated successfully"

// Deps are the collaborators a session needs.
type Deps struct {
	Gateway gateway.Gateway
}

// Session is one user's configuration flow. Safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	// LastAccess is maintained by Store under its own lock.
	LastAccess time.Time

	gw         gateway.Gateway
	alerts     *Alerts
	bus        *Bus
	graph      *pipeline.Projector
	saved      *catalog.Resolver[gateway.SavedStrategy]
	strategies *catalog.Resolver[catalog.StrategyDescriptor]

	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	origin    Origin
	seed      gateway.SavedStrategy
	name      string
	kind      string
	step      Step
	form      *AttachForm
	graphFor  string
	create    CreateStatus
	submitGen uint64
	closed    bool
}

// New starts an empty session at the naming step.
func New(deps Deps) *Session {
	return newSession(deps, OriginNew, gateway.SavedStrategy{})
}

// Edit starts a session seeded from a saved strategy. It runs the same flow as New,
// except that Submit skips create-strategy while the name and kind still match the
// saved entry, so the saved pipeline is kept. Changing either one creates a new
// strategy on submit.
func Edit(deps Deps, saved gateway.SavedStrategy) *Session {
	s := newSession(deps, OriginEdit, saved)
	s.name = saved.Name
	s.kind = saved.Kind
	return s
}

func newSession(deps Deps, origin Origin, seed gateway.SavedStrategy) *Session {
	now := time.Now()
	bg, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		LastAccess: now,
		gw:         deps.Gateway,
		alerts:     NewAlerts(),
		bus:        NewBus(),
		graph:      pipeline.NewProjector(),
		bg:         bg,
		cancel:     cancel,
		origin:     origin,
		seed:       seed,
		step:       StepNamingAndKind,
	}
	s.alerts.onRaise = func(a Alert) {
		s.bus.publish(Event{Type: EventAlert, SessionID: s.ID, Alert: &a})
	}
	s.saved = catalog.NewResolver[gateway.SavedStrategy]("saved strategies", func(ctx context.Context, _ string) ([]gateway.SavedStrategy, error) {
		return s.gw.ListSavedStrategies(ctx)
	}, s.catalogError)
	s.strategies = catalog.NewResolver[catalog.StrategyDescriptor]("supported strategies", func(ctx context.Context, _ string) ([]catalog.StrategyDescriptor, error) {
		return s.gw.ListSupportedStrategies(ctx)
	}, s.catalogError)
	return s
}

func (s *Session) catalogError(err error) {
	s.alerts.Error(gateway.Message(err))
}

func (s *Session) publish(t EventType) {
	s.bus.publish(Event{Type: t, SessionID: s.ID})
}

// Origin reports how the session was constructed.
func (s *Session) Origin() Origin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.origin
}

func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Session) Kind() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

func (s *Session) CreateStatus() CreateStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create
}

// SetName sets the strategy name. Only valid at the naming step.
func (s *Session) SetName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepNamingAndKind {
		return ErrWrongStep
	}
	s.name = strings.TrimSpace(name)
	return nil
}

// SelectKind sets the strategy kind. Only valid at the naming step.
func (s *Session) SelectKind(kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepNamingAndKind {
		return ErrWrongStep
	}
	s.kind = kind
	return nil
}

// AutoName fills the name with a generated one and returns it.
func (s *Session) AutoName() (string, error) {
	name, err := GenerateName()
	if err != nil {
		return "", err
	}
	if err := s.SetName(name); err != nil {
		return "", err
	}
	return name, nil
}

// CanSubmit reports whether the naming step is complete.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canSubmitLocked()
}

func (s *Session) canSubmitLocked() bool {
	return s.step == StepNamingAndKind && s.name != "" && s.kind != ""
}

// Submit moves to the pipeline definition step right away and creates the
// strategy in the background. The create response is logged; a failure raises
// an error alert but does not move the step back. An edit session whose name
// and kind still match the saved entry skips the create, which would reset
// the saved strategy.
func (s *Session) Submit() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.step != StepNamingAndKind {
		s.mu.Unlock()
		return ErrWrongStep
	}
	if !s.canSubmitLocked() {
		s.mu.Unlock()
		return ErrIncomplete
	}

	name, kind := s.name, s.kind
	skip := s.origin == OriginEdit && name == s.seed.Name && kind == s.seed.Kind
	if s.graphFor != name {
		s.graph.Clear()
		s.graphFor = name
	}
	form := newAttachForm(kind, name, s.gw, s.catalogError)
	s.form = form
	s.step = StepPipelineDefinition
	s.submitGen++
	gen := s.submitGen
	if skip {
		s.create = CreateSkipped
	} else {
		s.create = CreatePending
	}
	s.wg.Add(1)
	s.mu.Unlock()

	log.Printf("session submit id=%s strategy=%s kind=%s origin=%s", s.ID, name, kind, s.origin)
	s.publish(EventStep)
	go s.runCreate(gen, name, kind, form, skip)
	return nil
}

func (s *Session) runCreate(gen uint64, name, kind string, form *AttachForm, skip bool) {
	defer s.wg.Done()

	if !skip {
		msg, err := s.gw.CreateStrategy(s.bg, name, kind)
		status := CreateDone
		if err != nil {
			status = CreateFailed
			log.Printf("session create id=%s strategy=%s err=%v", s.ID, name, err)
			s.alerts.Error(gateway.Message(err))
		} else {
			log.Printf("session create id=%s strategy=%s response=%q", s.ID, name, msg)
		}
		s.mu.Lock()
		if s.submitGen == gen {
			s.create = status
		}
		s.mu.Unlock()
		s.refreshSaved()
	}

	if form == nil {
		return
	}
	if err := form.Load(s.bg); err != nil {
		log.Printf("session form load id=%s strategy=%s err=%v", s.ID, name, err)
	}
	s.publish(EventCatalog)
}

// Back returns to the naming step. Name and kind are kept; the attach form is dropped.
func (s *Session) Back() error {
	s.mu.Lock()
	if s.step != StepPipelineDefinition {
		s.mu.Unlock()
		return ErrWrongStep
	}
	form := s.form
	s.form = nil
	s.step = StepNamingAndKind
	s.mu.Unlock()

	if form != nil {
		form.abandon()
	}
	s.publish(EventStep)
	return nil
}

// Form returns the attach form for the session's kind, or nil when not at the
// pipeline step or when the kind has no form.
func (s *Session) Form() *AttachForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepPipelineDefinition {
		return nil
	}
	return s.form
}

// ReloadForm retries the attach form's catalog fetch.
func (s *Session) ReloadForm(ctx context.Context) error {
	form := s.Form()
	if form == nil {
		return ErrNoForm
	}
	err := form.Load(ctx)
	s.publish(EventCatalog)
	return err
}

// AttachModel posts the form's model to the backend. On success the graph is
// replaced by the backend's and the saved list is refreshed; on failure the
// graph is untouched. The form stays open for the next model.
func (s *Session) AttachModel(ctx context.Context) (pipeline.Graph, error) {
	s.mu.Lock()
	if s.step != StepPipelineDefinition {
		s.mu.Unlock()
		return pipeline.Graph{}, ErrWrongStep
	}
	form := s.form
	s.mu.Unlock()
	if form == nil {
		return pipeline.Graph{}, ErrNoForm
	}

	req, err := form.request()
	if err != nil {
		return pipeline.Graph{}, err
	}

	seq := s.graph.Begin()
	g, err := s.gw.AddModelToStrategy(ctx, req)
	if err != nil {
		log.Printf("session attach id=%s strategy=%s model=%s err=%v", s.ID, req.Strategy, req.Model, err)
		s.alerts.Error(gateway.Message(err))
		return pipeline.Graph{}, fmt.Errorf("attach %s: %w", req.Model, err)
	}

	for _, p := range pipeline.Validate(g) {
		log.Printf("session graph warning id=%s strategy=%s problem=%q", s.ID, req.Strategy, p.String())
	}
	if s.graph.Project(seq, g) {
		s.publish(EventGraph)
	}
	log.Printf("session attach id=%s strategy=%s model=%s type=%s nodes=%d edges=%d",
		s.ID, req.Strategy, req.Model, req.ModelType, len(g.Nodes), len(g.Edges))
	s.alerts.Success(MsgStrategyUpdated)
	s.refreshSavedAsync()
	return s.graph.Snapshot(), nil
}

// Delete removes a saved strategy. Local state is not pruned; the refreshed
// saved list reflects the removal.
func (s *Session) Delete(ctx context.Context, name string) error {
	msg, err := s.gw.RemoveStrategy(ctx, name)
	if err != nil {
		log.Printf("session delete id=%s strategy=%s err=%v", s.ID, name, err)
		s.alerts.Error(gateway.Message(err))
		return fmt.Errorf("delete %s: %w", name, err)
	}
	log.Printf("session delete id=%s strategy=%s response=%q", s.ID, name, msg)
	s.alerts.Success(msg)
	s.refreshSavedAsync()
	return nil
}

// Refresh refetches the saved strategy list.
func (s *Session) Refresh(ctx context.Context) error {
	_, err := s.saved.Resolve(ctx, "")
	s.publish(EventSaved)
	return err
}

// LoadStrategies fetches the selectable strategy kinds.
func (s *Session) LoadStrategies(ctx context.Context) error {
	_, err := s.strategies.Resolve(ctx, "")
	s.publish(EventCatalog)
	return err
}

func (s *Session) refreshSaved() {
	if _, err := s.saved.Resolve(s.bg, ""); err != nil {
		log.Printf("session saved refresh id=%s err=%v", s.ID, err)
	}
	s.publish(EventSaved)
}

func (s *Session) refreshSavedAsync() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.wg.Done()
		s.refreshSaved()
	}()
}

// Saved returns the last fetched saved strategies.
func (s *Session) Saved() []gateway.SavedStrategy { return s.saved.Options() }

// SavedEntry finds a saved strategy by name.
func (s *Session) SavedEntry(name string) (gateway.SavedStrategy, bool) {
	return s.saved.Lookup(name)
}

// Strategies returns the selectable strategy kinds.
func (s *Session) Strategies() []catalog.StrategyDescriptor { return s.strategies.Options() }

// Graph returns the current pipeline graph.
func (s *Session) Graph() pipeline.Graph { return s.graph.Snapshot() }

func (s *Session) Alerts() *Alerts { return s.alerts }

// Subscribe streams session events until the returned cancel is called or the session closes.
func (s *Session) Subscribe() (<-chan Event, func()) { return s.bus.Subscribe() }

// Wait blocks until background work started by the session has finished.
func (s *Session) Wait() { s.wg.Wait() }

// Close cancels background work and ends subscriptions.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	form := s.form
	s.mu.Unlock()

	s.cancel()
	if form != nil {
		form.abandon()
	}
	s.bus.closeAll()
}

// View is a render-ready snapshot of the session.
type View struct {
	ID           string                       `json:"id"`
	Origin       Origin                       `json:"origin"`
	Name         string                       `json:"name"`
	Kind         string                       `json:"kind"`
	Step         Step                         `json:"step"`
	CanSubmit    bool                         `json:"canSubmit"`
	CreateStatus CreateStatus                 `json:"createStatus"`
	Form         *FormView                    `json:"form,omitempty"`
	Graph        pipeline.Graph               `json:"graph"`
	Saved        []gateway.SavedStrategy      `json:"saved"`
	Strategies   []catalog.StrategyDescriptor `json:"strategies"`
	Alerts       []Alert                      `json:"alerts"`
}

func (s *Session) View() View {
	s.mu.Lock()
	v := View{
		ID:           s.ID,
		Origin:       s.origin,
		Name:         s.name,
		Kind:         s.kind,
		Step:         s.step,
		CanSubmit:    s.canSubmitLocked(),
		CreateStatus: s.create,
	}
	form := s.form
	s.mu.Unlock()

	if form != nil {
		fv := form.View()
		v.Form = &fv
	}
	v.Graph = s.graph.Snapshot()
	v.Saved = s.saved.Options()
	v.Strategies = s.strategies.Options()
	v.Alerts = s.alerts.Active()
	return v
}
