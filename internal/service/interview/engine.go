// Package interview runs interview sessions: seeding the thread, advancing turns through a
// Generator and deciding when the interview is over.
package interview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/mockview/backend/internal/errs"
	"github.com/zhouzirui/mockview/backend/internal/metrics"
	model "github.com/zhouzirui/mockview/backend/internal/model/interview"
	"github.com/zhouzirui/mockview/backend/pkg/keylock"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
)

// DefaultTurnThreshold applies when a caller does not choose one.
const DefaultTurnThreshold = 5

// Generator produces the interviewer's next utterance for a thread.
type Generator interface {
	Generate(ctx context.Context, thread []model.Message) (string, error)
}

// StreamGenerator can also deliver the reply incrementally. onDelta receives each chunk;
// the full reply is returned at the end.
type StreamGenerator interface {
	Generator
	GenerateStream(ctx context.Context, thread []model.Message, onDelta func(string)) (string, error)
}

// TurnResult is the outcome of one Advance.
type TurnResult struct {
	SessionID     string `json:"sessionId"`
	Reply         string `json:"reply"`
	Ended         bool   `json:"ended"`
	TurnCount     int    `json:"turnCount"`
	TurnThreshold int    `json:"turnThreshold"`
}

// Engine owns the session lifecycle. Turns on one session are applied one at a time in the
// order they acquire the session lock; different sessions proceed in parallel.
// A store that also implements keylock.Interface supplies the session lock, so engines in
// different processes sharing that store serialize against each other.
type Engine struct {
	store    SessionStore
	gen      Generator
	locks    keylock.Interface
	metrics  metrics.Recorder
	log      logger.Logger
	now      func() time.Time
	newID    func() string
	provider string
	timeout  time.Duration
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMetrics reports sessions and turns to r.
func WithMetrics(r metrics.Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.metrics = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides uuid.NewString.
func WithIDGenerator(next func() string) Option {
	return func(e *Engine) {
		if next != nil {
			e.newID = next
		}
	}
}

// WithProvider labels generator metrics.
func WithProvider(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.provider = name
		}
	}
}

// WithLocker overrides the session lock.
func WithLocker(l keylock.Interface) Option {
	return func(e *Engine) {
		if l != nil {
			e.locks = l
		}
	}
}

// WithGenerationTimeout bounds each generator call. Zero means no bound.
func WithGenerationTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// NewEngine builds an Engine over store and gen.
func NewEngine(store SessionStore, gen Generator, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		gen:      gen,
		locks:    keylock.New(),
		metrics:  metrics.Nop{},
		log:      logger.Named("interview"),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		provider: "unknown",
	}
	if l, ok := store.(keylock.Interface); ok {
		e.locks = l
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create registers a new session seeded with the interviewer instruction.
func (e *Engine) Create(ctx context.Context, persona model.PersonaContext, threshold int) (model.Session, error) {
	if threshold <= 0 {
		return model.Session{}, fmt.Errorf("turn threshold %d must be positive: %w", threshold, errs.ErrInvalidArgument)
	}
	persona = trimPersona(persona)
	if persona.IsEmpty() {
		return model.Session{}, fmt.Errorf("persona context needs at least one field: %w", errs.ErrInvalidArgument)
	}

	now := e.now()
	session := model.Session{
		ID:            e.newID(),
		Persona:       persona,
		TurnThreshold: threshold,
		Messages: []model.Message{{
			Role:      model.RoleSystem,
			Content:   SeedInstruction(persona, threshold),
			CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.store.Put(ctx, session); err != nil {
		return model.Session{}, fmt.Errorf("register session: %w: %w", errs.ErrUpstream, err)
	}

	e.metrics.RecordSessionCreated()
	e.log.Info(ctx, "interview session created",
		logger.String("session_id", session.ID),
		logger.Int("turn_threshold", threshold),
	)
	return session.Clone(), nil
}

// Advance sends the candidate's utterance and returns the interviewer's reply.
func (e *Engine) Advance(ctx context.Context, sessionID, utterance string) (TurnResult, error) {
	return e.advance(ctx, sessionID, utterance, func(ctx context.Context, thread []model.Message) (string, error) {
		return e.gen.Generate(ctx, thread)
	})
}

// AdvanceStream behaves like Advance and forwards reply chunks to onDelta as they arrive.
// Generators without streaming deliver the whole reply as one chunk. The sentinel never
// reaches onDelta.
func (e *Engine) AdvanceStream(ctx context.Context, sessionID, utterance string, onDelta func(string)) (TurnResult, error) {
	filter := &sentinelFilter{emit: onDelta}
	return e.advance(ctx, sessionID, utterance, func(ctx context.Context, thread []model.Message) (string, error) {
		var (
			reply string
			err   error
		)
		if sg, ok := e.gen.(StreamGenerator); ok {
			reply, err = sg.GenerateStream(ctx, thread, filter.write)
		} else if reply, err = e.gen.Generate(ctx, thread); err == nil {
			filter.write(reply)
		}
		if err == nil {
			filter.flush()
		}
		return reply, err
	})
}

func (e *Engine) advance(ctx context.Context, sessionID, utterance string, generate func(context.Context, []model.Message) (string, error)) (TurnResult, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return TurnResult{}, fmt.Errorf("candidate utterance is empty: %w", errs.ErrInvalidArgument)
	}

	unlock, err := e.lock(ctx, sessionID)
	if err != nil {
		return TurnResult{}, err
	}
	defer unlock()

	session, err := e.load(ctx, sessionID)
	if err != nil {
		return TurnResult{}, err
	}
	if session.Terminated {
		return TurnResult{}, fmt.Errorf("session %s has already ended: %w", sessionID, errs.ErrInvalidState)
	}

	thread := append(session.Messages, model.Message{
		Role:      model.RoleCandidate,
		Content:   utterance,
		CreatedAt: e.now(),
	})

	reply, err := e.generate(ctx, thread, generate)
	if err != nil {
		e.log.Warn(ctx, "generator failed", logger.String("session_id", sessionID), logger.Error(err))
		return TurnResult{}, fmt.Errorf("generate reply for session %s: %w: %w", sessionID, errs.ErrUpstream, err)
	}

	if !ContainsSentinel(reply) {
		session.TurnCount++
	}
	ended := IsTerminated(reply, session.TurnCount, session.TurnThreshold)
	reply = VisibleReply(reply)

	now := e.now()
	session.Messages = append(thread, model.Message{Role: model.RoleAssistant, Content: reply, CreatedAt: now})
	session.Terminated = ended
	session.UpdatedAt = now

	if err := e.store.Put(ctx, session); err != nil {
		return TurnResult{}, fmt.Errorf("save session %s: %w: %w", sessionID, errs.ErrUpstream, err)
	}

	e.metrics.RecordTurn(ended)
	e.log.Debug(ctx, "turn applied",
		logger.String("session_id", sessionID),
		logger.Int("turn_count", session.TurnCount),
		logger.Bool("ended", ended),
	)

	return TurnResult{
		SessionID:     sessionID,
		Reply:         reply,
		Ended:         ended,
		TurnCount:     session.TurnCount,
		TurnThreshold: session.TurnThreshold,
	}, nil
}

func (e *Engine) generate(ctx context.Context, thread []model.Message, generate func(context.Context, []model.Message) (string, error)) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := generate(ctx, thread)
	e.metrics.RecordGeneration(e.provider, time.Since(start), err)
	return reply, err
}

// End closes the session and returns the fixed closing statement. Calling it on an
// already ended session returns the statement again.
func (e *Engine) End(ctx context.Context, sessionID string) (string, error) {
	unlock, err := e.lock(ctx, sessionID)
	if err != nil {
		return "", err
	}
	defer unlock()

	session, err := e.load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session.Terminated {
		return ClosingStatement, nil
	}

	now := e.now()
	session.Terminated = true
	session.UpdatedAt = now
	session.Messages = append(session.Messages, model.Message{Role: model.RoleAssistant, Content: ClosingStatement, CreatedAt: now})
	if err := e.store.Put(ctx, session); err != nil {
		return "", fmt.Errorf("save session %s: %w: %w", sessionID, errs.ErrUpstream, err)
	}

	e.log.Info(ctx, "interview ended", logger.String("session_id", sessionID), logger.Int("turn_count", session.TurnCount))
	return ClosingStatement, nil
}

// MarkEvaluated flags an ended session as rated. A session can be marked once.
func (e *Engine) MarkEvaluated(ctx context.Context, sessionID string) error {
	unlock, err := e.lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	session, err := e.load(ctx, sessionID)
	if err != nil {
		return err
	}
	switch {
	case !session.Terminated:
		return fmt.Errorf("session %s is still active: %w", sessionID, errs.ErrInvalidState)
	case session.Evaluated:
		return fmt.Errorf("session %s was already evaluated: %w", sessionID, errs.ErrInvalidState)
	}

	session.Evaluated = true
	session.UpdatedAt = e.now()
	if err := e.store.Put(ctx, session); err != nil {
		return fmt.Errorf("save session %s: %w: %w", sessionID, errs.ErrUpstream, err)
	}
	return nil
}

// Get returns a copy of the session.
func (e *Engine) Get(ctx context.Context, sessionID string) (model.Session, error) {
	return e.load(ctx, sessionID)
}

// Transcript returns the visible conversation, without the seed instruction.
func (e *Engine) Transcript(ctx context.Context, sessionID string) ([]model.Message, error) {
	session, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Message, 0, len(session.Messages))
	for _, m := range session.Messages {
		if m.Role == model.RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Answers returns the candidate's utterances in order.
func (e *Engine) Answers(ctx context.Context, sessionID string) ([]string, error) {
	messages, err := e.Transcript(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var answers []string
	for _, m := range messages {
		if m.Role == model.RoleCandidate {
			answers = append(answers, m.Content)
		}
	}
	return answers, nil
}

// Discard removes the session from the registry.
func (e *Engine) Discard(ctx context.Context, sessionID string) error {
	unlock, err := e.lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	ok, err := e.store.Exists(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("lookup session %s: %w: %w", sessionID, errs.ErrUpstream, err)
	}
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound)
	}
	if err := e.store.Remove(ctx, sessionID); err != nil {
		return fmt.Errorf("remove session %s: %w: %w", sessionID, errs.ErrUpstream, err)
	}
	e.log.Info(ctx, "interview session discarded", logger.String("session_id", sessionID))
	return nil
}

func (e *Engine) lock(ctx context.Context, sessionID string) (func(), error) {
	unlock, err := e.locks.Lock(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lock session %s: %w: %w", sessionID, errs.ErrUpstream, err)
	}
	return unlock, nil
}

func (e *Engine) load(ctx context.Context, sessionID string) (model.Session, error) {
	session, ok, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return model.Session{}, fmt.Errorf("load session %s: %w: %w", sessionID, errs.ErrUpstream, err)
	}
	if !ok {
		return model.Session{}, fmt.Errorf("session %s is invalid or expired: %w", sessionID, errs.ErrNotFound)
	}
	return session, nil
}

func trimPersona(p model.PersonaContext) model.PersonaContext {
	return model.PersonaContext{
		Name:              strings.TrimSpace(p.Name),
		Age:               strings.TrimSpace(p.Age),
		Language:          strings.TrimSpace(p.Language),
		CompanyName:       strings.TrimSpace(p.CompanyName),
		JobDescription:    strings.TrimSpace(p.JobDescription),
		IntervieweeResume: strings.TrimSpace(p.IntervieweeResume),
		Style:             strings.TrimSpace(p.Style),
	}
}
