package options

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/park285/blindfold-chess/internal/chess"
	"go.uber.org/zap"
)

var ErrInvalidOption = errors.New("invalid option")

// Options are the user-editable settings.
type Options struct {
	EnginePath string `yaml:"engine_path" json:"engine_path"`
	Depth      int    `yaml:"depth" json:"depth"`
	AutoPlay   bool   `yaml:"auto_play" json:"auto_play"`
}

func Defaults() Options {
	return Options{Depth: chess.DefaultDepth}
}

func (o Options) Validate() error {
	if err := chess.ValidateDepth(o.Depth); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	if strings.ContainsAny(o.EnginePath, "\n\r") {
		return fmt.Errorf("%w: engine path contains a line break", ErrInvalidOption)
	}
	return nil
}

// Persister reads and writes options. Load reports found=false when nothing
// has been saved yet.
type Persister interface {
	Load(ctx context.Context) (Options, bool, error)
	Save(ctx context.Context, o Options) error
}

// Store holds the current options. Save is the only way to change them.
type Store struct {
	mu          sync.RWMutex
	persister   Persister
	current     Options
	fallback    string
	subscribers map[int]func(Options)
	nextID      int
	logger      *zap.Logger
}

// NewStore starts from defaults; call Load to pick up saved options.
// fallbackEngine is used when the options name no engine path.
func NewStore(p Persister, fallbackEngine string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		persister:   p,
		current:     Defaults(),
		fallback:    strings.TrimSpace(fallbackEngine),
		subscribers: make(map[int]func(Options)),
		logger:      logger,
	}
}

// Load restores persisted options, or the defaults when none were saved.
// A persisted file with out of range values is replaced by the defaults
// rather than failing startup.
func (s *Store) Load(ctx context.Context) (Options, error) {
	loaded := Defaults()
	if s.persister != nil {
		o, found, err := s.persister.Load(ctx)
		if err != nil {
			return Options{}, fmt.Errorf("load options: %w", err)
		}
		switch {
		case !found:
		case o.Validate() != nil:
			s.logger.Warn("options_invalid_on_disk", zap.Int("depth", o.Depth), zap.Error(o.Validate()))
		default:
			loaded = o
		}
	}

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	return loaded, nil
}

// Save validates, persists and then publishes o to subscribers. Nothing
// changes when validation or persistence fails.
func (s *Store) Save(ctx context.Context, o Options) error {
	o.EnginePath = strings.TrimSpace(o.EnginePath)
	if err := o.Validate(); err != nil {
		return err
	}
	if s.persister != nil {
		if err := s.persister.Save(ctx, o); err != nil {
			return fmt.Errorf("save options: %w", err)
		}
	}

	s.mu.Lock()
	s.current = o
	subs := make([]func(Options), 0, len(s.subscribers))
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		subs = append(subs, s.subscribers[id])
	}
	s.mu.Unlock()

	s.logger.Info("options_saved",
		zap.String("engine_path", o.EnginePath),
		zap.Int("depth", o.Depth),
		zap.Bool("auto_play", o.AutoPlay),
	)
	for _, fn := range subs {
		fn(o)
	}
	return nil
}

func (s *Store) Current() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// EnginePath is the configured engine, falling back to the environment
// default when the options leave it empty.
func (s *Store) EnginePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current.EnginePath != "" {
		return s.current.EnginePath
	}
	return s.fallback
}

// Subscribe registers fn for every successful Save and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(Options)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}
