package repository

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

var (
	// ErrNotFound is returned when the requested entity does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned on a uniqueness conflict (plate, username)
	ErrAlreadyExists = errors.New("already exists")
)

// DefaultHistorySize positions kept per vehicle
const DefaultHistorySize = 100

// Store 内存车队数据仓库. Every read returns deep copies; callers never share memory
// with the store.
type Store struct {
	mu sync.RWMutex

	vehicles  map[string]*model.Vehicle
	order     []string
	geofences map[string]*model.Geofence
	fenceIDs  []string
	users     map[string]*model.User // by username
	history   map[string][]model.PositionSample

	historySize int
	now         func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithHistorySize caps the per-vehicle location history
func WithHistorySize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historySize = n
		}
	}
}

// WithClock overrides the store clock used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore 创建内存仓库
func NewStore(opts ...Option) *Store {
	s := &Store{
		vehicles:    make(map[string]*model.Vehicle),
		geofences:   make(map[string]*model.Geofence),
		users:       make(map[string]*model.User),
		history:     make(map[string][]model.PositionSample),
		historySize: DefaultHistorySize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newID() string {
	return uuid.NewString()
}
