package viewstate

import (
	"encoding/json"
	"sync"
)

// Direction orders a sorted column.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Sorter is one entry of a table's ordered sort sequence.
type Sorter struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Filter is one active column filter.
type Filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Pagination locates the visible page of a table.
type Pagination struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
}

// TableState captures the interactive configuration of one list screen.
// VisibleColumns is nil when the caller's default column set applies; an
// empty, non-nil slice means the user explicitly hid every column. The two
// must stay distinguishable through every persistence round trip.
type TableState struct {
	Sorters        []Sorter   `json:"sorters"`
	Filters        []Filter   `json:"filters"`
	Pagination     Pagination `json:"pagination"`
	VisibleColumns []string   `json:"showColumns,omitempty"`
	HasColumns     bool       `json:"-"`
}

// Sub-field suffixes; durable keys and fragment keys are `${namespace}-${field}`.
const (
	FieldSorters     = "sorters"
	FieldFilters     = "filters"
	FieldPagination  = "pagination"
	FieldShowColumns = "showColumns"
)

// DefaultSorters is the sort order applied when nothing was persisted.
func DefaultSorters() []Sorter {
	return []Sorter{{Field: "id", Direction: Ascending}}
}

// DefaultPagination is the page position applied when nothing was persisted.
func DefaultPagination() Pagination {
	return Pagination{PageIndex: 1, PageSize: 20}
}

// Source tags where a resolved sub-field value came from, so callers and
// tests can assert the merge order.
type Source int

const (
	SourceDefault Source = iota
	SourceStorage
	SourceFragment
)

// String names the source for logs.
func (s Source) String() string {
	switch s {
	case SourceFragment:
		return "fragment"
	case SourceStorage:
		return "storage"
	default:
		return "default"
	}
}

// Storage is the durable key/value port backing the store. Implementations
// may be globally unavailable; in that case Get reports absent and Set and
// Delete do nothing, and the store degrades to session-only state.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// FragmentChannel is the URL-fragment port. Read returns the fragment's
// key/value pairs, Clear consumes the fragment so a reload falls back to
// durable storage, and BuildURL constructs an absolute shareable URL whose
// fragment encodes the supplied pairs.
type FragmentChannel interface {
	Read() map[string]string
	Clear()
	BuildURL(pairs map[string]string) string
}

// Store owns the view state of a single named table. Initialization merges
// fragment, durable storage, and defaults independently per sub-field; every
// later change flushes its own durable key so a partial write cannot corrupt
// unrelated sub-fields.
type Store struct {
	mu        sync.Mutex
	namespace string
	storage   Storage
	fragment  FragmentChannel

	state   TableState
	sources map[string]Source
	ready   bool
}

// New builds a store for the given namespace. A nil storage degrades every
// durable operation to a no-op; a nil fragment channel behaves as an empty,
// already-consumed fragment.
func New(namespace string, storage Storage, fragment FragmentChannel) *Store {
	if storage == nil {
		storage = Unavailable()
	}
	return &Store{
		namespace: namespace,
		storage:   storage,
		fragment:  fragment,
		sources:   make(map[string]Source),
	}
}

// Namespace returns the view identifier the store persists under.
func (s *Store) Namespace() string {
	return s.namespace
}

func (s *Store) key(field string) string {
	return s.namespace + "-" + field
}

// Init resolves the initial table state and consumes the fragment. Calling
// it again returns the current state without re-reading the fragment.
func (s *Store) Init() TableState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return s.state
	}

	var fragment map[string]string
	if s.fragment != nil {
		fragment = s.fragment.Read()
	}

	sorters, src := resolve(fragment, s.storage, s.key(FieldSorters), DefaultSorters())
	s.state.Sorters = sorters
	s.sources[FieldSorters] = src

	filters, src := resolve(fragment, s.storage, s.key(FieldFilters), []Filter{})
	s.state.Filters = filters
	s.sources[FieldFilters] = src

	pagination, src := resolve(fragment, s.storage, s.key(FieldPagination), DefaultPagination())
	if pagination.PageIndex < 1 || pagination.PageSize < 1 {
		pagination = DefaultPagination()
		src = SourceDefault
	}
	s.state.Pagination = pagination
	s.sources[FieldPagination] = src

	columns, src, present := resolveOptional[[]string](fragment, s.storage, s.key(FieldShowColumns))
	if present {
		if columns == nil {
			columns = []string{}
		}
		s.state.VisibleColumns = columns
		s.state.HasColumns = true
	}
	s.sources[FieldShowColumns] = src

	if s.fragment != nil {
		s.fragment.Clear()
	}
	s.ready = true
	return s.state
}

// State returns the current in-memory table state.
func (s *Store) State() TableState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Provenance reports which tier supplied a sub-field at initialization.
func (s *Store) Provenance(field string) Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sources[field]
}

// SetSorters replaces the sort sequence and flushes it durably.
func (s *Store) SetSorters(sorters []Sorter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Sorters = sorters
	s.persist(FieldSorters, sorters)
}

// SetFilters replaces the filter set and flushes it durably.
func (s *Store) SetFilters(filters []Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Filters = filters
	s.persist(FieldFilters, filters)
}

// SetPagination replaces the page position and flushes it durably.
func (s *Store) SetPagination(p Pagination) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Pagination = p
	s.persist(FieldPagination, p)
}

// SetVisibleColumns replaces the visible column set and flushes it durably.
// An empty slice is a real selection ("show nothing") and is persisted as
// such; use ResetVisibleColumns to return to the caller's defaults.
func (s *Store) SetVisibleColumns(columns []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if columns == nil {
		columns = []string{}
	}
	s.state.VisibleColumns = columns
	s.state.HasColumns = true
	s.persist(FieldShowColumns, columns)
}

// ResetVisibleColumns deletes the durable column selection so subsequent
// loads fall back to the caller-supplied default column set.
func (s *Store) ResetVisibleColumns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.VisibleColumns = nil
	s.state.HasColumns = false
	s.storage.Delete(s.key(FieldShowColumns))
}

func (s *Store) persist(field string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.storage.Set(s.key(field), string(payload))
}

// ShareLink builds an absolute URL whose fragment reproduces the durably
// stored state of this namespace. Only flushed sub-fields are included;
// with storage unavailable the fragment is empty. Opening the link elsewhere
// reconstructs the same configuration through the fragment-first merge.
func (s *Store) ShareLink() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	pairs := make(map[string]string)
	for _, field := range []string{FieldSorters, FieldFilters, FieldPagination, FieldShowColumns} {
		key := s.key(field)
		if value, ok := s.storage.Get(key); ok {
			pairs[key] = value
		}
	}
	if s.fragment == nil {
		return ""
	}
	return s.fragment.BuildURL(pairs)
}

// resolve merges one sub-field through the fragment → storage → default
// tiers. Unparseable JSON at a tier counts as absent at that tier.
func resolve[T any](fragment map[string]string, storage Storage, key string, fallback T) (T, Source) {
	if raw, ok := fragment[key]; ok {
		var value T
		if err := json.Unmarshal([]byte(raw), &value); err == nil {
			return value, SourceFragment
		}
	}
	if raw, ok := storage.Get(key); ok {
		var value T
		if err := json.Unmarshal([]byte(raw), &value); err == nil {
			return value, SourceStorage
		}
	}
	return fallback, SourceDefault
}

// resolveOptional is resolve for sub-fields whose absence is meaningful
// (visible columns: absent means caller defaults, not an empty selection).
func resolveOptional[T any](fragment map[string]string, storage Storage, key string) (T, Source, bool) {
	var zero T
	if raw, ok := fragment[key]; ok {
		var value T
		if err := json.Unmarshal([]byte(raw), &value); err == nil {
			return value, SourceFragment, true
		}
	}
	if raw, ok := storage.Get(key); ok {
		var value T
		if err := json.Unmarshal([]byte(raw), &value); err == nil {
			return value, SourceStorage, true
		}
	}
	return zero, SourceDefault, false
}
