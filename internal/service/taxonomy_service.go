package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/examhub-api/internal/catalog"
	"github.com/noah-isme/examhub-api/internal/models"
	appErrors "github.com/noah-isme/examhub-api/pkg/errors"
)

// DefaultTaxonomyKey is where the taxonomy snapshot is persisted when no key is configured.
const DefaultTaxonomyKey = "taxonomy:snapshot"

type taxonomySnapshotStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// taxonomySnapshot is the persisted form of the hierarchy.
type taxonomySnapshot struct {
	Levels  []models.EducationLevel `json:"levels"`
	SavedAt time.Time               `json:"savedAt"`
}

type taxonomyField int

const (
	fieldClasses taxonomyField = iota
	fieldSubjects
)

func (f taxonomyField) values(level *models.EducationLevel) *[]string {
	if f == fieldClasses {
		return &level.Classes
	}
	return &level.Subjects
}

func (f taxonomyField) label() string {
	if f == fieldClasses {
		return "class"
	}
	return "subject"
}

// TaxonomyService owns the level → classes/subjects hierarchy. Readers always see
// a complete snapshot; writers build a new snapshot, persist it, then swap it in.
type TaxonomyService struct {
	mu     sync.RWMutex
	levels []models.EducationLevel
	facets *catalog.Facets

	writeMu sync.Mutex
	store   taxonomySnapshotStore
	key     string
	cache   *CacheService
	logger  *zap.Logger
	now     func() time.Time
}

// NewTaxonomyService seeds the store with the default hierarchy. Call Load to restore a saved one.
func NewTaxonomyService(store taxonomySnapshotStore, key string, cache *CacheService, logger *zap.Logger) *TaxonomyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = DefaultTaxonomyKey
	}
	s := &TaxonomyService{
		store:  store,
		key:    key,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	s.swap(models.DefaultTaxonomy())
	return s
}

// Load restores the persisted snapshot. Missing or unreadable state keeps the defaults.
func (s *TaxonomyService) Load(ctx context.Context) {
	if s.store == nil {
		return
	}
	var snapshot taxonomySnapshot
	err := s.store.Get(ctx, s.key, &snapshot)
	switch {
	case errors.Is(err, appErrors.ErrCacheMiss):
		s.logger.Info("no saved taxonomy, using defaults", zap.String("key", s.key))
		return
	case err != nil:
		s.logger.Warn("taxonomy snapshot unreadable, using defaults", zap.String("key", s.key), zap.Error(err))
		return
	}
	if !validLevels(snapshot.Levels) {
		s.logger.Warn("taxonomy snapshot malformed, using defaults", zap.String("key", s.key))
		return
	}
	s.swap(snapshot.Levels)
	s.logger.Info("taxonomy loaded", zap.Int("levels", len(snapshot.Levels)), zap.Time("saved_at", snapshot.SavedAt))
}

// Levels returns a deep copy of the hierarchy in canonical order.
func (s *TaxonomyService) Levels() []models.EducationLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneLevels(s.levels)
}

// Level returns one level by id.
func (s *TaxonomyService) Level(id string) (models.EducationLevel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, level := range s.levels {
		if level.ID == id {
			return level.Clone(), true
		}
	}
	return models.EducationLevel{}, false
}

// Facets returns the class/subject membership index of the current snapshot.
func (s *TaxonomyService) Facets() *catalog.Facets {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.facets
}

// AllClasses lists every class across levels in level order, duplicates kept.
func (s *TaxonomyService) AllClasses() []string {
	return s.collect(fieldClasses)
}

// AllSubjects lists every subject across levels in level order, duplicates kept.
func (s *TaxonomyService) AllSubjects() []string {
	return s.collect(fieldSubjects)
}

// ClassesOf returns the classes of a level, empty for an unknown level.
func (s *TaxonomyService) ClassesOf(levelID string) []string {
	level, ok := s.Level(levelID)
	if !ok || level.Classes == nil {
		return []string{}
	}
	return level.Classes
}

// SubjectsOf returns the subjects of a level, empty for an unknown level.
func (s *TaxonomyService) SubjectsOf(levelID string) []string {
	level, ok := s.Level(levelID)
	if !ok || level.Subjects == nil {
		return []string{}
	}
	return level.Subjects
}

// LevelOfClass returns the first level, in canonical order, holding the class.
func (s *TaxonomyService) LevelOfClass(classe string) (string, bool) {
	return s.levelOf(fieldClasses, classe)
}

// LevelOfSubject returns the first level, in canonical order, holding the subject.
func (s *TaxonomyService) LevelOfSubject(matiere string) (string, bool) {
	return s.levelOf(fieldSubjects, matiere)
}

// AddClass appends a class to a level.
func (s *TaxonomyService) AddClass(ctx context.Context, levelID, value string) error {
	return s.add(ctx, fieldClasses, levelID, value)
}

// AddSubject appends a subject to a level.
func (s *TaxonomyService) AddSubject(ctx context.Context, levelID, value string) error {
	return s.add(ctx, fieldSubjects, levelID, value)
}

// RenameClass replaces the first occurrence of oldValue in the level. The new
// value must not already belong to any level.
func (s *TaxonomyService) RenameClass(ctx context.Context, levelID, oldValue, newValue string) error {
	return s.rename(ctx, fieldClasses, levelID, oldValue, newValue)
}

// RenameSubject replaces the first occurrence of oldValue in the level. The new
// value must not already belong to any level.
func (s *TaxonomyService) RenameSubject(ctx context.Context, levelID, oldValue, newValue string) error {
	return s.rename(ctx, fieldSubjects, levelID, oldValue, newValue)
}

// RemoveClass drops a class from a level. Removing an absent value succeeds without saving.
// Documents keep the orphaned value.
func (s *TaxonomyService) RemoveClass(ctx context.Context, levelID, value string) error {
	return s.remove(ctx, fieldClasses, levelID, value)
}

// RemoveSubject drops a subject from a level. Removing an absent value succeeds without saving.
func (s *TaxonomyService) RemoveSubject(ctx context.Context, levelID, value string) error {
	return s.remove(ctx, fieldSubjects, levelID, value)
}

func (s *TaxonomyService) add(ctx context.Context, field taxonomyField, levelID, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return appErrors.Clone(appErrors.ErrValidation, field.label()+" value is required")
	}
	return s.mutate(ctx, levelID, func(level *models.EducationLevel) (bool, error) {
		values := field.values(level)
		if indexOf(*values, value) >= 0 {
			return false, appErrors.Clone(appErrors.ErrConflict, field.label()+" already exists in level")
		}
		*values = append(*values, value)
		return true, nil
	})
}

func (s *TaxonomyService) rename(ctx context.Context, field taxonomyField, levelID, oldValue, newValue string) error {
	newValue = strings.TrimSpace(newValue)
	if newValue == "" {
		return appErrors.Clone(appErrors.ErrValidation, "new "+field.label()+" value is required")
	}
	return s.mutate(ctx, levelID, func(level *models.EducationLevel) (bool, error) {
		values := field.values(level)
		idx := indexOf(*values, oldValue)
		if idx < 0 {
			return false, appErrors.Clone(appErrors.ErrNotFound, field.label()+" not found in level")
		}
		if oldValue == newValue {
			return false, nil
		}
		if indexOf(*values, newValue) >= 0 {
			return false, appErrors.Clone(appErrors.ErrConflict, field.label()+" already exists in level")
		}
		if owner, held := s.heldElsewhere(field, levelID, newValue); held {
			return false, appErrors.Clone(appErrors.ErrConflict, field.label()+" already exists in level "+owner)
		}
		(*values)[idx] = newValue
		return true, nil
	})
}

func (s *TaxonomyService) remove(ctx context.Context, field taxonomyField, levelID, value string) error {
	return s.mutate(ctx, levelID, func(level *models.EducationLevel) (bool, error) {
		values := field.values(level)
		idx := indexOf(*values, value)
		if idx < 0 {
			return false, nil
		}
		*values = append((*values)[:idx], (*values)[idx+1:]...)
		return true, nil
	})
}

// mutate applies fn to a copy of the level, persists the full snapshot and swaps it in.
// Nothing changes when fn fails, reports no change or the save fails.
func (s *TaxonomyService) mutate(ctx context.Context, levelID string, fn func(*models.EducationLevel) (bool, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.Levels()
	idx := -1
	for i := range next {
		if next[i].ID == levelID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "education level not found")
	}

	changed, err := fn(&next[idx])
	if err != nil || !changed {
		return err
	}

	if s.store != nil {
		snapshot := taxonomySnapshot{Levels: next, SavedAt: s.now()}
		if err := s.store.Set(ctx, s.key, snapshot, 0); err != nil {
			return appErrors.Persistence(err, "failed to save taxonomy")
		}
	}
	s.swap(next)
	s.cache.InvalidateCatalog(ctx)
	return nil
}

func (s *TaxonomyService) swap(levels []models.EducationLevel) {
	levels = models.CloneLevels(levels)
	facets := catalog.NewFacets(levels)
	s.mu.Lock()
	s.levels = levels
	s.facets = facets
	s.mu.Unlock()
}

func (s *TaxonomyService) collect(field taxonomyField) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0)
	for i := range s.levels {
		out = append(out, *field.values(&s.levels[i])...)
	}
	return out
}

func (s *TaxonomyService) levelOf(field taxonomyField, value string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.levels {
		if indexOf(*field.values(&s.levels[i]), value) >= 0 {
			return s.levels[i].ID, true
		}
	}
	return "", false
}

// heldElsewhere reports the first level other than levelID holding value.
func (s *TaxonomyService) heldElsewhere(field taxonomyField, levelID, value string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.levels {
		if s.levels[i].ID == levelID {
			continue
		}
		if indexOf(*field.values(&s.levels[i]), value) >= 0 {
			return s.levels[i].ID, true
		}
	}
	return "", false
}

func indexOf(values []string, value string) int {
	for i, v := range values {
		if v == value {
			return i
		}
	}
	return -1
}

func validLevels(levels []models.EducationLevel) bool {
	if len(levels) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(levels))
	for _, level := range levels {
		if strings.TrimSpace(level.ID) == "" {
			return false
		}
		if _, dup := seen[level.ID]; dup {
			return false
		}
		seen[level.ID] = struct{}{}
	}
	return true
}
