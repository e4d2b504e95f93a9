package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// snapshotKey is the single fixed key the whole app state lives under.
// The value format is not contractually stable — anything that fails to
// deserialize falls back to defaults.
const snapshotKey = "smartnutri_v4_data"

// openSnapshotDB opens (or creates) the local sqlite file holding the
// snapshot blob table.
func openSnapshotDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	createSnapshots := `
	CREATE TABLE IF NOT EXISTS snapshots (
			"key" TEXT PRIMARY KEY,
			"value" TEXT NOT NULL
	);`
	if _, err := db.Exec(createSnapshots); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// defaultState is the hard-coded first-run state: a baseline profile and an
// empty ledger.
func defaultState() appState {
	return appState{
		Profile: userProfile{
			Age:            25,
			Gender:         "male",
			Weight:         70,
			Height:         175,
			ActivityFactor: 1.2,
		},
		Meals:     []nutritionInfo{},
		Exercises: []exerciseInfo{},
	}
}

// store exclusively owns the app state. Every mutation goes through one of
// its methods, holds the mutex, and persists the whole snapshot before
// returning. Handlers run concurrently, so the mutex also rules out the
// add/delete interleavings a lock-free design would race on.
type store struct {
	mu    sync.Mutex
	db    *sql.DB
	state appState
}

// newStore loads the persisted snapshot, falling back to defaults on a
// missing or corrupt payload. Corruption is logged but never surfaced:
// availability over integrity, by recorded policy.
func newStore(db *sql.DB) *store {
	s := &store{db: db, state: defaultState()}

	var raw string
	err := db.QueryRow(`SELECT value FROM snapshots WHERE key = ?`, snapshotKey).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// first run
	case err != nil:
		log.Printf("[store] snapshot read failed, using defaults: %v", err)
	default:
		var loaded appState
		if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
			log.Printf("[store] snapshot corrupt, using defaults: %v", err)
		} else {
			if loaded.Meals == nil {
				loaded.Meals = []nutritionInfo{}
			}
			if loaded.Exercises == nil {
				loaded.Exercises = []exerciseInfo{}
			}
			s.state = loaded
		}
	}
	return s
}

// save persists the whole snapshot. Must be called with mu held. Failures
// are logged and absorbed — the in-memory state stays authoritative and the
// next mutation retries the write.
func (s *store) save() {
	raw, err := json.Marshal(s.state)
	if err != nil {
		log.Printf("[store] snapshot marshal failed: %v", err)
		return
	}
	_, err = s.db.Exec(
		`INSERT INTO snapshots (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		snapshotKey, string(raw))
	if err != nil {
		log.Printf("[store] snapshot write failed: %v", err)
	}
}

// State returns a copy of the current state. The ledger slices are copied so
// callers can iterate without holding the lock.
func (s *store) State() appState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.state
	out.Meals = make([]nutritionInfo, len(s.state.Meals))
	copy(out.Meals, s.state.Meals)
	out.Exercises = make([]exerciseInfo, len(s.state.Exercises))
	copy(out.Exercises, s.state.Exercises)
	return out
}

// AppendMeals adds analyzed food records to today's ledger, assigning each a
// stable ID. Returns the stored records.
func (s *store) AppendMeals(records []nutritionInfo) []nutritionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := make([]nutritionInfo, 0, len(records))
	for _, r := range records {
		r.ID = uuid.NewString()
		s.state.Meals = append(s.state.Meals, r)
		added = append(added, r)
	}
	s.save()
	return added
}

// AppendExercise adds one analyzed activity record.
func (s *store) AppendExercise(record exerciseInfo) exerciseInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.ID = uuid.NewString()
	s.state.Exercises = append(s.state.Exercises, record)
	s.save()
	return record
}

// DeleteMeal removes the meal with the given ID, preserving the order of the
// rest. An unknown ID leaves the ledger unchanged and reports false.
func (s *store) DeleteMeal(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.state.Meals[:0]
	found := false
	for _, m := range s.state.Meals {
		if m.ID == id {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	s.state.Meals = kept
	if found {
		s.save()
	}
	return found
}

// DeleteExercise removes the exercise with the given ID. Same semantics as
// DeleteMeal.
func (s *store) DeleteExercise(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.state.Exercises[:0]
	found := false
	for _, e := range s.state.Exercises {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	s.state.Exercises = kept
	if found {
		s.save()
	}
	return found
}

// UpdateProfile applies the non-nil fields of the patch and returns the
// resulting profile.
func (s *store) UpdateProfile(patch profilePatchRequest) userProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.Age != nil {
		s.state.Profile.Age = *patch.Age
	}
	if patch.Gender != nil {
		s.state.Profile.Gender = *patch.Gender
	}
	if patch.Weight != nil {
		s.state.Profile.Weight = *patch.Weight
	}
	if patch.Height != nil {
		s.state.Profile.Height = *patch.Height
	}
	if patch.ActivityFactor != nil {
		s.state.Profile.ActivityFactor = *patch.ActivityFactor
	}
	s.save()
	return s.state.Profile
}

// ResetDay clears both ledgers and keeps the profile.
func (s *store) ResetDay() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Meals = []nutritionInfo{}
	s.state.Exercises = []exerciseInfo{}
	s.save()
}
