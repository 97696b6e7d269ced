package store

import (
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/starfield/internal/graph"
)

// StableID derives a concept id from its name: the first 16 hex digits of
// the SHA-1 of the UTF-8 name. Uploads refer to concepts by name, so the
// same name always lands on the same row.
func StableID(name string) string {
	sum := sha1.Sum([]byte(name))
	return hex.EncodeToString(sum[:])[:16]
}

// ConceptInput is a node to merge into a user's graph.
type ConceptInput struct {
	Name  string
	Level *int
}

// EdgeInput relates two concepts by name.
type EdgeInput struct {
	From string
	To   string
	Type string
}

// PlanConcept is one step of a learning plan.
type PlanConcept struct {
	Title string
	Order int
}

// UploadResult counts what a merge touched.
type UploadResult struct {
	Concepts int `json:"concepts"`
	Edges    int `json:"edges"`
	Skipped  int `json:"skipped"`
}

func (db *DB) nowMillis() int64 {
	if db.clock != nil {
		return db.clock().UnixMilli()
	}
	return time.Now().UnixMilli()
}

// SetClock overrides the time source used for timestamps.
func (db *DB) SetClock(now func() time.Time) {
	db.clock = now
}

const upsertConceptSQL = `
	INSERT INTO user_concepts (user_id, concept_id, name, level, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (user_id, concept_id) DO UPDATE SET
		name         = excluded.name,
		level        = COALESCE(excluded.level, user_concepts.level),
		last_seen_at = excluded.last_seen_at,
		updated_at   = excluded.updated_at
`

const upsertEdgeSQL = `
	INSERT INTO user_edges (user_id, source_id, target_id, type, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (user_id, source_id, target_id, type) DO UPDATE SET
		updated_at = excluded.updated_at
`

// UploadGraph merges a fragment into userID's graph. Concepts with a blank
// name and edges missing an endpoint are skipped. Touching a concept marks
// it seen now; practice history and mastery are left alone. A concept
// uploaded without a level keeps its stored level.
func (db *DB) UploadGraph(userID string, nodes []ConceptInput, edges []EdgeInput) (UploadResult, error) {
	var res UploadResult
	now := db.nowMillis()

	tx, err := db.Begin()
	if err != nil {
		return res, fmt.Errorf("begin upload: %w", err)
	}
	defer tx.Rollback()

	for _, n := range nodes {
		name := strings.TrimSpace(n.Name)
		if name == "" {
			res.Skipped++
			continue
		}
		var level any
		if n.Level != nil {
			level = *n.Level
		}
		if _, err := tx.Exec(upsertConceptSQL, userID, StableID(name), name, level, now, now, now); err != nil {
			return res, fmt.Errorf("upsert concept %q: %w", name, err)
		}
		res.Concepts++
	}

	for _, e := range edges {
		from, to := strings.TrimSpace(e.From), strings.TrimSpace(e.To)
		if from == "" || to == "" {
			res.Skipped++
			continue
		}
		typ := graph.ParseEdgeType(e.Type)
		if _, err := tx.Exec(upsertEdgeSQL, userID, StableID(from), StableID(to), string(typ), now); err != nil {
			return res, fmt.Errorf("upsert edge %q -> %q: %w", from, to, err)
		}
		res.Edges++
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit upload: %w", err)
	}
	return res, nil
}

// UpsertPlanConcepts records the concepts of a learning plan, leveled by
// their order, and chains consecutive concepts with PREREQ edges.
func (db *DB) UpsertPlanConcepts(userID string, plan []PlanConcept) (UploadResult, error) {
	nodes := make([]ConceptInput, 0, len(plan))
	for _, p := range plan {
		title := strings.TrimSpace(p.Title)
		if title == "" {
			continue
		}
		order := p.Order
		nodes = append(nodes, ConceptInput{Name: title, Level: &order})
	}
	var edges []EdgeInput
	for i := 1; i < len(nodes); i++ {
		edges = append(edges, EdgeInput{From: nodes[i-1].Name, To: nodes[i].Name, Type: string(graph.Prereq)})
	}
	res, err := db.UploadGraph(userID, nodes, edges)
	res.Skipped += len(plan) - len(nodes)
	return res, err
}

// Mastery blend for each graded attempt.
const (
	masteryKeep   = 0.7
	masteryWeight = 0.3
)

// UpdatePractice records a graded attempt at concept (by name). Mastery is
// an exponential moving average of score/100; a concept practiced for the
// first time is created. Returns the new mastery.
func (db *DB) UpdatePractice(userID, concept string, score int) (float64, error) {
	name := strings.TrimSpace(concept)
	if name == "" {
		return 0, fmt.Errorf("update practice: empty concept name")
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	id := StableID(name)
	now := db.nowMillis()

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin practice: %w", err)
	}
	defer tx.Rollback()

	var old sql.NullFloat64
	err = tx.QueryRow(`SELECT mastery_score FROM user_concepts WHERE user_id = ? AND concept_id = ?`, userID, id).Scan(&old)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("read mastery: %w", err)
	}
	mastery := old.Float64*masteryKeep + float64(score)/100*masteryWeight

	_, err = tx.Exec(`
		INSERT INTO user_concepts (user_id, concept_id, name, last_practice_at, mastery_score, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (user_id, concept_id) DO UPDATE SET
			name             = excluded.name,
			last_practice_at = excluded.last_practice_at,
			mastery_score    = excluded.mastery_score,
			attempts         = user_concepts.attempts + 1,
			updated_at       = excluded.updated_at
	`, userID, id, name, now, mastery, now, now)
	if err != nil {
		return 0, fmt.Errorf("upsert practice: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit practice: %w", err)
	}
	return mastery, nil
}

// GetGraph returns userID's graph. Brightness is left zero; callers derive
// it with graph.Snapshot.Refresh.
func (db *DB) GetGraph(userID string) (graph.Snapshot, error) {
	snap := graph.Snapshot{Nodes: []graph.ConceptNode{}, Edges: []graph.ConceptEdge{}}

	rows, err := db.Query(`
		SELECT concept_id, name, level, last_seen_at, last_practice_at, mastery_score
		FROM user_concepts WHERE user_id = ?
		ORDER BY COALESCE(level, 0), name
	`, userID)
	if err != nil {
		return snap, fmt.Errorf("query concepts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			n               graph.ConceptNode
			level           sql.NullInt64
			seen, practiced sql.NullInt64
			mastery         sql.NullFloat64
		)
		if err := rows.Scan(&n.ID, &n.Name, &level, &seen, &practiced, &mastery); err != nil {
			return snap, fmt.Errorf("scan concept: %w", err)
		}
		if level.Valid {
			lv := int(level.Int64)
			n.Level = &lv
		}
		n.LastSeenAt = millisTime(seen)
		n.LastPracticeAt = millisTime(practiced)
		if mastery.Valid {
			m := mastery.Float64
			n.MasteryScore = &m
		}
		snap.Nodes = append(snap.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate concepts: %w", err)
	}

	erows, err := db.Query(`
		SELECT source_id, target_id, type FROM user_edges
		WHERE user_id = ? ORDER BY source_id, target_id, type
	`, userID)
	if err != nil {
		return snap, fmt.Errorf("query edges: %w", err)
	}
	defer erows.Close()

	for erows.Next() {
		var e graph.ConceptEdge
		var typ string
		if err := erows.Scan(&e.Source, &e.Target, &typ); err != nil {
			return snap, fmt.Errorf("scan edge: %w", err)
		}
		e.Type = graph.EdgeType(typ)
		snap.Edges = append(snap.Edges, e)
	}
	return snap, erows.Err()
}

// CountConcepts returns how many concepts userID has.
func (db *DB) CountConcepts(userID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM user_concepts WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

func millisTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
