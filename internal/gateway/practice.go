package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Practicer records a graded attempt at a concept and returns the new
// mastery score. Grading itself happens elsewhere.
type Practicer interface {
	RecordPractice(ctx context.Context, userID, concept string, score int) (float64, error)
}

// RecordPractice implements Practicer.
func (h *HTTP) RecordPractice(ctx context.Context, userID, concept string, score int) (float64, error) {
	body, err := json.Marshal(map[string]any{"user_id": userID, "concept": concept, "score": score})
	if err != nil {
		return 0, fmt.Errorf("encode practice: %w", err)
	}
	data, err := h.do(ctx, http.MethodPost, "/api/graph/practice", body)
	if err != nil {
		return 0, err
	}
	var resp struct {
		MasteryScore float64 `json:"mastery_score"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("decode practice: %w", err)
	}
	return resp.MasteryScore, nil
}

// RecordPractice implements Practicer.
func (s *Store) RecordPractice(ctx context.Context, userID, concept string, score int) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(concept) == "" {
		return 0, invalid("concept: required")
	}
	return s.db.UpdatePractice(userID, concept, score)
}
