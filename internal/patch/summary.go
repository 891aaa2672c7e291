package patch

// AttemptSummary is a trimmed view of an attempt for list responses.
type AttemptSummary struct {
	ID             string `json:"id"`
	Action         string `json:"action"`
	FilePath       string `json:"file_path"`
	PatternPreview string `json:"pattern_preview"`
	Mode           string `json:"mode"`
	Validator      string `json:"validator"`
	Status         string `json:"status"`
	Replaced       int    `json:"replaced"`
	Source         string `json:"source"`
	CreatedAt      int64  `json:"created_at"`
	Reverted       bool   `json:"reverted"`
}

// ToSummary converts an Attempt to its summary form.
func (a *Attempt) ToSummary() AttemptSummary {
	return AttemptSummary{
		ID:             a.ID,
		Action:         a.Action,
		FilePath:       a.FilePath,
		PatternPreview: TruncatePattern(a.Pattern),
		Mode:           a.Mode,
		Validator:      a.Validator,
		Status:         a.Status,
		Replaced:       a.Replaced,
		Source:         a.Source,
		CreatedAt:      a.CreatedAt,
		Reverted:       a.RevertedAt != nil,
	}
}
