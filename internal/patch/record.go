package patch

// AttemptRecord is the full JSON view of an attempt, used for show output
// and for the line format of JSONL exports.
type AttemptRecord struct {
	ID          string  `json:"id"`
	Action      string  `json:"action"`
	FilePath    string  `json:"file_path"`
	Pattern     string  `json:"pattern"`
	Regex       bool    `json:"regex"`
	Mode        string  `json:"mode"`
	Replacement string  `json:"replacement"`
	Validator   string  `json:"validator"`
	Status      string  `json:"status"`
	Occurrences int     `json:"occurrences"`
	Replaced    int     `json:"replaced"`
	BytesBefore int64   `json:"bytes_before"`
	BytesAfter  int64   `json:"bytes_after"`
	HashBefore  *string `json:"hash_before,omitempty"`
	HashAfter   *string `json:"hash_after,omitempty"`
	VersionID   *string `json:"version_id,omitempty"`
	RevertsID   *string `json:"reverts_id,omitempty"`
	Source      string  `json:"source"`
	Description *string `json:"description,omitempty"`
	Detail      *string `json:"detail,omitempty"`
	CreatedAt   int64   `json:"created_at"`
	RevertedAt  *int64  `json:"reverted_at,omitempty"`
}

// ToRecord converts an Attempt to its full record form.
func (a *Attempt) ToRecord() AttemptRecord {
	return AttemptRecord{
		ID:          a.ID,
		Action:      a.Action,
		FilePath:    a.FilePath,
		Pattern:     a.Pattern,
		Regex:       a.Regex,
		Mode:        a.Mode,
		Replacement: a.Replacement,
		Validator:   a.Validator,
		Status:      a.Status,
		Occurrences: a.Occurrences,
		Replaced:    a.Replaced,
		BytesBefore: a.BytesBefore,
		BytesAfter:  a.BytesAfter,
		HashBefore:  a.HashBefore,
		HashAfter:   a.HashAfter,
		VersionID:   a.VersionID,
		RevertsID:   a.RevertsID,
		Source:      a.Source,
		Description: a.Description,
		Detail:      a.Detail,
		CreatedAt:   a.CreatedAt,
		RevertedAt:  a.RevertedAt,
	}
}
