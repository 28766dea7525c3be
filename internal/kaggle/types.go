package kaggle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kernel is one entry of the kernels/list response. Only fields lbwatch
// reads or logs are decoded; the rest of the payload is ignored.
type Kernel struct {
	Ref         string `json:"ref"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	LastRunTime string `json:"lastRunTime"`
	TotalVotes  int    `json:"totalVotes"`

	PublicScore Score `json:"publicScore"`
	Score       Score `json:"score"`
}

// Score is an optional leaderboard score. The listing sometimes sends it as a
// number, sometimes as a numeric string, and sends null or "" when absent.
// A JSON value of another type (object, bool) is a decode error.
type Score struct {
	Value float64
	Valid bool
}

func (s *Score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*s = Score{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		// Non-numeric strings (e.g. "N/A") count as absent.
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			*s = Score{Value: v, Valid: true}
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("kaggle: score: %w", err)
	}
	*s = Score{Value: v, Valid: true}
	return nil
}

// ListOptions are the kernels/list query parameters lbwatch uses.
// Zero fields are omitted from the request.
type ListOptions struct {
	Competition string
	Language    string
	KernelType  string
	OutputType  string
	SortBy      string
	Page        int
	PageSize    int
}

const (
	SortScoreDescending = "scoreDescending"
	OutputAll           = "all"
	KernelTypeAll       = "all"
)
