package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const ellipsisToken = "ellipsis"

// PageToken is one entry of a page-number window: a page number or an ellipsis marker.
type PageToken struct {
	Number   int
	Ellipsis bool
}

// PageNumber builds a numeric token.
func PageNumber(n int) PageToken { return PageToken{Number: n} }

// Ellipsis builds the gap marker.
func Ellipsis() PageToken { return PageToken{Ellipsis: true} }

// String renders the token for logs and tests.
func (t PageToken) String() string {
	if t.Ellipsis {
		return ellipsisToken
	}
	return fmt.Sprintf("%d", t.Number)
}

// MarshalJSON encodes numbers as JSON numbers and the marker as "ellipsis".
func (t PageToken) MarshalJSON() ([]byte, error) {
	if t.Ellipsis {
		return json.Marshal(ellipsisToken)
	}
	return json.Marshal(t.Number)
}

// UnmarshalJSON accepts either form produced by MarshalJSON.
func (t *PageToken) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != ellipsisToken {
			return fmt.Errorf("unknown page token %q", s)
		}
		*t = Ellipsis()
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = PageNumber(n)
	return nil
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalCount int         `json:"total_count"`
	TotalPages int         `json:"total_pages"`
	Window     []PageToken `json:"window,omitempty"`
}
