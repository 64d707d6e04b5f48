package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type patch struct {
	Title    Optional[string] `json:"title"`
	Assignee Optional[int64]  `json:"assignedToUserId"`
}

func TestOptional_AbsentNullAndValue(t *testing.T) {
	var p patch
	require.NoError(t, json.Unmarshal([]byte(`{"assignedToUserId":null}`), &p))
	require.False(t, p.Title.Set)
	require.True(t, p.Assignee.Set)
	require.True(t, p.Assignee.IsNull())

	p = patch{}
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Audit","assignedToUserId":7}`), &p))
	require.Equal(t, "Audit", *p.Title.Value)
	require.Equal(t, int64(7), *p.Assignee.Value)
}

func TestOptional_RejectsWrongType(t *testing.T) {
	var p patch
	require.Error(t, json.Unmarshal([]byte(`{"assignedToUserId":"seven"}`), &p))
}

func TestOptional_Constructors(t *testing.T) {
	require.True(t, Null[string]().IsNull())
	b, err := json.Marshal(Some("x"))
	require.NoError(t, err)
	require.JSONEq(t, `"x"`, string(b))
}
