package api

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecDecimalsAsStrings(t *testing.T) {
	c := Codec{}
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(&Debt{FromParticipantID: "bob", ToParticipantID: "alice", Amount: decimal.RequireFromString("3.30")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from_participant_id":"bob","to_participant_id":"alice","amount":"3.3"}`, string(data))
}

func TestCodecUnmarshal(t *testing.T) {
	c := Codec{}

	var req RecordSettlementRequest
	require.NoError(t, c.Unmarshal([]byte(`{"group_id":"g1","amount":"12.50"}`), &req))
	assert.Equal(t, "g1", req.GroupID)
	assert.True(t, req.Amount.Equal(decimal.RequireFromString("12.5")))

	// Numeric amounts are accepted too.
	require.NoError(t, c.Unmarshal([]byte(`{"amount":7.25}`), &req))
	assert.True(t, req.Amount.Equal(decimal.RequireFromString("7.25")))

	var empty ListGroupsRequest
	assert.NoError(t, c.Unmarshal(nil, &empty))
	assert.NoError(t, c.Unmarshal([]byte("  "), &empty))

	err := c.Unmarshal([]byte(`{"group_idd":"g1"}`), &req)
	assert.ErrorContains(t, err, "unknown field")
}
