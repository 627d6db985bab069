package push

import (
	"encoding/json"
	"testing"

	"librahub/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBookTitleVariants(t *testing.T) {
	cases := map[string]struct {
		payload string
		want    string
	}{
		"bookTitle key":      {`{"bookTitle":"Dune"}`, "Dune"},
		"embedded book":      {`{"book":{"title":"Dune"}}`, "Dune"},
		"capitalized Title":  {`{"Title":"Dune"}`, "Dune"},
		"lowercase title":    {`{"title":"Dune"}`, "Dune"},
		"bookTitle preferred": {`{"bookTitle":"Dune","book":{"title":"Other"}}`, "Dune"},
		"nothing usable":     {`{"status":"approved"}`, ""},
		"not an object":      {`[1,2]`, ""},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractBookTitle(json.RawMessage(tc.payload)))
		})
	}
}

func TestDecodeReservationPayload(t *testing.T) {
	reservation := DecodeReservationPayload(json.RawMessage(`{"_id":"r1","status":"approved","bookId":{"_id":"b1","title":"Dune"}}`))
	require.NotNil(t, reservation)
	assert.Equal(t, "r1", reservation.ID)
	assert.Equal(t, shared.ReservationApproved, reservation.Status)
	assert.Equal(t, "b1", reservation.BookID)

	assert.Nil(t, DecodeReservationPayload(json.RawMessage(`{"noise":true}`)))
}
