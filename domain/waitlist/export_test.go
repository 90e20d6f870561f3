package waitlist

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/akeren/go-waitlist/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSignupsCSV_ParsesBack(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 10_000_000, time.FixedZone("WAT", 3600))
	signups := []*models.WaitlistSignup{
		{Email: "q@example.com", Name: `She said "hi"`, CreatorType: "podcaster", CreatedAt: at},
		{Email: "m@example.com", Name: "Line\nBreak", CreatorType: "vlogger", CreatedAt: at},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSignupsCSV(&buf, signups))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Email", "Name", "Creator Type", "Joined Date"}, records[0])
	assert.Equal(t, `She said "hi"`, records[1][1])
	assert.Equal(t, "Line\nBreak", records[2][1])
	assert.Equal(t, "2024-05-06T06:08:09.010Z", records[1][3])
}

func TestWriteSignupsCSV_EscapesFormulas(t *testing.T) {
	signups := []*models.WaitlistSignup{
		{Email: "f@example.com", Name: "=HYPERLINK(\"x\")", CreatorType: "+1", CreatedAt: time.Unix(0, 0)},
		{Email: "=hyperlink@example.com", Name: "-2", CreatorType: "@sum", CreatedAt: time.Unix(0, 0)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSignupsCSV(&buf, signups))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "'=HYPERLINK(\"x\")", records[1][1])
	assert.Equal(t, "'+1", records[1][2])
	assert.Equal(t, "f@example.com", records[1][0])
	assert.Equal(t, "'=hyperlink@example.com", records[2][0])
	assert.Equal(t, "'-2", records[2][1])
	assert.Equal(t, "'@sum", records[2][2])
}

func TestToWaitlistSignupModel_NormalizesInput(t *testing.T) {
	// "e" followed by a combining acute accent composes to a single rune.
	m := ToWaitlistSignupModel(&CreateWaitlistSignupRequest{
		Email:       " Jose@Example.com\t",
		Name:        "Jose\u0301",
		CreatorType: " musician ",
	})

	assert.Equal(t, "jose@example.com", m.Email)
	assert.Equal(t, "Jos\u00e9", m.Name)
	assert.Equal(t, "musician", m.CreatorType)
	assert.Nil(t, ToWaitlistSignupModel(nil))
}

func TestCreateWaitlistSignupRequest_UnmarshalNormalizes(t *testing.T) {
	var req CreateWaitlistSignupRequest
	require.NoError(t, json.Unmarshal([]byte(`{"email":"  Ada@Example.COM ","name":" Jose\u0301 ","creatorType":"\twriter"}`), &req))

	assert.Equal(t, "ada@example.com", req.Email)
	assert.Equal(t, "Jos\u00e9", req.Name)
	assert.Equal(t, "writer", req.CreatorType)

	assert.Error(t, json.Unmarshal([]byte(`{"email":1}`), &req))
}
