package qr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValidPayload(t *testing.T) {
	raw := `{"courseId":"CS101","latitude":40.7128,"longitude":-74.0060,"expiresAt":"2026-03-01T10:30:00Z"}`
	claim, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "CS101", claim.CourseID)
	assert.Equal(t, 40.7128, claim.Latitude)
	assert.Equal(t, -74.0060, claim.Longitude)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC), claim.ExpiresAt)
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	raw := `{"courseId":"CS101","latitude":1,"longitude":2,"expiresAt":"2026-03-01T10:30:00Z","radius":5000,"issuer":"x"}`
	claim, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "CS101", claim.CourseID)
}

func TestDecodeRejections(t *testing.T) {
	cases := map[string]string{
		"not json":          `{{{`,
		"not an object":     `[1,2,3]`,
		"missing courseId":  `{"latitude":1,"longitude":2,"expiresAt":"2026-03-01T10:30:00Z"}`,
		"empty courseId":    `{"courseId":"","latitude":1,"longitude":2,"expiresAt":"2026-03-01T10:30:00Z"}`,
		"missing latitude":  `{"courseId":"CS101","longitude":2,"expiresAt":"2026-03-01T10:30:00Z"}`,
		"missing longitude": `{"courseId":"CS101","latitude":1,"expiresAt":"2026-03-01T10:30:00Z"}`,
		"missing expiresAt": `{"courseId":"CS101","latitude":1,"longitude":2}`,
		"bad expiresAt":     `{"courseId":"CS101","latitude":1,"longitude":2,"expiresAt":"yesterday"}`,
		"wrong type":        `{"courseId":"CS101","latitude":"one","longitude":2,"expiresAt":"2026-03-01T10:30:00Z"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			claim, err := Decode(raw)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.True(t, claim.ExpiresAt.IsZero())
		})
	}
}

func TestExpiredBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	claim := Claim{ExpiresAt: now}

	assert.False(t, claim.Expired(now), "expiry exactly at now is still live")
	assert.True(t, claim.Expired(now.Add(time.Millisecond)))
	assert.False(t, claim.Expired(now.Add(-time.Millisecond)))
}
