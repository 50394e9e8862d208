package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSecret_ExpiresAt(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &Secret{CreatedAt: created, TTLSeconds: 3600}

	assert.Equal(t, created.Add(time.Hour), s.ExpiresAt())
}

func TestSecret_ExpiresAt_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	created := time.Date(2025, 6, 1, 15, 0, 0, 0, loc)
	s := &Secret{CreatedAt: created, TTLSeconds: 60}

	want := time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC)
	assert.True(t, s.ExpiresAt().Equal(want))
	assert.Equal(t, time.UTC, s.ExpiresAt().Location())
}
