package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnhanceQuery(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "adds country and year", query: "cafeteria artesanal", want: "cafeteria artesanal Brasil 2025"},
		{name: "keeps brasil", query: "mercado pet Brasil", want: "mercado pet Brasil 2025"},
		{name: "brasileiro counts", query: "consumidor brasileiro", want: "consumidor brasileiro 2025"},
		{name: "br token counts", query: "startups .br fintech", want: "startups .br fintech 2025"},
		{name: "br inside word does not count", query: "brinquedos educativos", want: "brinquedos educativos Brasil 2025"},
		{name: "current year kept", query: "tendências 2025", want: "tendências 2025 Brasil"},
		{name: "previous year kept", query: "varejo Brasil 2024", want: "varejo Brasil 2024"},
		{name: "old year gets hint", query: "varejo Brasil 2019", want: "varejo Brasil 2019 2025"},
		{name: "trims", query: "  saas b2b  ", want: "saas b2b Brasil 2025"},
		{name: "empty", query: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EnhanceQuery(tt.query, now))
		})
	}
}
