package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalLegacyJSON_Metadata(t *testing.T) {
	s, ok := LookupScenario("liquidation")
	require.True(t, ok)

	got, err := MarshalLegacyJSON(NewMetadata("liquidation", s))
	require.NoError(t, err)
	assert.Equal(t, `{"platform": "FTX", "entity": "Alameda Research", "decision_type": "LIQUIDATION", "risk_level": "HIGH", "amount": "$890M", "red_flags": ["Conflict of interest in prioritization", "Unfair liquidation sequence", "Customer protection rules violated", "Market manipulation indicators", "Misleading liquidation notifications"], "compliance_status": "MULTIPLE_VIOLATIONS", "case_study": "Historical reconstruction", "regulatory_bodies": ["SEC", "CFTC", "DOJ"]}`, got)
}

func TestMarshalLegacyJSON_EscapesNonASCII(t *testing.T) {
	risk, _ := LookupScenario("risk")
	content, err := MarshalLegacyJSON(NewContent("risk", risk, time.Date(2022, 11, 8, 8, 15, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Contains(t, content, `"amount": "89% \u2192 12%"`)
	assert.Contains(t, content, `"timestamp": "2022-11-08T08:15:00"`)
	assert.NotContains(t, content, "→")

	liq, _ := LookupScenario("liquidation")
	content, err = MarshalLegacyJSON(NewContent("liquidation", liq, time.Now()))
	require.NoError(t, err)
	assert.Contains(t, content, `"Market Manipulation (15 U.S.C. \u00a7 78i)"`)

	// После экранирования строка остается валидным JSON с теми же значениями
	var back Content
	require.NoError(t, json.Unmarshal([]byte(content), &back))
	assert.Equal(t, liq.RegulatoryViolations, back.RegulatoryViolations)
}

func TestMarshalLegacyJSON_Escapes(t *testing.T) {
	v := struct {
		A string   `json:"a"`
		N []int    `json:"n"`
		E []string `json:"e"`
		K string   `json:"k"`
	}{
		A: "x<y & \"q\"\n\x7f😀",
		N: []int{1, 2},
		E: []string{},
		K: "a:b,c",
	}

	got, err := MarshalLegacyJSON(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a": "x<y & \"q\"\n\u007f\ud83d\ude00", "n": [1, 2], "e": [], "k": "a:b,c"}`, got)
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "2022-11-08T08:15:00.123456", FormatTimestamp(time.Date(2022, 11, 8, 8, 15, 0, 123456789, time.UTC)))
	assert.Equal(t, "2022-11-08T08:15:00.000001", FormatTimestamp(time.Date(2022, 11, 8, 8, 15, 0, 1000, time.UTC)))
	assert.Equal(t, "2022-11-08T08:15:00", FormatTimestamp(time.Date(2022, 11, 8, 8, 15, 0, 0, time.UTC)))
	assert.Equal(t, "2022-11-08T08:15:00", FormatTimestamp(time.Date(2022, 11, 8, 8, 15, 0, 999, time.UTC)))
}
