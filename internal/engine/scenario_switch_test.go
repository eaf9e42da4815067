package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestScenarioSwitch_Set(t *testing.T) {
	s := NewScenarioSwitch(nil, zap.NewNop())
	assert.False(t, s.IsDisabled("transfer"))

	s.Set("transfer", true)
	s.Set("risk", true)
	assert.True(t, s.IsDisabled("transfer"))
	assert.Equal(t, []string{"risk", "transfer"}, s.Disabled())

	s.Set("transfer", false)
	assert.False(t, s.IsDisabled("transfer"))
	assert.Equal(t, []string{"risk"}, s.Disabled())
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		payload string
		id      string
		status  bool
		ok      bool
	}{
		{"transfer:on", "transfer", true, true},
		{"transfer:true", "transfer", true, true},
		{"risk:off", "risk", false, true},
		{"risk:FALSE", "risk", false, true},
		{"risk", "", false, false},
		{":on", "", false, false},
		{"a:b:c", "", false, false},
		{"risk:maybe", "", false, false},
	}

	for _, tt := range tests {
		id, status, ok := parseSignal(tt.payload)
		assert.Equal(t, tt.ok, ok, tt.payload)
		assert.Equal(t, tt.id, id, tt.payload)
		assert.Equal(t, tt.status, status, tt.payload)
	}
}
