package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		cfg      domain.Config
		expected domain.TransportKind
	}{
		{"auto without function", domain.Config{Transport: domain.TransportAuto}, domain.TransportHTTP},
		{"auto with function", domain.Config{Transport: domain.TransportAuto, FunctionName: "stache-api"}, domain.TransportFunction},
		{"empty kind with function", domain.Config{FunctionName: "stache-api"}, domain.TransportFunction},
		{"explicit http wins", domain.Config{Transport: domain.TransportHTTP, FunctionName: "stache-api"}, domain.TransportHTTP},
		{"explicit function", domain.Config{Transport: domain.TransportFunction}, domain.TransportFunction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Select(tt.cfg))
		})
	}
}
