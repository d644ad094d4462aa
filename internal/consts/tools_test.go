package consts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolClassification(t *testing.T) {
	tests := []struct {
		name     string
		readOnly bool
		mutating bool
		external bool
	}{
		{name: ToolNameSearchEvents, readOnly: true},
		{name: ToolNameCreateEvent, mutating: true},
		{name: "crm" + ExternalToolSeparator + "update_contact", external: true},
		{name: "unknown_tool"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.readOnly, IsReadOnly(tt.name))
			assert.Equal(t, tt.mutating, IsMutating(tt.name))
			assert.Equal(t, tt.external, IsExternal(tt.name))
		})
	}
}
