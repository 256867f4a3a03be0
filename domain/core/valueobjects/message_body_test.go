package valueobjects

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageBody(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain text", input: "hello there"},
		{name: "whitespace is preserved around content", input: "  padded  "},
		{name: "exactly max length", input: strings.Repeat("a", MaxMessageBodyLength)},
		{name: "multibyte runes count as one", input: strings.Repeat("é", MaxMessageBodyLength)},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   \n\t ", wantErr: true},
		{name: "over max length", input: strings.Repeat("a", MaxMessageBodyLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := NewMessageBody(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, body.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, body.String())
		})
	}
}
