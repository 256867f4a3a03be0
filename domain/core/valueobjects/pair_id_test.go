package valueobjects

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUserID(t *testing.T, s string) UserID {
	t.Helper()
	id, err := NewUserID(s)
	require.NoError(t, err)
	return id
}

func TestNewPairID_CanonicalOrder(t *testing.T) {
	alice := mustUserID(t, "alice")
	bob := mustUserID(t, "bob")

	forward, err := NewPairID(alice, bob)
	require.NoError(t, err)
	reverse, err := NewPairID(bob, alice)
	require.NoError(t, err)

	assert.True(t, forward.Equals(reverse))
	assert.Equal(t, "alice#bob", forward.String())
	assert.Equal(t, forward.String(), reverse.String())

	low, high := reverse.Users()
	assert.Equal(t, "alice", low.String())
	assert.Equal(t, "bob", high.String())
}

func TestNewPairID_Invalid(t *testing.T) {
	alice := mustUserID(t, "alice")

	tests := []struct {
		name string
		a    UserID
		b    UserID
	}{
		{name: "same user twice", a: alice, b: alice},
		{name: "zero first member", a: UserID{}, b: alice},
		{name: "zero second member", a: alice, b: UserID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := NewPairID(tt.a, tt.b)
			assert.Error(t, err)
			assert.True(t, pair.IsZero())
		})
	}
}

func TestParsePairID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "canonical form", input: "alice#bob", want: "alice#bob"},
		{name: "reversed form is normalized", input: "bob#alice", want: "alice#bob"},
		{name: "missing separator", input: "alicebob", wantErr: true},
		{name: "empty left side", input: "#bob", wantErr: true},
		{name: "empty right side", input: "alice#", wantErr: true},
		{name: "same user twice", input: "alice#alice", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := ParsePairID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, pair.String())
		})
	}
}

func TestPairID_ContainsAndOther(t *testing.T) {
	alice := mustUserID(t, "alice")
	bob := mustUserID(t, "bob")
	carol := mustUserID(t, "carol")

	pair, err := NewPairID(alice, bob)
	require.NoError(t, err)

	assert.True(t, pair.Contains(alice))
	assert.True(t, pair.Contains(bob))
	assert.False(t, pair.Contains(carol))

	other, ok := pair.Other(alice)
	require.True(t, ok)
	assert.Equal(t, bob, other)

	other, ok = pair.Other(bob)
	require.True(t, ok)
	assert.Equal(t, alice, other)

	_, ok = pair.Other(carol)
	assert.False(t, ok)
}

func TestPairID_JSONRoundTrip(t *testing.T) {
	pair, err := ParsePairID("alice#bob")
	require.NoError(t, err)

	data, err := json.Marshal(pair)
	require.NoError(t, err)
	assert.Equal(t, `"alice#bob"`, string(data))

	var decoded PairID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, pair.Equals(decoded))

	var bad PairID
	assert.Error(t, json.Unmarshal([]byte(`"alice"`), &bad))
}
