package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataRoundTrip(t *testing.T) {
	in := Metadata{MembershipID: 3, MembershipName: "Pro anual", UserID: 18446744073, UserEmail: "ana@example.com"}

	raw := in.Map()
	assert.Equal(t, "3", raw[MetadataMembershipID])
	assert.Equal(t, "18446744073", raw[MetadataUserID])
	assert.Equal(t, "Pro anual", raw[MetadataMembershipName])
	assert.Equal(t, "ana@example.com", raw[MetadataUserEmail])

	out, err := ParseMetadata(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParseMetadataOptionalUser(t *testing.T) {
	out, err := ParseMetadata(map[string]string{MetadataMembershipID: " 5 "})
	require.NoError(t, err)
	assert.Equal(t, uint(5), out.MembershipID)
	assert.Equal(t, uint(0), out.UserID)
}

func TestParseMetadataErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]string
		code string
	}{
		{name: "nil map", raw: nil, code: CodeMissingCorrelation},
		{name: "blank membership", raw: map[string]string{MetadataMembershipID: "  "}, code: CodeMissingCorrelation},
		{name: "non numeric membership", raw: map[string]string{MetadataMembershipID: "pro"}, code: CodeInvalidPayload},
		{name: "zero membership", raw: map[string]string{MetadataMembershipID: "0"}, code: CodeInvalidPayload},
		{name: "negative user", raw: map[string]string{MetadataMembershipID: "3", MetadataUserID: "-7"}, code: CodeInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMetadata(tt.raw)
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Equal(t, tt.code, Code(err))
		})
	}
}
