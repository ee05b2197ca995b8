package billing

import (
	"strconv"
	"strings"
)

// Keys of the correlation metadata attached to a checkout session and echoed
// back by the gateway on completion.
const (
	MetadataMembershipID   = "membresia_id"
	MetadataMembershipName = "membresia_nombre"
	MetadataUserID         = "usuario_id"
	MetadataUserEmail      = "usuario_email"
)

// Metadata is the typed form of the checkout correlation data.
type Metadata struct {
	MembershipID   uint
	MembershipName string
	UserID         uint
	UserEmail      string
}

// Map encodes the metadata as the string map the gateway stores.
func (m Metadata) Map() map[string]string {
	return map[string]string{
		MetadataMembershipID:   strconv.FormatUint(uint64(m.MembershipID), 10),
		MetadataMembershipName: m.MembershipName,
		MetadataUserID:         strconv.FormatUint(uint64(m.UserID), 10),
		MetadataUserEmail:      m.UserEmail,
	}
}

// ParseMetadata decodes correlation metadata from a completed session.
// membresia_id is mandatory; usuario_id is optional and only used as a
// fallback when the customer email does not resolve to a user.
func ParseMetadata(raw map[string]string) (Metadata, error) {
	var m Metadata

	membershipRaw := strings.TrimSpace(raw[MetadataMembershipID])
	if membershipRaw == "" {
		return m, newError(KindValidation, CodeMissingCorrelation, "metadata.membresia_id is required", nil)
	}
	membershipID, err := parseID(membershipRaw)
	if err != nil {
		return m, newError(KindValidation, CodeInvalidPayload, "metadata.membresia_id is not a valid id", err)
	}
	m.MembershipID = membershipID

	if userRaw := strings.TrimSpace(raw[MetadataUserID]); userRaw != "" {
		userID, err := parseID(userRaw)
		if err != nil {
			return m, newError(KindValidation, CodeInvalidPayload, "metadata.usuario_id is not a valid id", err)
		}
		m.UserID = userID
	}

	m.MembershipName = raw[MetadataMembershipName]
	m.UserEmail = strings.TrimSpace(raw[MetadataUserEmail])
	return m, nil
}

func parseID(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, strconv.ErrRange
	}
	return uint(v), nil
}
