package helpers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Payment external ids are prefixed so the webhook receiver can dispatch by
// payload type without a schema lookup.
const PaymentExternalIDPrefix = "sub-"

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

func PaymentExternalID(paymentID uuid.UUID) string {
	return PaymentExternalIDPrefix + paymentID.String()
}

// ExtractPaymentID parses the payment id back out of a gateway external_id.
func ExtractPaymentID(externalID string) (uuid.UUID, error) {
	if !strings.HasPrefix(externalID, PaymentExternalIDPrefix) {
		return uuid.Nil, fmt.Errorf("unrecognized external id format")
	}
	return uuid.Parse(strings.TrimPrefix(externalID, PaymentExternalIDPrefix))
}
