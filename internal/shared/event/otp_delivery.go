package event

const OTPDeliveryDestination string = "otp_delivery"
const OTPDeliveryDestinationConsumerNotification string = "otp_delivery_notification"

// OTPDeliveryMessage asks the notification worker to deliver a code. The
// code is in clear text, so the body must never be logged unmasked.
type OTPDeliveryMessage struct {
	Email   string `json:"email"`
	Code    string `json:"code"`
	Purpose string `json:"purpose"`
	// ValidForSeconds is the challenge ttl the code was issued with.
	ValidForSeconds int64 `json:"valid_for_seconds"`
}
