package event

// UserDeletedDestination is published by the identity service.
const UserDeletedDestination string = "user_deleted"
const UserDeletedDestinationConsumerOTPAuth string = "user_deleted_otpauth"

type UserDeletedMessage struct {
	UserID int64 `json:"user_id"`
}
