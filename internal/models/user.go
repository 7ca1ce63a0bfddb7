package models

type User struct {
	ID           string `json:"id" bson:"_id,omitempty"`
	Name         string `json:"name" bson:"name"`
	Email        string `json:"email,omitempty" bson:"email,omitempty"`
	IsPredefined bool   `json:"isPredefined,omitempty" bson:"isPredefined,omitempty"`
}

// FederatedCredential binds an identity-provider (provider, subject) pair to a
// user. Created exactly once, at the user's first login.
type FederatedCredential struct {
	UserID   string `json:"userId" bson:"user_id"`
	Provider string `json:"provider" bson:"provider"`
	Subject  string `json:"subject" bson:"subject"`
}
