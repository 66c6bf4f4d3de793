package request

// CreateAccount defines parameters for CreateAccount.
// The caller is always the first owner and must not be listed.
type CreateAccount struct {
	Owners []string `json:"owners"`
}

// Amount carries a sum in major units, e.g. "12.50".
type Amount struct {
	Amount string `json:"amount"`
}
