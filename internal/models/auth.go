package models

type GoogleAuthURL struct {
	AuthURL string `json:"auth_url"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type VerifyTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type TokenUser struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	FullName      string  `json:"full_name"`
	Role          string  `json:"role"`
	CompanyID     *string `json:"company_id"`
	CanAddDevices bool    `json:"can_add_devices"`
}

type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	User         TokenUser `json:"user"`
}

// GoogleIdentity is what the provider tells us about the signed-in account.
type GoogleIdentity struct {
	Subject      string
	Email        string
	Name         string
	Picture      string
	RefreshToken string
}
