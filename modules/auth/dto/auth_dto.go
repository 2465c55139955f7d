package dto

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token       string `json:"token"`
	DisplayName string `json:"display_name"`
	Timezone    string `json:"timezone"`
}
