package transport

import "github.com/Skotchmaster/shop-auth/internal/models"

const (
	ActionRegister = "register"
	ActionLogin    = "login"
)

// AuthRequest is the body of POST /. Register uses Username, Email and
// Password; login uses Login and Password.
type AuthRequest struct {
	Action   string `json:"action"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"isAdmin"`
}

func NewUserView(u *models.User) UserView {
	return UserView{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		IsAdmin:  u.IsAdmin,
	}
}

type AuthResult struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
