package domain

import "strings"

// Session описывает текущего аутентифицированного пользователя. Отсутствие сессии означает гостя.
type Session struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// FirstName и LastName разбирают Name по первому пробелу.
func (s Session) FirstName() string {
	first, _, _ := strings.Cut(strings.TrimSpace(s.Name), " ")
	return first
}

func (s Session) LastName() string {
	_, last, _ := strings.Cut(strings.TrimSpace(s.Name), " ")
	return strings.TrimSpace(last)
}

// Profile содержит данные регистрации.
type Profile struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
