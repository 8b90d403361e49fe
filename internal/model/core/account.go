package core

import "time"

// Account is an operator account. PasswordHash is the encoded bcrypt hash,
// never the plaintext.
type Account struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Login        string `json:"login"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}

func (a *Account) EntityID() uint { return a.ID }

// LoginRecord is one credential-check outcome, kept for audit. AccountID is 0
// when the login name did not match any account.
type LoginRecord struct {
	ID         uint      `json:"id"`
	AccountID  uint      `json:"accountId"`
	Login      string    `json:"login"`
	Time       time.Time `json:"time"`
	Success    bool      `json:"success"`
	RemoteAddr string    `json:"remoteAddr"`
}

func (l *LoginRecord) EntityID() uint { return l.ID }
