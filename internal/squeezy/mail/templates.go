package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

var (
	verifyEmailHTML = template.Must(template.New("verify").Parse(
		`<p>Hi {{.Name}},</p><p>Confirm your account by following <a href="{{.Link}}">this link</a>. It expires in 45 minutes.</p>`))

	passwordResetHTML = template.Must(template.New("reset").Parse(
		`<p>Hi {{.Name}},</p><p>Reset your password by following <a href="{{.Link}}">this link</a>. It expires in one hour.</p><p>If you did not ask for this you can ignore this mail.</p>`))
)

type linkData struct {
	Name string
	Link string
}

// VerifyEmail builds the account confirmation mail.
func VerifyEmail(to, name, link string) (Message, error) {
	html, err := render(verifyEmailHTML, linkData{Name: name, Link: link})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Verify your email address",
		Text:    fmt.Sprintf("Hi %s,\n\nConfirm your account: %s\n\nThe link expires in 45 minutes.\n", name, link),
		HTML:    html,
	}, nil
}

// PasswordReset builds the password reset mail.
func PasswordReset(to, name, link string) (Message, error) {
	html, err := render(passwordResetHTML, linkData{Name: name, Link: link})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Password reset request",
		Text:    fmt.Sprintf("Hi %s,\n\nReset your password: %s\n\nThe link expires in one hour.\n", name, link),
		HTML:    html,
	}, nil
}

func render(t *template.Template, data linkData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
