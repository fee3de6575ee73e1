package mail

import (
	"bytes"
	"context"
	"html/template"
	"time"
)

var (
	activationTemplate = template.Must(template.New("activation").Parse(`<!DOCTYPE html>
<html><body>
<p>Bonjour {{.Name}},</p>
<p>Un compte a été créé pour vous. Cliquez sur le lien ci-dessous pour choisir votre mot de passe et activer votre compte :</p>
<p><a href="{{.Link}}">Activer mon compte</a></p>
<p>Ce lien expire le {{.ExpiresAt}}.</p>
</body></html>`))

	resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html><body>
<p>Bonjour,</p>
<p>Vous avez demandé la réinitialisation de votre mot de passe. Ce lien est valable jusqu'au {{.ExpiresAt}} :</p>
<p><a href="{{.Link}}">Réinitialiser mon mot de passe</a></p>
<p>Si vous n'êtes pas à l'origine de cette demande, ignorez ce message.</p>
</body></html>`))
)

const expiryLayout = "02/01/2006 15:04 MST"

type linkData struct {
	Name      string
	Link      string
	ExpiresAt string
}

func (m *Mailer) SendActivation(ctx context.Context, to, name, link string, expiresAt time.Time) error {
	body, err := render(activationTemplate, linkData{Name: name, Link: link, ExpiresAt: expiresAt.Format(expiryLayout)})
	if err != nil {
		return err
	}
	return m.Send(ctx, to, "Activez votre compte", body)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, link string, expiresAt time.Time) error {
	body, err := render(resetTemplate, linkData{Link: link, ExpiresAt: expiresAt.Format(expiryLayout)})
	if err != nil {
		return err
	}
	return m.Send(ctx, to, "Réinitialisation de votre mot de passe", body)
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
