package mail

import (
	"bytes"
	"html/template"
)

// ThreatVerifiedData fills the verification-broadcast email.
type ThreatVerifiedData struct {
	ThreatType  string
	ThreatValue string
	Severity    int
	DetailURL   string
}

// WelcomeData fills the subscription-welcome email.
type WelcomeData struct {
	Email   string
	SiteURL string
}

var threatVerifiedTmpl = template.Must(template.New("threat_verified").Parse(`
<div style="font-family:sans-serif;max-width:560px">
  <h2>A threat you may have seen was just verified</h2>
  <p>Our moderators confirmed a reported <strong>{{.ThreatType}}</strong> threat:</p>
  <p style="padding:12px;background:#f6f6f6;border-radius:6px;word-break:break-all"><code>{{.ThreatValue}}</code></p>
  <p>Severity: {{.Severity}}/5</p>
  {{if .DetailURL}}<p><a href="{{.DetailURL}}">See the full record</a></p>{{end}}
  <p style="color:#888;font-size:12px">You receive this because you opted in to threat-verification alerts. You can opt out at any time from your account settings.</p>
</div>`))

var welcomeTmpl = template.Must(template.New("welcome").Parse(`
<div style="font-family:sans-serif;max-width:560px">
  <h2>You are subscribed</h2>
  <p>{{.Email}} will now receive an email whenever a reported threat is verified.</p>
  {{if .SiteURL}}<p><a href="{{.SiteURL}}">Back to TrustNet</a></p>{{end}}
</div>`))

// SendThreatVerified emails one subscriber about a verified threat.
func (s *Sender) SendThreatVerified(to string, data ThreatVerifiedData) error {
	html, err := renderTemplate(threatVerifiedTmpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: "TrustNet: a reported threat was verified",
		HTML:    html,
	})
}

// SendWelcome emails a newly registered subscriber.
func (s *Sender) SendWelcome(to string, data WelcomeData) error {
	html, err := renderTemplate(welcomeTmpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: "TrustNet: threat alerts enabled",
		HTML:    html,
	})
}

func renderTemplate(t *template.Template, data interface{}) (string, error) {
	var out bytes.Buffer
	if err := t.Execute(&out, data); err != nil {
		return "", err
	}
	return out.String(), nil
}
